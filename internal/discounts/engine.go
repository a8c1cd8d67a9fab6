package discounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Redemption is the outcome of a successful Redeem call. Applied is false
// when no code was supplied or the code does not exist.
type Redemption struct {
	Applied bool
	CodeID  uuid.UUID
	Code    string
	Amount  decimal.Decimal
}

// Engine evaluates and redeems discount codes. Every method takes the
// transaction it should run in; a nil tx uses the base connection.
type Engine struct {
	repo *Repository
	now  func() time.Time
}

// NewEngine builds an engine over the repository.
func NewEngine(repo *Repository, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{repo: repo, now: now}
}

// Preview returns the discount the code would grant right now, or zero when
// the code is missing or unusable. It never consumes usage.
func (e *Engine) Preview(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal, audience Audience) decimal.Decimal {
	amount, _, _, err := e.evaluate(ctx, e.repo.WithTx(tx), code, subtotal, audience)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// Quote validates the code for attaching to a cart. Unknown codes are not
// found; refused codes are business rule failures.
func (e *Engine) Quote(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal, audience Audience) (decimal.Decimal, error) {
	amount, _, rejection, err := e.evaluate(ctx, e.repo.WithTx(tx), code, subtotal, audience)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount code")
	}
	if rejection != nil {
		return decimal.Zero, rejection.Err()
	}
	return amount, nil
}

// Redeem validates the code and consumes one use of it, globally and for the
// audience member when a cap applies. It must run inside the transaction
// that creates the invoice so a failed checkout gives the use back. An
// unknown code is not applied and is not an error.
func (e *Engine) Redeem(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal, audience Audience) (Redemption, *Rejection, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Redemption{}, nil, nil
	}
	repo := e.repo.WithTx(tx)

	amount, dc, rejection, err := e.evaluate(ctx, repo, normalized, subtotal, audience)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Redemption{}, nil, nil
		}
		return Redemption{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount code")
	}
	if rejection != nil {
		return Redemption{}, rejection, nil
	}

	ok, err := repo.IncrementGlobal(ctx, dc.ID)
	if err != nil {
		return Redemption{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem discount code")
	}
	if !ok {
		return Redemption{}, &Rejection{Reason: ReasonUsageExhausted, Message: "discount code usage limit reached"}, nil
	}

	for _, audienceCap := range dc.AudienceCaps {
		key, applies := audience.Key(audienceCap.AudienceGroup)
		if !applies {
			continue
		}
		ok, err := repo.IncrementAudience(ctx, dc.ID, audienceCap.AudienceGroup, key, audienceCap.UsageLimit)
		if err != nil {
			return Redemption{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem discount code")
		}
		if !ok {
			return Redemption{}, &Rejection{Reason: ReasonAudienceExhausted, Message: "you have already used this discount code"}, nil
		}
	}

	return Redemption{Applied: true, CodeID: dc.ID, Code: dc.Code, Amount: amount}, nil, nil
}

func (e *Engine) evaluate(ctx context.Context, repo *Repository, code string, subtotal decimal.Decimal, audience Audience) (decimal.Decimal, *models.DiscountCode, *Rejection, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return decimal.Zero, nil, nil, gorm.ErrRecordNotFound
	}
	dc, err := repo.FindByCode(ctx, normalized)
	if err != nil {
		return decimal.Zero, nil, nil, err
	}

	usage := AudienceUsage{}
	for _, audienceCap := range dc.AudienceCaps {
		key, applies := audience.Key(audienceCap.AudienceGroup)
		if !applies {
			continue
		}
		used, err := repo.UsedBy(ctx, dc.ID, audienceCap.AudienceGroup, key)
		if err != nil {
			return decimal.Zero, nil, nil, err
		}
		usage[audienceCap.AudienceGroup] = used
	}

	amount, rejection := Evaluate(dc, subtotal, audience, usage, e.now())
	return amount, dc, rejection, nil
}
