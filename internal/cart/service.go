package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/audit"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type discountQuoter interface {
	Preview(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal, audience discounts.Audience) decimal.Decimal
	Quote(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal, audience discounts.Audience) (decimal.Decimal, error)
}

// Service exposes the cart commands.
type Service interface {
	Get(ctx context.Context, owner Owner) (*models.Cart, error)
	AddItem(ctx context.Context, owner Owner, actx audit.Context, input ItemInput) (*models.Cart, error)
	SetItemQuantity(ctx context.Context, owner Owner, actx audit.Context, input ItemInput) (*models.Cart, error)
	RemoveItem(ctx context.Context, owner Owner, actx audit.Context, key LineKey) (*models.Cart, error)
	Clear(ctx context.Context, owner Owner, actx audit.Context) (*models.Cart, error)
	ApplyDiscount(ctx context.Context, owner Owner, actx audit.Context, code string) (*models.Cart, error)
	RemoveDiscount(ctx context.Context, owner Owner, actx audit.Context) (*models.Cart, error)
	DetachDiscount(ctx context.Context, cartID uuid.UUID, actx audit.Context) error
}

// ItemInput is a requested change to one line.
type ItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	OfferID   *uuid.UUID
	Quantity  int
}

// Key returns the line key the input targets.
func (in ItemInput) Key() LineKey {
	return LineKey{ProductID: in.ProductID, VariantID: in.VariantID, OfferID: in.OfferID}
}

func (in ItemInput) validate() error {
	if in.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if in.VariantID != nil && *in.VariantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is invalid")
	}
	if in.OfferID != nil && *in.OfferID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "offer id is invalid")
	}
	if in.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

type service struct {
	repo      CartRepository
	catalog   catalog.Reader
	discounts discountQuoter
	tx        txRunner
	policy    StockPolicy
	logg      *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, catalogReader catalog.Reader, quoter discountQuoter, tx txRunner, policy StockPolicy, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogReader == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if quoter == nil {
		return nil, fmt.Errorf("discount quoter required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if policy == "" {
		policy = StockPolicyCreditLine
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      repo,
		catalog:   catalogReader,
		discounts: quoter,
		tx:        tx,
		policy:    policy,
		logg:      logg,
	}, nil
}

// Get returns the owner's cart, or nil when none exists yet.
func (s *service) Get(ctx context.Context, owner Owner) (*models.Cart, error) {
	cart, _, err := Resolve(ctx, s.repo, owner, false)
	return cart, err
}

func (s *service) AddItem(ctx context.Context, owner Owner, actx audit.Context, input ItemInput) (*models.Cart, error) {
	return s.mutateItem(ctx, owner, actx, input, ChangeAdditive)
}

func (s *service) SetItemQuantity(ctx context.Context, owner Owner, actx audit.Context, input ItemInput) (*models.Cart, error) {
	return s.mutateItem(ctx, owner, actx, input, ChangeAbsolute)
}

func (s *service) mutateItem(ctx context.Context, owner Owner, actx audit.Context, input ItemInput, kind ChangeKind) (*models.Cart, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, created, err := Resolve(ctx, repo, owner, true)
		if err != nil {
			return err
		}

		snap, err := s.resolveLine(ctx, s.catalog.WithTx(tx), input)
		if err != nil {
			return err
		}

		key := input.Key()
		if rejection := s.policy.Admit(StockCheck{
			TracksInventory:     snap.Resolution.TracksInventory,
			ResolvedStock:       snap.Resolution.AvailableStock,
			CurrentLineQuantity: LineQuantity(cart, key),
			Requested:           input.Quantity,
			Kind:                kind,
		}); rejection != nil {
			return rejection.Err()
		}

		if kind == ChangeAdditive {
			AddLine(cart, key, snap, input.Quantity, actx)
		} else {
			SetLineQuantity(cart, key, snap, input.Quantity, actx)
		}

		if err := s.persist(ctx, tx, repo, cart, owner, actx, created); err != nil {
			return err
		}
		result = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, actx audit.Context, key LineKey) (*models.Cart, error) {
	if key.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.mutateExisting(ctx, owner, actx, func(tx *gorm.DB, cart *models.Cart) error {
		if !RemoveLine(cart, key) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil
	})
}

func (s *service) Clear(ctx context.Context, owner Owner, actx audit.Context) (*models.Cart, error) {
	return s.mutateExisting(ctx, owner, actx, func(tx *gorm.DB, cart *models.Cart) error {
		ClearLines(cart)
		return nil
	})
}

// ApplyDiscount validates the code against the current subtotal and attaches
// it. Usage counters are only consumed at checkout.
func (s *service) ApplyDiscount(ctx context.Context, owner Owner, actx audit.Context, code string) (*models.Cart, error) {
	normalized := discounts.NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	return s.mutateExisting(ctx, owner, actx, func(tx *gorm.DB, cart *models.Cart) error {
		if len(cart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		if _, err := s.discounts.Quote(ctx, tx, normalized, Subtotal(cart), audienceFor(owner)); err != nil {
			return err
		}
		cart.DiscountCode = &normalized
		return nil
	})
}

func (s *service) RemoveDiscount(ctx context.Context, owner Owner, actx audit.Context) (*models.Cart, error) {
	return s.mutateExisting(ctx, owner, actx, func(tx *gorm.DB, cart *models.Cart) error {
		cart.DiscountCode = nil
		return nil
	})
}

// DetachDiscount strips the applied code from a cart by id and refreshes its
// totals. Checkout calls it after a redemption is refused.
func (s *service) DetachDiscount(ctx context.Context, cartID uuid.UUID, actx audit.Context) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindByID(ctx, cartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		cart.DiscountCode = nil
		Recalculate(cart, decimal.Zero)
		audit.Stamp(&cart.AuditFields, actx, false)
		return s.save(ctx, repo, cart, false)
	})
}

func (s *service) mutateExisting(ctx context.Context, owner Owner, actx audit.Context, mutate func(tx *gorm.DB, cart *models.Cart) error) (*models.Cart, error) {
	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, _, err := Resolve(ctx, repo, owner, false)
		if err != nil {
			return err
		}
		if cart == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		if err := mutate(tx, cart); err != nil {
			return err
		}
		if err := s.persist(ctx, tx, repo, cart, owner, actx, false); err != nil {
			return err
		}
		result = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// persist refreshes totals against the applied code, stamps the cart and
// writes it.
func (s *service) persist(ctx context.Context, tx *gorm.DB, repo CartRepository, cart *models.Cart, owner Owner, actx audit.Context, created bool) error {
	discount := decimal.Zero
	if cart.DiscountCode != nil {
		discount = s.discounts.Preview(ctx, tx, *cart.DiscountCode, Subtotal(cart), audienceFor(owner))
	}
	Recalculate(cart, discount)
	audit.Stamp(&cart.AuditFields, actx, created)
	return s.save(ctx, repo, cart, created)
}

func (s *service) save(ctx context.Context, repo CartRepository, cart *models.Cart, created bool) error {
	if err := repo.Save(ctx, cart, created); err != nil {
		if errors.Is(err, ErrStaleCart) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart was updated by another request, retry")
		}
		s.logg.Error(s.logg.WithCartID(ctx, cart.ID.String()), "cart.save_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return nil
}

// resolveLine loads the catalog records for the input and runs the pricing
// resolver over them.
func (s *service) resolveLine(ctx context.Context, reader catalog.Reader, input ItemInput) (LineSnapshot, error) {
	product, err := reader.FindProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LineSnapshot{}, reject(ReasonProductUnavailable, "product is not available").Err()
		}
		return LineSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	in := PricingInput{Product: product, VariantID: input.VariantID, OfferID: input.OfferID}

	if input.VariantID != nil {
		variant, err := reader.FindVariant(ctx, *input.VariantID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return LineSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}
		in.Variant = variant
	}
	if input.OfferID != nil {
		offer, err := reader.FindOffer(ctx, *input.OfferID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return LineSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
		}
		in.Offer = offer
		if offer != nil && offer.SellerID != nil {
			if in.OfferSeller, err = s.findSeller(ctx, reader, *offer.SellerID); err != nil {
				return LineSnapshot{}, err
			}
		}
	}
	if product.SellerID != nil {
		if in.ProductSeller, err = s.findSeller(ctx, reader, *product.SellerID); err != nil {
			return LineSnapshot{}, err
		}
	}

	resolution, rejection := ResolvePricing(in)
	if rejection != nil {
		return LineSnapshot{}, rejection.Err()
	}
	return LineSnapshot{Product: product, Resolution: resolution}, nil
}

func (s *service) findSeller(ctx context.Context, reader catalog.Reader, id uuid.UUID) (*models.Seller, error) {
	seller, err := reader.FindSeller(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	return seller, nil
}

func audienceFor(owner Owner) discounts.Audience {
	return discounts.Audience{UserID: owner.UserID}
}
