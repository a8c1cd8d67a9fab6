// Package checkout turns a cart into an invoice.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/addresses"
	"github.com/angelmondragon/storefront-backend/internal/audit"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/internal/invoices"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const failureDiscountRejected = "discount_rejected"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type discountRedeemer interface {
	Redeem(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal, audience discounts.Audience) (discounts.Redemption, *discounts.Rejection, error)
}

type discountDetacher interface {
	DetachDiscount(ctx context.Context, cartID uuid.UUID, actx audit.Context) error
}

type vatProvider interface {
	VATPercent(ctx context.Context) (decimal.Decimal, error)
}

type sellerNotifier interface {
	NotifySellers(ctx context.Context, invoiceID uuid.UUID, lines []notifications.SaleLine) error
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, input Input) (*Result, error)
}

// Input identifies the buyer and the optional saved address to ship to.
type Input struct {
	Owner             cart.Owner
	ShippingAddressID *uuid.UUID
	Audit             audit.Context
}

// Result summarizes the issued invoice.
type Result struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

// Settings are the invoice defaults applied to every checkout.
type Settings struct {
	Title    string
	Currency string
	DueIn    time.Duration
}

// Deps are the collaborators checkout sequences.
type Deps struct {
	Tx        txRunner
	Carts     cart.CartRepository
	Detacher  discountDetacher
	Discounts discountRedeemer
	VAT       vatProvider
	Addresses addresses.Reader
	Invoices  invoices.Service
	Notifier  sellerNotifier
	Metrics   *metrics.CheckoutMetrics
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	Deps
	settings Settings
}

// NewService builds the checkout service.
func NewService(deps Deps, settings Settings) (Service, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case deps.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case deps.Detacher == nil:
		return nil, fmt.Errorf("discount detacher required")
	case deps.Discounts == nil:
		return nil, fmt.Errorf("discount redeemer required")
	case deps.VAT == nil:
		return nil, fmt.Errorf("vat provider required")
	case deps.Addresses == nil:
		return nil, fmt.Errorf("address reader required")
	case deps.Invoices == nil:
		return nil, fmt.Errorf("invoice service required")
	}
	if strings.TrimSpace(settings.Title) == "" || strings.TrimSpace(settings.Currency) == "" {
		return nil, fmt.Errorf("invoice title and currency required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{Deps: deps, settings: settings}, nil
}

// Execute redeems the cart's discount, issues the invoice and deletes the
// cart in one transaction. A refused discount is removed from the cart and
// reported; sellers are notified only after the invoice is committed.
func (s *service) Execute(ctx context.Context, input Input) (*Result, error) {
	started := s.Now()
	result, reason, err := s.execute(ctx, input)
	elapsed := s.Now().Sub(started)
	if err != nil {
		s.Metrics.ObserveFailure(reason, elapsed)
		return nil, err
	}
	s.Metrics.ObserveSuccess(elapsed)
	return result, nil
}

func (s *service) execute(ctx context.Context, input Input) (*Result, string, error) {
	owner := input.Owner
	if owner.UserID == nil {
		return nil, failureReason(pkgerrors.CodeUnauthorized), pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to check out")
	}
	userID := *owner.UserID
	ctx = s.Logger.WithUserID(ctx, userID.String())

	record, _, err := cart.Resolve(ctx, s.Carts, owner, false)
	if err != nil {
		return nil, reasonOf(err), err
	}
	if record == nil || len(record.Items) == 0 {
		return nil, "empty_cart", pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	ctx = s.Logger.WithCartID(ctx, record.ID.String())

	vat, err := s.VAT.VATPercent(ctx)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vat percent")
		}
		return nil, reasonOf(err), err
	}

	shipping := s.resolveShipping(ctx, userID, input.ShippingAddressID)

	var (
		result    *Result
		rejection *discounts.Rejection
		lines     []models.CartItem
	)
	err = s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.Carts.WithTx(tx)
		current, err := repo.FindByID(ctx, record.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeConflict, "cart was checked out by another request")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if current.Version != record.Version {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout, retry")
		}
		if len(current.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		subtotal := cart.Subtotal(current)
		discount := decimal.Zero
		if current.DiscountCode != nil {
			redemption, refused, err := s.Discounts.Redeem(ctx, tx, *current.DiscountCode, subtotal, discounts.Audience{UserID: &userID})
			if err != nil {
				return err
			}
			if refused != nil {
				rejection = refused
				return refused.Err()
			}
			discount = redemption.Amount
		}

		tax := ComputeTax(subtotal.Sub(discount), vat)
		now := s.Now().UTC()
		invoiceID, err := s.Invoices.Create(ctx, tx, invoices.CreateInput{
			UserID:      userID,
			Title:       s.settings.Title,
			Currency:    s.settings.Currency,
			IssuedAt:    now,
			DueAt:       now.Add(s.settings.DueIn),
			TaxAmount:   tax,
			Adjustment:  discount.Neg(),
			ExternalRef: current.ID.String(),
			Items:       invoiceItems(current.Items),
			Shipping:    shipping,
		})
		if err != nil {
			return err
		}

		if err := repo.Delete(ctx, current.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
		}

		lines = current.Items
		result = &Result{
			InvoiceID: invoiceID,
			Subtotal:  subtotal,
			Discount:  discount,
			Tax:       tax,
			Total:     subtotal.Sub(discount).Add(tax),
		}
		return nil
	})

	if rejection != nil {
		if derr := s.Detacher.DetachDiscount(ctx, record.ID, input.Audit); derr != nil {
			s.Logger.Error(ctx, "checkout.discount_detach_failed", derr)
		}
		return nil, failureDiscountRejected, rejection.Err()
	}
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout")
		}
		s.Logger.Error(ctx, "checkout.failed", err)
		return nil, reasonOf(err), err
	}

	s.notifySellers(s.Logger.WithInvoiceID(ctx, result.InvoiceID.String()), result.InvoiceID, lines)
	return result, "", nil
}

// resolveShipping returns nil when no address was requested or the lookup
// fails. Only the buyer's own addresses are visible.
func (s *service) resolveShipping(ctx context.Context, userID uuid.UUID, addressID *uuid.UUID) *types.ShippingSnapshot {
	if addressID == nil || *addressID == uuid.Nil {
		return nil
	}
	address, err := s.Addresses.FindByIDAndUser(ctx, *addressID, userID)
	if err != nil {
		s.Logger.Warn(s.Logger.WithFields(ctx, map[string]any{
			"address_id": addressID.String(),
			"error":      err.Error(),
		}), "checkout.shipping_address_unavailable")
		return nil
	}
	return addresses.Snapshot(address)
}

// notifySellers runs after commit. Its failures, panics included, are
// logged and never reach the caller.
func (s *service) notifySellers(ctx context.Context, invoiceID uuid.UUID, lines []models.CartItem) {
	if s.Notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error(ctx, "checkout.seller_notification_panic", fmt.Errorf("panic: %v", r))
		}
	}()
	if err := s.Notifier.NotifySellers(ctx, invoiceID, saleLines(lines)); err != nil {
		s.Logger.Warn(s.Logger.WithField(ctx, "error", err.Error()), "checkout.seller_notification_failed")
	}
}

func reasonOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return failureReason(typed.Code())
	}
	return failureReason(pkgerrors.CodeInternal)
}

func failureReason(code pkgerrors.Code) string {
	return strings.ToLower(string(code))
}
