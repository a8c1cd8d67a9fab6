// Package invoices issues invoices for completed checkouts.
package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Service creates and reads invoices.
type Service interface {
	Create(ctx context.Context, tx *gorm.DB, input CreateInput) (uuid.UUID, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Invoice, error)
}

// CreateInput is a fully priced invoice request.
type CreateInput struct {
	UserID      uuid.UUID
	Title       string
	Currency    string
	IssuedAt    time.Time
	DueAt       time.Time
	TaxAmount   decimal.Decimal
	Adjustment  decimal.Decimal
	ExternalRef string
	Items       []ItemInput
	Shipping    *types.ShippingSnapshot
}

// ItemInput is one invoice line.
type ItemInput struct {
	Name        string
	Type        enums.InvoiceItemType
	ReferenceID uuid.UUID
	VariantID   *uuid.UUID
	Quantity    int
	UnitPrice   decimal.Decimal
}

type service struct {
	repo Repository
}

// NewService builds the invoice service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	return &service{repo: repo}, nil
}

// Create validates and writes the invoice within tx. The total is
// subtotal + tax + adjustment and may not be negative.
func (s *service) Create(ctx context.Context, tx *gorm.DB, input CreateInput) (uuid.UUID, error) {
	if err := input.validate(); err != nil {
		return uuid.Nil, err
	}

	invoice := &models.Invoice{
		ID:               uuid.New(),
		UserID:           input.UserID,
		Title:            strings.TrimSpace(input.Title),
		Currency:         strings.ToUpper(strings.TrimSpace(input.Currency)),
		Status:           enums.InvoiceStatusIssued,
		IssuedAt:         input.IssuedAt.UTC(),
		DueAt:            input.DueAt.UTC(),
		TaxAmount:        input.TaxAmount,
		AdjustmentAmount: input.Adjustment,
		ExternalRef:      input.ExternalRef,
		Shipping:         input.Shipping,
		Items:            make([]models.InvoiceItem, 0, len(input.Items)),
	}

	subtotal := decimal.Zero
	for i, item := range input.Items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		invoice.Items = append(invoice.Items, models.InvoiceItem{
			InvoiceID:   invoice.ID,
			Position:    i,
			Name:        item.Name,
			Type:        item.Type,
			ReferenceID: item.ReferenceID,
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   lineTotal,
		})
	}
	invoice.SubtotalAmount = subtotal
	invoice.TotalAmount = subtotal.Add(input.TaxAmount).Add(input.Adjustment)
	if invoice.TotalAmount.IsNegative() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice total cannot be negative")
	}

	if err := s.repo.WithTx(tx).Create(ctx, invoice); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}
	return invoice.ID, nil
}

func (s *service) Get(ctx context.Context, id, userID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	return invoice, nil
}

func (in CreateInput) validate() error {
	switch {
	case in.UserID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice owner is required")
	case strings.TrimSpace(in.Title) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice title is required")
	case strings.TrimSpace(in.Currency) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice currency is required")
	case len(in.Items) == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice needs at least one item")
	case in.DueAt.Before(in.IssuedAt):
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice due date precedes issue date")
	case in.TaxAmount.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "tax cannot be negative")
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.Name) == "" {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: name is required", i)
		}
		if !item.Type.IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: invalid type %q", i, item.Type)
		}
		if item.Quantity <= 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: quantity must be positive", i)
		}
		if item.UnitPrice.IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: unit price cannot be negative", i)
		}
	}
	return nil
}
