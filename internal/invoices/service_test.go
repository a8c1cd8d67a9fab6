package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func validInput(userID uuid.UUID) CreateInput {
	issued := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	variantID := uuid.New()
	return CreateInput{
		UserID:      userID,
		Title:       "Storefront order",
		Currency:    "irr",
		IssuedAt:    issued,
		DueAt:       issued.Add(7 * 24 * time.Hour),
		TaxAmount:   decimal.NewFromInt(900),
		Adjustment:  decimal.NewFromInt(-1000),
		ExternalRef: uuid.NewString(),
		Items: []ItemInput{
			{Name: "Poster", Type: enums.InvoiceItemTypePhysicalProduct, ReferenceID: uuid.New(), VariantID: &variantID, Quantity: 2, UnitPrice: decimal.NewFromInt(3000)},
			{Name: "Go course", Type: enums.InvoiceItemTypeCourse, ReferenceID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(4000)},
		},
		Shipping: &types.ShippingSnapshot{RecipientName: "Sara", City: "Tehran"},
	}
}

func TestCreatePersistsInvoiceWithTotals(t *testing.T) {
	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	userID := uuid.New()
	id, err := svc.Create(context.Background(), nil, validInput(userID))
	require.NoError(t, err)

	invoice, err := svc.Get(context.Background(), id, userID)
	require.NoError(t, err)
	require.Equal(t, "IRR", invoice.Currency)
	require.Equal(t, enums.InvoiceStatusIssued, invoice.Status)
	require.True(t, invoice.SubtotalAmount.Equal(decimal.NewFromInt(10000)))
	require.True(t, invoice.TotalAmount.Equal(decimal.NewFromInt(9900)))
	require.Len(t, invoice.Items, 2)
	require.Equal(t, "Poster", invoice.Items[0].Name)
	require.True(t, invoice.Items[0].LineTotal.Equal(decimal.NewFromInt(6000)))
	require.NotNil(t, invoice.Shipping)
	require.Equal(t, "Tehran", invoice.Shipping.City)

	_, err = svc.Get(context.Background(), id, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateWithinRolledBackTransactionLeavesNothing(t *testing.T) {
	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	userID := uuid.New()
	tx := db.Begin()
	id, err := svc.Create(context.Background(), tx, validInput(userID))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback().Error)

	_, err = svc.Get(context.Background(), id, userID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateValidation(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	userID := uuid.New()

	mutations := map[string]func(in *CreateInput){
		"missing owner":     func(in *CreateInput) { in.UserID = uuid.Nil },
		"missing title":     func(in *CreateInput) { in.Title = " " },
		"missing currency":  func(in *CreateInput) { in.Currency = "" },
		"no items":          func(in *CreateInput) { in.Items = nil },
		"due before issued": func(in *CreateInput) { in.DueAt = in.IssuedAt.Add(-time.Hour) },
		"negative tax":      func(in *CreateInput) { in.TaxAmount = decimal.NewFromInt(-1) },
		"zero quantity":     func(in *CreateInput) { in.Items[0].Quantity = 0 },
		"unknown line type": func(in *CreateInput) { in.Items[0].Type = "gift" },
		"negative total":    func(in *CreateInput) { in.Adjustment = decimal.NewFromInt(-100000) },
	}
	for name, mutate := range mutations {
		in := validInput(userID)
		mutate(&in)
		_, err := svc.Create(context.Background(), nil, in)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), name)
	}
}
