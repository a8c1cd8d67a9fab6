package notifications

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type sellerLookup interface {
	FindSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error)
}

// SaleLine is one purchased product as seen by its seller.
type SaleLine struct {
	ProductID   uuid.UUID
	ProductName string
	SellerID    *uuid.UUID
}

// SellerNotifier tells sellers that their products were sold.
type SellerNotifier struct {
	repo    Repository
	sellers sellerLookup
	now     func() time.Time
}

// NewSellerNotifier builds a notifier writing through repo.
func NewSellerNotifier(repo Repository, sellers sellerLookup) (*SellerNotifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if sellers == nil {
		return nil, fmt.Errorf("seller lookup required")
	}
	return &SellerNotifier{repo: repo, sellers: sellers, now: time.Now}, nil
}

// NotifySellers writes one notification per seller listing the distinct
// products they sold on the invoice. Lines without a seller are skipped.
// Every seller is attempted; the failures are combined.
func (n *SellerNotifier) NotifySellers(ctx context.Context, invoiceID uuid.UUID, lines []SaleLine) error {
	var errs error
	for _, group := range groupBySeller(lines) {
		if err := n.notify(ctx, invoiceID, group); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("seller %s: %w", group.sellerID, err))
		}
	}
	return errs
}

func (n *SellerNotifier) notify(ctx context.Context, invoiceID uuid.UUID, group sellerSale) error {
	seller, err := n.sellers.FindSeller(ctx, group.sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seller not found")
		}
		return err
	}

	ref := invoiceID
	return n.repo.Create(ctx, &models.Notification{
		UserID:      seller.UserID,
		Type:        enums.NotificationTypeSellerSale,
		Title:       "New sale",
		Message:     fmt.Sprintf("Invoice %s includes your products: %s", invoiceID, strings.Join(group.productNames, ", ")),
		ReferenceID: &ref,
		CreatedAt:   n.now().UTC(),
	})
}

type sellerSale struct {
	sellerID     uuid.UUID
	productNames []string
}

// groupBySeller returns sellers in first-seen order with each product
// listed once.
func groupBySeller(lines []SaleLine) []sellerSale {
	var order []uuid.UUID
	groups := map[uuid.UUID]*sellerSale{}
	seen := map[uuid.UUID]map[uuid.UUID]bool{}

	for _, line := range lines {
		if line.SellerID == nil {
			continue
		}
		sellerID := *line.SellerID
		group, ok := groups[sellerID]
		if !ok {
			group = &sellerSale{sellerID: sellerID}
			groups[sellerID] = group
			seen[sellerID] = map[uuid.UUID]bool{}
			order = append(order, sellerID)
		}
		if seen[sellerID][line.ProductID] {
			continue
		}
		seen[sellerID][line.ProductID] = true
		group.productNames = append(group.productNames, line.ProductName)
	}

	out := make([]sellerSale, 0, len(order))
	for _, id := range order {
		g := groups[id]
		sort.Strings(g.productNames)
		out = append(out, *g)
	}
	return out
}
