package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// PriceSource names which catalog record supplied a line's price and stock.
type PriceSource string

const (
	PriceSourceProduct PriceSource = "product"
	PriceSourceVariant PriceSource = "variant"
	PriceSourceOffer   PriceSource = "offer"
)

// PricingInput is everything the resolver needs. The caller loads the
// records; a nil Variant, Offer or seller means the lookup found nothing.
type PricingInput struct {
	Product       *models.Product
	VariantID     *uuid.UUID
	OfferID       *uuid.UUID
	Variant       *models.ProductVariant
	Offer         *models.Offer
	OfferSeller   *models.Seller
	ProductSeller *models.Seller
}

// Resolution is the effective price and stock for one line key.
type Resolution struct {
	UnitPrice       decimal.Decimal
	CompareAtPrice  decimal.NullDecimal
	TracksInventory bool
	AvailableStock  int
	Thumbnail       *string
	SellerID        *uuid.UUID
	Source          PriceSource
}

// RejectionReason is a stable machine-readable cause for a refused change.
type RejectionReason string

const (
	ReasonProductUnavailable RejectionReason = "product_unavailable"
	ReasonVariantNotFound    RejectionReason = "variant_not_found"
	ReasonOfferNotFound      RejectionReason = "offer_not_found"
	ReasonOfferMismatch      RejectionReason = "offer_mismatch"
	ReasonOfferUnavailable   RejectionReason = "offer_unavailable"
	ReasonSellerInactive     RejectionReason = "seller_inactive"
	ReasonCustomOrder        RejectionReason = "custom_order"
	ReasonMissingPrice       RejectionReason = "missing_price"
	ReasonInsufficientStock  RejectionReason = "insufficient_stock"
	ReasonSelectionRequired  RejectionReason = "selection_required"
)

// Rejection is a user-facing refusal. It is a value, not an error, so that
// the resolver stays pure; Err converts it at the service boundary.
type Rejection struct {
	Reason  RejectionReason
	Message string
	Details map[string]any
}

func reject(reason RejectionReason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

// Err maps the rejection onto the error taxonomy: missing or hidden records
// are not found, unusable selections are validation failures, the rest are
// business rule violations.
func (r *Rejection) Err() error {
	if r == nil {
		return nil
	}
	code := pkgerrors.CodeStateConflict
	switch r.Reason {
	case ReasonProductUnavailable, ReasonVariantNotFound, ReasonOfferNotFound, ReasonOfferMismatch, ReasonOfferUnavailable:
		code = pkgerrors.CodeNotFound
	case ReasonSelectionRequired:
		code = pkgerrors.CodeValidation
	}
	details := map[string]any{"reason": string(r.Reason)}
	for k, v := range r.Details {
		details[k] = v
	}
	return pkgerrors.New(code, r.Message).WithDetails(details)
}

// ResolvePricing picks the price and stock source for a requested line.
// An offer wins over a variant, a variant over the bare product, and a
// product with active variants cannot be bought bare.
func ResolvePricing(in PricingInput) (Resolution, *Rejection) {
	if in.Product == nil || !in.Product.IsPublished || in.Product.DeletedAt.Valid {
		return Resolution{}, reject(ReasonProductUnavailable, "product is not available")
	}
	switch {
	case in.OfferID != nil:
		return resolveOffer(in)
	case in.VariantID != nil:
		return resolveVariant(in)
	default:
		return resolvePlain(in)
	}
}

func resolveOffer(in PricingInput) (Resolution, *Rejection) {
	offer := in.Offer
	if offer == nil {
		return Resolution{}, reject(ReasonOfferNotFound, "offer not found")
	}
	if offer.ProductID != in.Product.ID {
		return Resolution{}, reject(ReasonOfferMismatch, "offer does not belong to this product")
	}
	if !offer.IsActive || !offer.IsPublished {
		return Resolution{}, reject(ReasonOfferUnavailable, "offer is not available")
	}
	if offer.SellerID != nil && (in.OfferSeller == nil || !in.OfferSeller.Usable()) {
		return Resolution{}, reject(ReasonSellerInactive, "seller is not active")
	}
	if !offer.Price.IsPositive() {
		return Resolution{}, reject(ReasonMissingPrice, "offer has no price")
	}
	if offer.TrackInventory && offer.StockQuantity <= 0 {
		return Resolution{}, reject(ReasonInsufficientStock, "offer is out of stock")
	}

	thumbnail := in.Product.FeaturedImage
	if in.VariantID != nil {
		variant, rejection := usableVariant(in)
		if rejection != nil {
			return Resolution{}, rejection
		}
		if variant.Image != nil {
			thumbnail = variant.Image
		}
	}

	sellerID := offer.SellerID
	if sellerID == nil {
		sellerID = in.Product.SellerID
	}
	return Resolution{
		UnitPrice:       offer.Price,
		CompareAtPrice:  offer.CompareAtPrice,
		TracksInventory: offer.TrackInventory,
		AvailableStock:  offer.StockQuantity,
		Thumbnail:       thumbnail,
		SellerID:        sellerID,
		Source:          PriceSourceOffer,
	}, nil
}

func resolveVariant(in PricingInput) (Resolution, *Rejection) {
	variant, rejection := usableVariant(in)
	if rejection != nil {
		return Resolution{}, rejection
	}
	if rejection := sellableProduct(in); rejection != nil {
		return Resolution{}, rejection
	}

	price := in.Product.Price
	if variant.Price.Valid {
		price = variant.Price.Decimal
	}
	if !price.IsPositive() {
		return Resolution{}, reject(ReasonMissingPrice, "variant has no price")
	}
	compareAt := in.Product.CompareAtPrice
	if variant.CompareAtPrice.Valid {
		compareAt = variant.CompareAtPrice
	}
	stock := in.Product.StockQuantity
	if variant.StockQuantity > 0 {
		stock = variant.StockQuantity
	}
	thumbnail := in.Product.FeaturedImage
	if variant.Image != nil {
		thumbnail = variant.Image
	}

	return Resolution{
		UnitPrice:       price,
		CompareAtPrice:  compareAt,
		TracksInventory: in.Product.TrackInventory,
		AvailableStock:  stock,
		Thumbnail:       thumbnail,
		SellerID:        in.Product.SellerID,
		Source:          PriceSourceVariant,
	}, nil
}

func resolvePlain(in PricingInput) (Resolution, *Rejection) {
	if in.Product.HasActiveVariants() {
		return Resolution{}, reject(ReasonSelectionRequired, "select a variant or offer for this product")
	}
	if rejection := sellableProduct(in); rejection != nil {
		return Resolution{}, rejection
	}
	if !in.Product.Price.IsPositive() {
		return Resolution{}, reject(ReasonMissingPrice, "product has no price")
	}
	return Resolution{
		UnitPrice:       in.Product.Price,
		CompareAtPrice:  in.Product.CompareAtPrice,
		TracksInventory: in.Product.TrackInventory,
		AvailableStock:  in.Product.StockQuantity,
		Thumbnail:       in.Product.FeaturedImage,
		SellerID:        in.Product.SellerID,
		Source:          PriceSourceProduct,
	}, nil
}

func usableVariant(in PricingInput) (*models.ProductVariant, *Rejection) {
	v := in.Variant
	if v == nil || !v.IsActive || v.ProductID != in.Product.ID {
		return nil, reject(ReasonVariantNotFound, "variant not found")
	}
	return v, nil
}

func sellableProduct(in PricingInput) *Rejection {
	if in.Product.IsCustomOrder {
		return reject(ReasonCustomOrder, "this product is made to order and cannot be added to the cart")
	}
	if in.Product.SellerID != nil && (in.ProductSeller == nil || !in.ProductSeller.Usable()) {
		return reject(ReasonSellerInactive, "seller is not active")
	}
	return nil
}
