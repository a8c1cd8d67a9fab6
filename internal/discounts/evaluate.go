// Package discounts validates discount codes against an order amount and
// redeems them with race-safe usage counters.
package discounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// NormalizeCode canonicalizes user input before lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Audience identifies who is redeeming, for per-audience caps.
type Audience struct {
	UserID *uuid.UUID
}

// Key returns the audience member key for group, if the audience has one.
func (a Audience) Key(group enums.AudienceGroup) (string, bool) {
	switch group {
	case enums.AudienceGroupUser:
		if a.UserID != nil {
			return a.UserID.String(), true
		}
	}
	return "", false
}

// RejectionReason explains why a code cannot be used.
type RejectionReason string

const (
	ReasonInactive          RejectionReason = "inactive"
	ReasonNotStarted        RejectionReason = "not_started"
	ReasonExpired           RejectionReason = "expired"
	ReasonUsageExhausted    RejectionReason = "usage_exhausted"
	ReasonAudienceExhausted RejectionReason = "audience_exhausted"
	ReasonMinOrderNotMet    RejectionReason = "min_order_not_met"
)

// Rejection is a refused redemption. It is a business rule failure.
type Rejection struct {
	Reason  RejectionReason
	Message string
}

func (r *Rejection) Err() error {
	if r == nil {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, r.Message).
		WithDetails(map[string]any{"reason": string(r.Reason)})
}

// AudienceUsage is how often the current audience member used the code,
// keyed by group.
type AudienceUsage map[enums.AudienceGroup]int

// Evaluate checks every redemption rule and returns the discount amount the
// code grants on subtotal.
func Evaluate(code *models.DiscountCode, subtotal decimal.Decimal, audience Audience, usage AudienceUsage, now time.Time) (decimal.Decimal, *Rejection) {
	if !code.IsActive {
		return decimal.Zero, &Rejection{Reason: ReasonInactive, Message: "discount code is not active"}
	}
	if code.StartsAt != nil && now.Before(*code.StartsAt) {
		return decimal.Zero, &Rejection{Reason: ReasonNotStarted, Message: "discount code is not valid yet"}
	}
	if code.EndsAt != nil && now.After(*code.EndsAt) {
		return decimal.Zero, &Rejection{Reason: ReasonExpired, Message: "discount code has expired"}
	}
	if code.UsageLimit != nil && code.UsedCount >= *code.UsageLimit {
		return decimal.Zero, &Rejection{Reason: ReasonUsageExhausted, Message: "discount code usage limit reached"}
	}
	for _, audienceCap := range code.AudienceCaps {
		if _, ok := audience.Key(audienceCap.AudienceGroup); !ok {
			continue
		}
		if usage[audienceCap.AudienceGroup] >= audienceCap.UsageLimit {
			return decimal.Zero, &Rejection{Reason: ReasonAudienceExhausted, Message: "you have already used this discount code"}
		}
	}
	if code.MinOrderAmount.Valid && subtotal.LessThan(code.MinOrderAmount.Decimal) {
		return decimal.Zero, &Rejection{
			Reason:  ReasonMinOrderNotMet,
			Message: "order total is below the minimum of " + code.MinOrderAmount.Decimal.StringFixed(2) + " for this discount code",
		}
	}
	return ComputeAmount(code, subtotal), nil
}

// ComputeAmount applies the code's type and value to subtotal. Percentage
// discounts are capped by the optional maximum and rounded to two places,
// half away from zero. Fixed discounts never exceed the subtotal.
func ComputeAmount(code *models.DiscountCode, subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() || !code.Value.IsPositive() {
		return decimal.Zero
	}
	switch code.Type {
	case enums.DiscountTypePercentage:
		amount := subtotal.Mul(code.Value).Div(hundred).Round(2)
		if code.MaxDiscountAmount.Valid && amount.GreaterThan(code.MaxDiscountAmount.Decimal) {
			amount = code.MaxDiscountAmount.Decimal
		}
		return decimal.Min(amount, subtotal)
	case enums.DiscountTypeFixed:
		return decimal.Min(code.Value, subtotal)
	}
	return decimal.Zero
}
