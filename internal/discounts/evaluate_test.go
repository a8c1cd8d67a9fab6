package discounts

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func intPtr(v int) *int {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func percentCode(value string) *models.DiscountCode {
	return &models.DiscountCode{Code: "SAVE", Type: enums.DiscountTypePercentage, Value: dec(value), IsActive: true}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()
	if got := NormalizeCode("  save10 "); got != "SAVE10" {
		t.Fatalf("expected SAVE10, got %q", got)
	}
}

func TestComputeAmount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		code     *models.DiscountCode
		subtotal string
		want     string
	}{
		{name: "ten percent uncapped", code: percentCode("10"), subtotal: "100000", want: "10000"},
		{name: "percent rounds half away from zero", code: percentCode("12.5"), subtotal: "0.2", want: "0.03"},
		{name: "percent capped", code: func() *models.DiscountCode {
			c := percentCode("50")
			c.MaxDiscountAmount = decimal.NewNullDecimal(dec("20000"))
			return c
		}(), subtotal: "100000", want: "20000"},
		{name: "fixed below subtotal", code: &models.DiscountCode{Type: enums.DiscountTypeFixed, Value: dec("5000")}, subtotal: "100000", want: "5000"},
		{name: "fixed above subtotal", code: &models.DiscountCode{Type: enums.DiscountTypeFixed, Value: dec("5000")}, subtotal: "3000", want: "3000"},
		{name: "zero subtotal", code: percentCode("10"), subtotal: "0", want: "0"},
	}

	for _, tc := range cases {
		if got := ComputeAmount(tc.code, dec(tc.subtotal)); !got.Equal(dec(tc.want)) {
			t.Fatalf("%s: expected %s got %s", tc.name, tc.want, got)
		}
	}
}

func TestEvaluateRejections(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	withUser := Audience{UserID: &userID}

	cases := []struct {
		name   string
		mutate func(c *models.DiscountCode)
		usage  AudienceUsage
		total  string
		want   RejectionReason
	}{
		{name: "inactive", mutate: func(c *models.DiscountCode) { c.IsActive = false }, want: ReasonInactive},
		{name: "not started", mutate: func(c *models.DiscountCode) { c.StartsAt = timePtr(now.Add(time.Hour)) }, want: ReasonNotStarted},
		{name: "expired", mutate: func(c *models.DiscountCode) { c.EndsAt = timePtr(now.Add(-time.Second)) }, want: ReasonExpired},
		{name: "global cap", mutate: func(c *models.DiscountCode) { c.UsageLimit = intPtr(3); c.UsedCount = 3 }, want: ReasonUsageExhausted},
		{name: "audience cap", mutate: func(c *models.DiscountCode) {
			c.AudienceCaps = []models.DiscountAudienceCap{{AudienceGroup: enums.AudienceGroupUser, UsageLimit: 1}}
		}, usage: AudienceUsage{enums.AudienceGroupUser: 1}, want: ReasonAudienceExhausted},
		{name: "min order", mutate: func(c *models.DiscountCode) { c.MinOrderAmount = decimal.NewNullDecimal(dec("200000")) }, want: ReasonMinOrderNotMet},
	}

	for _, tc := range cases {
		code := percentCode("10")
		tc.mutate(code)
		total := tc.total
		if total == "" {
			total = "100000"
		}
		_, rejection := Evaluate(code, dec(total), withUser, tc.usage, now)
		if rejection == nil || rejection.Reason != tc.want {
			t.Fatalf("%s: expected %s, got %+v", tc.name, tc.want, rejection)
		}
		if typed := pkgerrors.As(rejection.Err()); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("%s: expected state conflict error", tc.name)
		}
	}
}

func TestEvaluateAudienceCapIgnoredWithoutAudienceKey(t *testing.T) {
	t.Parallel()

	code := percentCode("10")
	code.AudienceCaps = []models.DiscountAudienceCap{{AudienceGroup: enums.AudienceGroupUser, UsageLimit: 1}}

	amount, rejection := Evaluate(code, dec("1000"), Audience{}, AudienceUsage{enums.AudienceGroupUser: 5}, time.Now())
	if rejection != nil {
		t.Fatalf("cap should not apply to anonymous audience, got %+v", rejection)
	}
	if !amount.Equal(dec("100")) {
		t.Fatalf("expected 100, got %s", amount)
	}
}

func TestEvaluateWindowBoundsInclusive(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	code := percentCode("10")
	code.StartsAt = timePtr(now)
	code.EndsAt = timePtr(now)
	if _, rejection := Evaluate(code, dec("100"), Audience{}, nil, now); rejection != nil {
		t.Fatalf("window edges should be valid, got %+v", rejection)
	}
}
