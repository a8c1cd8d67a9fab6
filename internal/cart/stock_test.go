package cart

import "testing"

func TestCreditLinePolicyCreditsHeldQuantity(t *testing.T) {
	t.Parallel()

	// Stock 5 with 5 already in the cart: another 3 fits because the held
	// units are not yet reserved against catalog stock.
	check := StockCheck{TracksInventory: true, ResolvedStock: 5, CurrentLineQuantity: 5, Requested: 3, Kind: ChangeAdditive}
	if rejection := StockPolicyCreditLine.Admit(check); rejection != nil {
		t.Fatalf("expected credit line to admit, got %+v", rejection)
	}

	check.Requested = 11
	rejection := StockPolicyCreditLine.Admit(check)
	if rejection == nil || rejection.Reason != ReasonInsufficientStock {
		t.Fatalf("expected insufficient stock, got %+v", rejection)
	}
	if rejection.Details["available"] != 10 || rejection.Details["requested"] != 11 || rejection.Details["in_cart"] != 5 {
		t.Fatalf("unexpected details %+v", rejection.Details)
	}
}

func TestCreditLinePolicyAbsolute(t *testing.T) {
	t.Parallel()

	check := StockCheck{TracksInventory: true, ResolvedStock: 2, CurrentLineQuantity: 3, Requested: 5, Kind: ChangeAbsolute}
	if rejection := StockPolicyCreditLine.Admit(check); rejection != nil {
		t.Fatalf("expected 5 <= 2+3 to be admitted, got %+v", rejection)
	}
	check.Requested = 6
	if rejection := StockPolicyCreditLine.Admit(check); rejection == nil {
		t.Fatalf("expected rejection")
	}
}

func TestStrictPolicyCapsResultingQuantity(t *testing.T) {
	t.Parallel()

	check := StockCheck{TracksInventory: true, ResolvedStock: 5, CurrentLineQuantity: 5, Requested: 3, Kind: ChangeAdditive}
	rejection := StockPolicyStrict.Admit(check)
	if rejection == nil || rejection.Details["available"] != 5 {
		t.Fatalf("expected strict rejection with available 5, got %+v", rejection)
	}

	check = StockCheck{TracksInventory: true, ResolvedStock: 5, CurrentLineQuantity: 2, Requested: 3, Kind: ChangeAdditive}
	if rejection := StockPolicyStrict.Admit(check); rejection != nil {
		t.Fatalf("expected 2+3 <= 5 to be admitted, got %+v", rejection)
	}

	check = StockCheck{TracksInventory: true, ResolvedStock: 5, CurrentLineQuantity: 9, Requested: 5, Kind: ChangeAbsolute}
	if rejection := StockPolicyStrict.Admit(check); rejection != nil {
		t.Fatalf("absolute change only checks the new quantity, got %+v", rejection)
	}
}

func TestUntrackedInventoryAlwaysAdmitted(t *testing.T) {
	t.Parallel()

	check := StockCheck{ResolvedStock: 0, Requested: 1000, Kind: ChangeAdditive}
	for _, policy := range []StockPolicy{StockPolicyCreditLine, StockPolicyStrict} {
		if rejection := policy.Admit(check); rejection != nil {
			t.Fatalf("%s: untracked inventory must be admitted", policy)
		}
	}
}

func TestNegativeStockReportsZeroAvailable(t *testing.T) {
	t.Parallel()

	rejection := StockPolicyStrict.Admit(StockCheck{TracksInventory: true, ResolvedStock: -2, Requested: 1, Kind: ChangeAdditive})
	if rejection == nil || rejection.Details["available"] != 0 {
		t.Fatalf("expected available clamped to 0, got %+v", rejection)
	}
}

func TestParseStockPolicy(t *testing.T) {
	t.Parallel()

	cases := map[string]StockPolicy{
		"":            StockPolicyCreditLine,
		"credit_line": StockPolicyCreditLine,
		" STRICT ":    StockPolicyStrict,
	}
	for input, want := range cases {
		got, err := ParseStockPolicy(input)
		if err != nil || got != want {
			t.Fatalf("ParseStockPolicy(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseStockPolicy("reserve"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
