package cart

import (
	"fmt"
	"strings"
)

// StockPolicy decides whether a quantity change fits the resolved stock.
type StockPolicy string

const (
	// StockPolicyCreditLine credits the quantity the cart already holds back
	// into the available stock. Use it when catalog stock is decremented
	// only at fulfillment, so the line's own units are not yet reserved.
	StockPolicyCreditLine StockPolicy = "credit_line"
	// StockPolicyStrict caps the line's resulting quantity at the catalog
	// stock.
	StockPolicyStrict StockPolicy = "strict"
)

// ParseStockPolicy converts configuration input into a StockPolicy.
func ParseStockPolicy(value string) (StockPolicy, error) {
	switch StockPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", StockPolicyCreditLine:
		return StockPolicyCreditLine, nil
	case StockPolicyStrict:
		return StockPolicyStrict, nil
	}
	return "", fmt.Errorf("invalid stock policy %q", value)
}

// ChangeKind distinguishes adding units from setting an absolute quantity.
type ChangeKind int

const (
	ChangeAdditive ChangeKind = iota
	ChangeAbsolute
)

// StockCheck describes one requested change on one line key.
type StockCheck struct {
	TracksInventory     bool
	ResolvedStock       int
	CurrentLineQuantity int
	Requested           int
	Kind                ChangeKind
}

// Admit returns nil when the change is allowed.
func (p StockPolicy) Admit(c StockCheck) *Rejection {
	if !c.TracksInventory {
		return nil
	}

	var available int
	var ok bool
	switch p {
	case StockPolicyStrict:
		available = c.ResolvedStock
		if c.Kind == ChangeAdditive {
			ok = c.CurrentLineQuantity+c.Requested <= available
		} else {
			ok = c.Requested <= available
		}
	default:
		available = c.ResolvedStock + c.CurrentLineQuantity
		if c.Kind == ChangeAdditive {
			ok = available >= c.Requested
		} else {
			ok = c.Requested <= available
		}
	}
	if ok {
		return nil
	}

	if available < 0 {
		available = 0
	}
	return &Rejection{
		Reason:  ReasonInsufficientStock,
		Message: fmt.Sprintf("only %d available", available),
		Details: map[string]any{
			"available": available,
			"requested": c.Requested,
			"in_cart":   c.CurrentLineQuantity,
		},
	}
}
