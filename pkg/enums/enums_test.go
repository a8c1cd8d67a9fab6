package enums

import "testing"

func TestParseProductType(t *testing.T) {
	got, err := ParseProductType("digital")
	if err != nil || got != ProductTypeDigital {
		t.Fatalf("expected digital, got %q err=%v", got, err)
	}
	if _, err := ParseProductType("service"); err == nil {
		t.Fatal("expected error for unknown product type")
	}
}

func TestInvoiceItemTypeFor(t *testing.T) {
	if got := InvoiceItemTypeFor(ProductTypeDigital); got != InvoiceItemTypeCourse {
		t.Fatalf("digital products should map to course lines, got %q", got)
	}
	if got := InvoiceItemTypeFor(ProductTypePhysical); got != InvoiceItemTypePhysicalProduct {
		t.Fatalf("physical products should map to physical lines, got %q", got)
	}
	if got := InvoiceItemTypeFor(""); got != InvoiceItemTypePhysicalProduct {
		t.Fatalf("unknown product types should default to physical lines, got %q", got)
	}
}

func TestParseDiscountType(t *testing.T) {
	for _, value := range []string{"percentage", "fixed"} {
		if _, err := ParseDiscountType(value); err != nil {
			t.Fatalf("unexpected error for %q: %v", value, err)
		}
	}
	if _, err := ParseDiscountType("bogo"); err == nil {
		t.Fatal("expected error for unknown discount type")
	}
}
