package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDumpExtractsPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "cart_items_line_key", TableName: "cart_items", Message: "duplicate key value"}
	err := Wrap(CodeDependency, fmt.Errorf("insert line: %w", pgErr), "persist cart")

	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", d.Code)
	}
	if d.PGCode != "23505" || d.PGConstraint != "cart_items_line_key" {
		t.Fatalf("unexpected pg details %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}

	fields := d.Fields()
	if fields["pg_table"] != "cart_items" {
		t.Fatalf("expected pg_table field, got %v", fields["pg_table"])
	}
	if _, ok := fields["pg_detail"]; ok {
		t.Fatalf("empty values should be omitted")
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}
