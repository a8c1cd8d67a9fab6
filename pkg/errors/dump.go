package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}
	return d
}

// Fields returns the non-empty parts of the dump keyed for the logger.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if len(d.Chain) > 1 {
		fields["error_chain"] = d.Chain
	}
	for key, value := range map[string]string{
		"pg_code":       d.PGCode,
		"pg_constraint": d.PGConstraint,
		"pg_table":      d.PGTable,
		"pg_detail":     d.PGDetail,
		"pg_message":    d.PGMessage,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
