package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ledgerGuards names the schema constraint behind each balance or budget
// rule, so a failed write logs which rule the database enforced.
var ledgerGuards = map[string]string{
	"users_points_non_negative":         "balance_non_negative",
	"users_utorid_key":                  "unique_utorid",
	"users_email_key":                   "unique_email",
	"events_points_remain_non_negative": "event_budget_non_negative",
	"events_budget_balanced":            "event_budget_balanced",
	"events_capacity_positive":          "event_capacity",
	"events_window":                     "event_window",
	"promotions_window":                 "promotion_window",
	"promotion_usages_pkey":             "one_time_promotion_used",
	"transactions_spent_positive":       "purchase_spent_positive",
	"transactions_redemption_positive":  "redemption_positive",
	"outbox_dlq_event_id_key":           "dead_letter_once",
}

var sqliteConstraintPrefixes = []string{
	"CHECK constraint failed: ",
	"UNIQUE constraint failed: ",
}

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`

	// LedgerGuard is set when the failing constraint protects a balance,
	// budget or identity rule.
	LedgerGuard string `json:"ledger_guard,omitempty"`
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
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	default:
		d.PGConstraint = sqliteConstraint(d.Chain)
	}

	d.LedgerGuard = ledgerGuards[d.PGConstraint]
	return d
}

// sqliteConstraint pulls the constraint out of a sqlite error message. Unique
// failures name columns ("users.utorid"), which map onto the postgres key names.
func sqliteConstraint(chain []string) string {
	for _, link := range chain {
		for _, prefix := range sqliteConstraintPrefixes {
			i := strings.Index(link, prefix)
			if i < 0 {
				continue
			}
			name := strings.TrimSpace(link[i+len(prefix):])
			if j := strings.IndexAny(name, ", "); j >= 0 {
				name = name[:j]
			}
			if table, column, ok := strings.Cut(name, "."); ok {
				return table + "_" + column + "_key"
			}
			return name
		}
	}
	return ""
}
