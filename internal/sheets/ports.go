// Package sheets defines the ports for the statement export. Adapters live
// in subpackages.
package sheets

import "context"

// StatementRow is one line of the exported statement. Amounts are signed
// decimal strings; deletions export the reversal of the original amount.
type StatementRow struct {
	Date        string
	Action      string
	ExpenseID   string
	GroupID     string
	PaidBy      string
	Description string
	Amount      string
	Version     int64
}

// StatementAppender appends statement rows to an external statement sink.
// Append returns an opaque reference to the written row.
type StatementAppender interface {
	Append(ctx context.Context, row StatementRow) (string, error)
}
