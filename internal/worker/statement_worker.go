// Package worker exports committed ledger mutations to the external
// statement.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"divvy/internal/amqp"
	"divvy/internal/core"
	"divvy/internal/sheets"
	"divvy/internal/storage"
)

// StatementWorker turns ledger events into statement rows. For recorded and
// rescaled events it re-reads the expense from the store; deleted events
// carry a snapshot in the message, since the rows are already gone.
type StatementWorker struct {
	store    storage.Store
	appender sheets.StatementAppender
}

func NewStatementWorker(store storage.Store, appender sheets.StatementAppender) *StatementWorker {
	return &StatementWorker{
		store:    store,
		appender: appender,
	}
}

// Handle processes one ledger event. Returning an error requeues the
// message.
func (w *StatementWorker) Handle(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"action", msg.Action,
		"expense_id", msg.ExpenseID,
		"version", msg.Version)

	switch msg.Action {
	case amqp.ActionRecorded, amqp.ActionRescaled:
		return w.exportExpense(ctx, msg)
	case amqp.ActionDeleted:
		return w.exportReversal(ctx, msg)
	default:
		// Unknown actions are dropped, not requeued.
		slog.WarnContext(ctx, "Skipping ledger event with unknown action", "action", msg.Action)
		return nil
	}
}

func (w *StatementWorker) exportExpense(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	expense, err := w.store.GetExpense(ctx, msg.ExpenseID)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	// The event may be stale if the expense was edited again before this
	// delivery. Export the committed state; the later event re-exports it.
	row := sheets.StatementRow{
		Date:        expense.Date.Format("2006-01-02"),
		Action:      msg.Action,
		ExpenseID:   expense.ID,
		GroupID:     expense.GroupID,
		PaidBy:      expense.PaidBy,
		Description: expense.Description,
		Amount:      expense.Amount.String(),
		Version:     expense.Version,
	}

	ref, err := w.appender.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append statement row: %w", err)
	}

	slog.InfoContext(ctx, "Exported statement row",
		"action", msg.Action,
		"expense_id", expense.ID,
		"ref", ref)
	return nil
}

func (w *StatementWorker) exportReversal(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	reversal := core.Money{Cents: msg.AmountCents}.Neg()

	row := sheets.StatementRow{
		Date:        msg.Timestamp.Format("2006-01-02"),
		Action:      msg.Action,
		ExpenseID:   msg.ExpenseID,
		GroupID:     msg.GroupID,
		PaidBy:      msg.PaidBy,
		Description: msg.Description,
		Amount:      reversal.String(),
		Version:     msg.Version,
	}

	ref, err := w.appender.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append reversal row: %w", err)
	}

	slog.InfoContext(ctx, "Exported reversal row",
		"expense_id", msg.ExpenseID,
		"ref", ref)
	return nil
}
