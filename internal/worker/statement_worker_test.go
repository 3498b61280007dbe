package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"divvy/internal/amqp"
	"divvy/internal/core"
	"divvy/internal/sheets"
	"divvy/internal/storage"
)

type fakeAppender struct {
	rows []sheets.StatementRow
}

func (f *fakeAppender) Append(_ context.Context, row sheets.StatementRow) (string, error) {
	f.rows = append(f.rows, row)
	return "row-1", nil
}

func setupWorker(t *testing.T) (*StatementWorker, *storage.SQLiteRepository, *fakeAppender) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	appender := &fakeAppender{}
	return NewStatementWorker(repo, appender), repo, appender
}

func recordedExpense(t *testing.T, repo *storage.SQLiteRepository) *core.Expense {
	t.Helper()
	ctx := context.Background()
	group := &core.Group{Name: "Trip", CreatedBy: "alice"}
	if err := repo.CreateGroup(ctx, group); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.AddMember(ctx, group.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	expense := &core.Expense{
		GroupID:     group.ID,
		PaidBy:      "alice",
		Description: "hotel",
		Amount:      core.Money{Cents: 9000},
		Category:    core.CategoryAccommodation,
		Date:        core.NewDate(2026, 3, 14),
		Splits: []core.Split{
			{UserID: "alice", Amount: core.Money{Cents: 4500}},
			{UserID: "bob", Amount: core.Money{Cents: 4500}},
		},
	}
	if err := repo.RecordExpense(ctx, expense); err != nil {
		t.Fatal(err)
	}
	return expense
}

func TestHandleRecordedExportsCommittedState(t *testing.T) {
	w, repo, appender := setupWorker(t)
	expense := recordedExpense(t, repo)

	msg := amqp.NewLedgerEventMessage(amqp.ActionRecorded, expense.ID, expense.GroupID, expense.Version)
	if err := w.Handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	if len(appender.rows) != 1 {
		t.Fatalf("got %d rows", len(appender.rows))
	}
	row := appender.rows[0]
	if row.ExpenseID != expense.ID || row.Amount != "90.00" || row.Action != amqp.ActionRecorded {
		t.Errorf("row wrong: %+v", row)
	}
	if row.Date != "2026-03-14" {
		t.Errorf("date: got %q", row.Date)
	}
}

func TestHandleRecordedMissingExpenseRequeues(t *testing.T) {
	w, _, appender := setupWorker(t)

	msg := amqp.NewLedgerEventMessage(amqp.ActionRecorded, "missing", "grp", 1)
	if err := w.Handle(context.Background(), msg); err == nil {
		t.Error("expected error for missing expense")
	}
	if len(appender.rows) != 0 {
		t.Errorf("rows appended on failure: %d", len(appender.rows))
	}
}

func TestHandleDeletedExportsReversalFromSnapshot(t *testing.T) {
	w, _, appender := setupWorker(t)

	msg := amqp.NewLedgerEventMessage(amqp.ActionDeleted, "exp-1", "grp-1", 2)
	msg.PaidBy = "alice"
	msg.Description = "hotel"
	msg.AmountCents = 9000
	msg.Timestamp = time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)

	if err := w.Handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	if len(appender.rows) != 1 {
		t.Fatalf("got %d rows", len(appender.rows))
	}
	row := appender.rows[0]
	if row.Amount != "-90.00" {
		t.Errorf("reversal amount: got %q", row.Amount)
	}
	if row.Date != "2026-03-20" || row.PaidBy != "alice" {
		t.Errorf("snapshot fields wrong: %+v", row)
	}
}

func TestHandleUnknownActionDropped(t *testing.T) {
	w, _, appender := setupWorker(t)

	msg := amqp.NewLedgerEventMessage("exploded", "exp-1", "grp-1", 1)
	if err := w.Handle(context.Background(), msg); err != nil {
		t.Errorf("unknown action should not requeue: %v", err)
	}
	if len(appender.rows) != 0 {
		t.Errorf("rows appended: %d", len(appender.rows))
	}
}
