package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"divvy/internal/core"
)

const dateLayout = "2006-01-02"

// RecordExpense writes the expense and its splits as one atomic unit. The
// expense is never observable with zero or partial splits.
func (r *SQLiteRepository) RecordExpense(ctx context.Context, expense *core.Expense) error {
	if err := expense.Validate(); err != nil {
		return err
	}
	if len(expense.Splits) == 0 {
		return core.ErrEmptyParticipants
	}
	if total := expense.SplitTotal(); total.Cmp(expense.Amount) != 0 {
		return &core.SplitMismatchError{Declared: total, Total: expense.Amount}
	}

	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = expense.CreatedAt
	expense.Version = 1

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	members, err := r.groupMembers(ctx, tx, expense.GroupID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		// A committed group always has at least its creator enrolled.
		return fmt.Errorf("group %s: %w", expense.GroupID, core.ErrNotFound)
	}
	memberSet := make(map[string]bool, len(members))
	for _, id := range members {
		memberSet[id] = true
	}
	if !memberSet[expense.PaidBy] {
		return fmt.Errorf("payer %s: %w", expense.PaidBy, core.ErrNotAMember)
	}
	for _, s := range expense.Splits {
		if err := s.Validate(); err != nil {
			return err
		}
		if !memberSet[s.UserID] {
			return fmt.Errorf("participant %s: %w", s.UserID, core.ErrNotAMember)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, paid_by, description, amount_cents, category, spent_on, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.PaidBy, expense.Description,
		expense.Amount.Cents, string(expense.Category), expense.Date.Format(dateLayout),
		expense.Version, expense.CreatedAt.Unix(), expense.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	for i := range expense.Splits {
		expense.Splits[i].ExpenseID = expense.ID
		expense.Splits[i].Position = i
		_, err = tx.ExecContext(ctx,
			"INSERT INTO splits (expense_id, user_id, amount_cents, position) VALUES (?, ?, ?, ?)",
			expense.ID, expense.Splits[i].UserID, expense.Splits[i].Amount.Cents, i,
		)
		if err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"paid_by", expense.PaidBy,
		"amount_cents", expense.Amount.Cents,
		"splits", len(expense.Splits))

	return nil
}

// GetExpense retrieves an expense with its splits in stored order.
func (r *SQLiteRepository) GetExpense(ctx context.Context, expenseID string) (*core.Expense, error) {
	return r.getExpense(ctx, r.db, expenseID)
}

type rowQuerier interface {
	querier
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepository) getExpense(ctx context.Context, q rowQuerier, expenseID string) (*core.Expense, error) {
	expense := &core.Expense{}
	var (
		category             string
		spentOn              string
		createdAt, updatedAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, group_id, paid_by, description, amount_cents, category, spent_on, version, created_at, updated_at
		 FROM expenses WHERE id = ?`,
		expenseID,
	).Scan(&expense.ID, &expense.GroupID, &expense.PaidBy, &expense.Description,
		&expense.Amount.Cents, &category, &spentOn, &expense.Version, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}

	expense.Category = core.Category(category)
	expense.CreatedAt = time.Unix(createdAt, 0).UTC()
	expense.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	day, err := time.Parse(dateLayout, spentOn)
	if err != nil {
		return nil, fmt.Errorf("parse expense date %q: %w", spentOn, err)
	}
	expense.Date = core.Date{Time: day}

	splits, err := r.expenseSplits(ctx, q, expenseID)
	if err != nil {
		return nil, err
	}
	expense.Splits = splits

	return expense, nil
}

// ReplaceExpenseSplits swaps the amount and the whole split set in one
// transaction, guarded by a version compare-and-swap so two concurrent
// edits cannot interleave their row writes.
func (r *SQLiteRepository) ReplaceExpenseSplits(ctx context.Context, expenseID string, expectedVersion int64, newAmount core.Money, splits []core.Split) (*core.Expense, error) {
	if err := newAmount.Validate(); err != nil {
		return nil, err
	}
	if len(splits) == 0 {
		return nil, core.ErrEmptyParticipants
	}
	var total core.Money
	for _, s := range splits {
		total = total.Add(s.Amount)
	}
	if total.Cmp(newAmount) != 0 {
		return nil, &core.SplitMismatchError{Declared: total, Total: newAmount}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"UPDATE expenses SET amount_cents = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?",
		newAmount.Cents, now.Unix(), expenseID, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update expense amount: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		err = tx.QueryRowContext(ctx, "SELECT 1 FROM expenses WHERE id = ?", expenseID).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("expense %s: %w", expenseID, core.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("check expense: %w", err)
		}
		return nil, fmt.Errorf("expense %s version %d: %w", expenseID, expectedVersion, core.ErrConcurrencyConflict)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM splits WHERE expense_id = ?", expenseID); err != nil {
		return nil, fmt.Errorf("delete old splits: %w", err)
	}
	for i, s := range splits {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO splits (expense_id, user_id, amount_cents, position) VALUES (?, ?, ?, ?)",
			expenseID, s.UserID, s.Amount.Cents, i,
		)
		if err != nil {
			return nil, fmt.Errorf("insert split: %w", err)
		}
	}

	expense, err := r.getExpense(ctx, tx, expenseID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Expense rescaled",
		"expense_id", expenseID,
		"amount_cents", newAmount.Cents,
		"version", expense.Version)

	return expense, nil
}

// DeleteExpense removes the expense row; splits cascade.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", expenseID)
	return nil
}

// ListGroupExpenses returns the group's expenses with splits, oldest first.
func (r *SQLiteRepository) ListGroupExpenses(ctx context.Context, groupID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM expenses WHERE group_id = ? ORDER BY created_at, id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list group expenses: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expense id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	expenses := make([]core.Expense, 0, len(ids))
	for _, id := range ids {
		e, err := r.getExpense(ctx, r.db, id)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, nil
}

func (r *SQLiteRepository) expenseSplits(ctx context.Context, q querier, expenseID string) ([]core.Split, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT expense_id, user_id, amount_cents, position FROM splits WHERE expense_id = ? ORDER BY position",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("get splits: %w", err)
	}
	defer rows.Close()

	var splits []core.Split
	for rows.Next() {
		var s core.Split
		if err := rows.Scan(&s.ExpenseID, &s.UserID, &s.Amount.Cents, &s.Position); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		splits = append(splits, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate splits: %w", err)
	}
	return splits, nil
}
