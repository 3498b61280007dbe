// Package storage owns the persistent ledger: groups, memberships,
// expenses and splits, with the referential and sum invariants enforced at
// the transaction boundary.
package storage

import (
	"context"

	"divvy/internal/core"
)

// Store is the transactional ledger interface. Every mutating operation is
// all-or-nothing: an expense and its splits commit together or not at all,
// and a failure leaves previously committed state untouched.
type Store interface {
	// CreateGroup persists a new group and auto-enrolls the creator as its
	// first member in the same transaction. The group's ID is populated.
	CreateGroup(ctx context.Context, group *core.Group) error

	// GetGroup returns a group with its member ids, or core.ErrNotFound.
	GetGroup(ctx context.Context, groupID string) (*core.Group, error)

	// DeleteGroup removes a group; its memberships and expenses (and their
	// splits) go with it via cascade.
	DeleteGroup(ctx context.Context, groupID string) error

	// AddMember enrolls a user into a group. Fails with core.ErrNotFound if
	// the group is absent and core.ErrAlreadyMember on a duplicate pair.
	AddMember(ctx context.Context, groupID, userID string) (*core.Membership, error)

	// ListUserGroups returns the ids of every group the user belongs to.
	ListUserGroups(ctx context.Context, userID string) ([]string, error)

	// RecordExpense writes the expense row and all split rows as one atomic
	// unit. It re-checks the invariants: payer and every split participant
	// must be group members (core.ErrNotAMember) and the splits must sum to
	// the amount exactly (core.SplitMismatchError).
	RecordExpense(ctx context.Context, expense *core.Expense) error

	// GetExpense returns an expense with its splits in stored order.
	GetExpense(ctx context.Context, expenseID string) (*core.Expense, error)

	// ReplaceExpenseSplits atomically sets a new amount and swaps the whole
	// split set, guarded by a version compare-and-swap: if the stored
	// version differs from expectedVersion another edit won and
	// core.ErrConcurrencyConflict is returned.
	ReplaceExpenseSplits(ctx context.Context, expenseID string, expectedVersion int64, newAmount core.Money, splits []core.Split) (*core.Expense, error)

	// DeleteExpense removes the expense; split rows cascade. Terminal.
	DeleteExpense(ctx context.Context, expenseID string) error

	// ListGroupExpenses returns the group's expenses, splits included,
	// oldest first.
	ListGroupExpenses(ctx context.Context, groupID string) ([]core.Expense, error)

	// Close releases the underlying database resources.
	Close() error
}
