// Package services orchestrates ledger mutations: each operation validates
// first, commits through the store as one atomic unit, then announces the
// result on the event stream.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"divvy/internal/amqp"
	"divvy/internal/calculator"
	"divvy/internal/core"
	"divvy/internal/storage"
)

// LedgerService coordinates the split calculator, the ledger store and the
// event publisher. The publisher may be nil; events are then skipped.
type LedgerService struct {
	store  storage.Store
	events *amqp.Client
}

func NewLedgerService(store storage.Store, events *amqp.Client) *LedgerService {
	return &LedgerService{
		store:  store,
		events: events,
	}
}

// RecordExpenseInput carries everything needed to record one expense.
type RecordExpenseInput struct {
	GroupID     string
	PaidBy      string
	Description string
	Amount      core.Money
	Category    core.Category
	Date        core.Date
	// Participants is ordered; on equal splits the first Amount mod N
	// participants absorb the remainder units.
	Participants  []string
	SplitMode     core.SplitMode
	CustomAmounts map[string]core.Money
}

// CreateGroup creates a group with the creator enrolled as first member.
func (s *LedgerService) CreateGroup(ctx context.Context, name, description, creatorID string) (*core.Group, error) {
	group := &core.Group{
		Name:        name,
		Description: description,
		CreatedBy:   creatorID,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// GetGroup returns a group with its member ids.
func (s *LedgerService) GetGroup(ctx context.Context, groupID string) (*core.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

// DeleteGroup removes a group with its memberships, expenses and splits.
// Only the creator may delete.
func (s *LedgerService) DeleteGroup(ctx context.Context, groupID, editorID string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.CreatedBy != editorID {
		return fmt.Errorf("editor %s on group %s: %w", editorID, groupID, core.ErrForbidden)
	}
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// AddMember enrolls a user into a group. The identity provider vouches for
// the user id; the ledger only guards group existence and pair uniqueness.
func (s *LedgerService) AddMember(ctx context.Context, groupID, userID string) (*core.Membership, error) {
	return s.store.AddMember(ctx, groupID, userID)
}

// RecordExpense computes the splits for the requested mode and commits the
// expense with its full split set in one atomic operation. There is no
// draft state: the expense is either fully present or absent.
func (s *LedgerService) RecordExpense(ctx context.Context, in RecordExpenseInput) (*core.Expense, error) {
	if err := in.SplitMode.Validate(); err != nil {
		return nil, err
	}

	var (
		shares []calculator.Share
		err    error
	)
	switch in.SplitMode {
	case core.SplitCustom:
		shares, err = calculator.CustomSplit(in.Amount, in.Participants, in.CustomAmounts)
	default:
		shares, err = calculator.EqualSplit(in.Amount, in.Participants)
	}
	if err != nil {
		return nil, err
	}

	expense := &core.Expense{
		GroupID:     in.GroupID,
		PaidBy:      in.PaidBy,
		Description: in.Description,
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
		Splits:      splitsFromShares(shares),
	}

	if err := s.store.RecordExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("record expense: %w", err)
	}

	s.publishEvent(ctx, amqp.NewLedgerEventMessage(amqp.ActionRecorded, expense.ID, expense.GroupID, expense.Version))

	return expense, nil
}

// GetExpense returns an expense with its splits.
func (s *LedgerService) GetExpense(ctx context.Context, expenseID string) (*core.Expense, error) {
	return s.store.GetExpense(ctx, expenseID)
}

// UpdateExpenseAmount rescales every split proportionally to the new amount
// and replaces the split set atomically. Only the payer may edit, and the
// new amount is validated before anything is read or written.
func (s *LedgerService) UpdateExpenseAmount(ctx context.Context, expenseID string, newAmount core.Money, editorID string) (*core.Expense, error) {
	if err := newAmount.Validate(); err != nil {
		return nil, err
	}

	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.PaidBy != editorID {
		return nil, fmt.Errorf("editor %s on expense %s: %w", editorID, expenseID, core.ErrForbidden)
	}

	scaled, err := calculator.Rescale(calculator.SharesFromSplits(expense.Splits), newAmount)
	if err != nil {
		return nil, fmt.Errorf("rescale splits: %w", err)
	}

	updated, err := s.store.ReplaceExpenseSplits(ctx, expenseID, expense.Version, newAmount, splitsFromShares(scaled))
	if err != nil {
		return nil, fmt.Errorf("replace splits: %w", err)
	}

	s.publishEvent(ctx, amqp.NewLedgerEventMessage(amqp.ActionRescaled, updated.ID, updated.GroupID, updated.Version))

	return updated, nil
}

// DeleteExpense removes the expense and its splits. Terminal: every
// member's balance returns to its pre-expense value.
func (s *LedgerService) DeleteExpense(ctx context.Context, expenseID, editorID string) error {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if expense.PaidBy != editorID {
		return fmt.Errorf("editor %s on expense %s: %w", editorID, expenseID, core.ErrForbidden)
	}

	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	// The rows are gone, so the event carries a snapshot for the worker.
	msg := amqp.NewLedgerEventMessage(amqp.ActionDeleted, expense.ID, expense.GroupID, expense.Version)
	msg.PaidBy = expense.PaidBy
	msg.Description = expense.Description
	msg.AmountCents = expense.Amount.Cents
	s.publishEvent(ctx, msg)

	return nil
}

// GroupBalances recomputes the group's per-member net balances from the
// committed state. No caching: every call reflects the latest commit.
func (s *LedgerService) GroupBalances(ctx context.Context, groupID string) ([]calculator.MemberBalance, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group expenses: %w", err)
	}
	return calculator.GroupBalances(group.MemberIDs, expenses), nil
}

// UserAggregateBalance sums the user's net balance over every group they
// belong to.
func (s *LedgerService) UserAggregateBalance(ctx context.Context, userID string) (core.Money, error) {
	groupIDs, err := s.store.ListUserGroups(ctx, userID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list user groups: %w", err)
	}

	var total core.Money
	for _, groupID := range groupIDs {
		balances, err := s.GroupBalances(ctx, groupID)
		if err != nil {
			return core.Money{}, err
		}
		total = total.Add(calculator.UserNet(balances, userID))
	}
	return total, nil
}

// publishEvent announces a committed mutation. Best-effort: the mutation
// already committed, so a publish failure is logged, never surfaced.
func (s *LedgerService) publishEvent(ctx context.Context, msg *amqp.LedgerEventMessage) {
	if s.events == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping ledger event", "action", msg.Action)
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"action", msg.Action,
			"expense_id", msg.ExpenseID,
			"error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}

func splitsFromShares(shares []calculator.Share) []core.Split {
	splits := make([]core.Split, len(shares))
	for i, sh := range shares {
		splits[i] = core.Split{UserID: sh.UserID, Amount: sh.Amount, Position: i}
	}
	return splits
}
