// Package calculator computes expense splits and group balances. It is
// pure: no storage, no I/O, integer minor-unit arithmetic only.
package calculator

import (
	"sort"
	"strings"

	"divvy/internal/core"
)

// Share is one participant's computed portion of an expense total.
type Share struct {
	UserID string
	Amount core.Money
}

// EqualSplit divides total evenly among participants in the given order.
// base = total div N and the first total mod N participants get one extra
// minor unit, so the result sums to total exactly and the spread between the
// largest and smallest share is at most one minor unit.
func EqualSplit(total core.Money, participants []string) ([]Share, error) {
	if err := total.Validate(); err != nil {
		return nil, err
	}
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}

	n := int64(len(participants))
	base := total.Cents / n
	remainder := total.Cents % n

	shares := make([]Share, len(participants))
	for i, id := range participants {
		cents := base
		if int64(i) < remainder {
			cents++
		}
		shares[i] = Share{UserID: id, Amount: core.Money{Cents: cents}}
	}
	return shares, nil
}

// CustomSplit uses caller-declared amounts, one per participant. The
// declared amounts must cover exactly the participant list and sum to total
// exactly; any non-zero difference fails with SplitMismatchError.
func CustomSplit(total core.Money, participants []string, amounts map[string]core.Money) ([]Share, error) {
	if err := total.Validate(); err != nil {
		return nil, err
	}
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}
	if len(amounts) != len(participants) {
		return nil, &core.ValidationError{Field: "amounts", Reason: "one amount per participant is required"}
	}

	shares := make([]Share, len(participants))
	var declared core.Money
	for i, id := range participants {
		amount, ok := amounts[id]
		if !ok {
			return nil, &core.ValidationError{Field: "amounts", Reason: "missing amount for participant " + id}
		}
		if amount.IsNegative() {
			return nil, &core.ValidationError{Field: "amounts", Reason: "negative amount for participant " + id}
		}
		declared = declared.Add(amount)
		shares[i] = Share{UserID: id, Amount: amount}
	}

	if declared.Cmp(total) != 0 {
		return nil, &core.SplitMismatchError{Declared: declared, Total: total}
	}
	return shares, nil
}

// Rescale adjusts an existing split set proportionally to a new total.
// Each share becomes floor(share * newTotal / oldTotal); the units lost to
// flooring go to the shares with the largest division remainders, earlier
// stored positions winning ties. The result sums to newTotal exactly.
// Ratios are integer numerators throughout; no floating division occurs.
func Rescale(shares []Share, newTotal core.Money) ([]Share, error) {
	if err := newTotal.Validate(); err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return nil, core.ErrEmptyParticipants
	}

	var oldTotal core.Money
	for _, s := range shares {
		oldTotal = oldTotal.Add(s.Amount)
	}
	// Guaranteed positive by the create-time sum invariant; defensive here.
	if !oldTotal.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	scaled := make([]Share, len(shares))
	remainders := make([]int64, len(shares))
	allocated := int64(0)
	for i, s := range shares {
		num := s.Amount.Cents * newTotal.Cents // safe: both bounded by MaxCents
		cents := num / oldTotal.Cents
		remainders[i] = num % oldTotal.Cents
		scaled[i] = Share{UserID: s.UserID, Amount: core.Money{Cents: cents}}
		allocated += cents
	}

	// Distribute the flooring deficit one unit at a time, largest remainder
	// first, stored order breaking ties.
	deficit := newTotal.Cents - allocated
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for i := int64(0); i < deficit; i++ {
		scaled[order[i]].Amount.Cents++
	}

	return scaled, nil
}

// SharesFromSplits converts stored splits, in stored order, to shares.
func SharesFromSplits(splits []core.Split) []Share {
	shares := make([]Share, len(splits))
	for i, s := range splits {
		shares[i] = Share{UserID: s.UserID, Amount: s.Amount}
	}
	return shares
}

func validateParticipants(participants []string) error {
	if len(participants) == 0 {
		return core.ErrEmptyParticipants
	}
	seen := make(map[string]bool, len(participants))
	for _, id := range participants {
		if strings.TrimSpace(id) == "" {
			return &core.ValidationError{Field: "participants", Reason: "blank participant id"}
		}
		if seen[id] {
			return &core.ValidationError{Field: "participants", Reason: "duplicate participant " + id}
		}
		seen[id] = true
	}
	return nil
}
