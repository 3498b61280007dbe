package calculator

import "divvy/internal/core"

// MemberBalance is the signed net position of one group member.
// Positive = owed money, negative = owes money, zero = settled.
type MemberBalance struct {
	UserID string
	Net    core.Money
}

// GroupBalances folds the group's committed expenses into per-member net
// balances: what each member paid minus the split amounts attributed to
// them. Every member appears in the result, in the given order, including
// members with no activity. Because each expense credits its payer with
// exactly the sum it debits across splits, the returned balances always sum
// to zero.
func GroupBalances(memberIDs []string, expenses []core.Expense) []MemberBalance {
	net := make(map[string]core.Money, len(memberIDs))
	for _, id := range memberIDs {
		net[id] = core.Money{}
	}

	for _, e := range expenses {
		net[e.PaidBy] = net[e.PaidBy].Add(e.Amount)
		for _, s := range e.Splits {
			net[s.UserID] = net[s.UserID].Sub(s.Amount)
		}
	}

	balances := make([]MemberBalance, len(memberIDs))
	for i, id := range memberIDs {
		balances[i] = MemberBalance{UserID: id, Net: net[id]}
	}
	return balances
}

// UserNet extracts one member's net balance from a balance list, zero if the
// user is not present.
func UserNet(balances []MemberBalance, userID string) core.Money {
	for _, b := range balances {
		if b.UserID == userID {
			return b.Net
		}
	}
	return core.Money{}
}
