package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryGeneral        Category = "general"
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryAccommodation  Category = "accommodation"
	CategoryEntertainment  Category = "entertainment"
	CategoryUtilities      Category = "utilities"
	CategoryShopping       Category = "shopping"
	CategoryOther          Category = "other"
)

const (
	// SplitEqual divides the total evenly; the first total%N participants
	// absorb one extra minor unit each.
	SplitEqual SplitMode = "equal"
	// SplitCustom uses caller-declared per-participant amounts that must sum
	// to the total exactly.
	SplitCustom SplitMode = "custom"
)

const (
	// ExpenseActive is the only state an expense is ever observable in.
	// Deletion removes the rows; there is no soft-deleted state to resurrect.
	ExpenseActive ExpenseStatus = "active"
)

type (
	Category      string
	SplitMode     string
	ExpenseStatus string

	Date struct {
		time.Time
	}

	// Group is a set of users sharing expenses. It owns its memberships and
	// expenses; deleting a group cascades over both.
	Group struct {
		ID          string
		Name        string
		Description string
		CreatedBy   string
		MemberIDs   []string
		CreatedAt   time.Time
	}

	// Membership records that a user belongs to a group. Unique per
	// (group, user) pair.
	Membership struct {
		GroupID  string
		UserID   string
		JoinedAt time.Time
	}

	// Expense is one payment event by a payer on behalf of a subset of group
	// members. Splits are created with it atomically and always sum to
	// Amount exactly.
	Expense struct {
		ID          string
		GroupID     string
		PaidBy      string
		Description string
		Amount      Money
		Category    Category
		Date        Date
		Splits      []Split
		Version     int64
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// Split is one participant's attributed share of an expense. Position
	// preserves the creation order, which decides who absorbs remainder
	// units on equal splits and rescales.
	Split struct {
		ExpenseID string
		UserID    string
		Amount    Money
		Position  int
	}
)

// Categories lists every valid expense category.
func Categories() []Category {
	return []Category{
		CategoryGeneral, CategoryFood, CategoryTransportation,
		CategoryAccommodation, CategoryEntertainment, CategoryUtilities,
		CategoryShopping, CategoryOther,
	}
}

func (c Category) Validate() error {
	for _, known := range Categories() {
		if c == known {
			return nil
		}
	}
	return &ValidationError{Field: "category", Reason: "unknown category " + string(c)}
}

func (m SplitMode) Validate() error {
	switch m {
	case SplitEqual, SplitCustom:
		return nil
	}
	return &ValidationError{Field: "split_mode", Reason: "unknown split mode " + string(m)}
}

// NewDate creates a new Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

func (g Group) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return &ValidationError{Field: "name", Reason: "group name cannot be empty"}
	}
	if len(g.Name) > 100 {
		return &ValidationError{Field: "name", Reason: "group name too long (max 100 characters)"}
	}
	if len(g.Description) > 500 {
		return &ValidationError{Field: "description", Reason: "description too long (max 500 characters)"}
	}
	if strings.TrimSpace(g.CreatedBy) == "" {
		return &ValidationError{Field: "created_by", Reason: "creator id cannot be empty"}
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.GroupID) == "" {
		return &ValidationError{Field: "group_id", Reason: "group id cannot be empty"}
	}
	if strings.TrimSpace(e.PaidBy) == "" {
		return &ValidationError{Field: "paid_by", Reason: "payer id cannot be empty"}
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return &ValidationError{Field: "description", Reason: "description too long (max 200 characters)"}
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Category.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// SplitTotal sums the expense's splits. After every committed mutation this
// equals Amount exactly.
func (e Expense) SplitTotal() Money {
	var total Money
	for _, s := range e.Splits {
		total = total.Add(s.Amount)
	}
	return total
}

func (s Split) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return &ValidationError{Field: "user_id", Reason: "split user id cannot be empty"}
	}
	if s.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "split amount cannot be negative"}
	}
	return nil
}
