package amqp

import (
	"encoding/json"
	"time"
)

// Event actions published after a committed ledger mutation.
const (
	ActionRecorded = "recorded"
	ActionRescaled = "rescaled"
	ActionDeleted  = "deleted"
)

// LedgerEventMessage announces one committed expense mutation. For recorded
// and rescaled events the worker re-reads the expense from the ledger; for
// deleted events the rows are gone, so the message carries a snapshot of
// what was removed.
type LedgerEventMessage struct {
	Action      string    `json:"action"`
	ExpenseID   string    `json:"expense_id"`
	GroupID     string    `json:"group_id"`
	Version     int64     `json:"version"`
	PaidBy      string    `json:"paid_by,omitempty"`
	Description string    `json:"description,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event for a live expense.
func NewLedgerEventMessage(action, expenseID, groupID string, version int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Action:    action,
		ExpenseID: expenseID,
		GroupID:   groupID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
