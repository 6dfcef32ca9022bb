package events

import (
	"encoding/json"
	"time"
)

// Event kinds published on the ledger stream.
const (
	KindTransactionCreated = "transaction.created"
	KindTransactionDeleted = "transaction.deleted"
	KindBudgetDeleted      = "budget.deleted"
)

// LedgerEvent is a lightweight notification: consumers that need the
// full record fetch it by ID, so the payload stays stable as the schema
// evolves.
type LedgerEvent struct {
	Kind      string    `json:"kind"`
	BudgetID  int64     `json:"budget_id"`
	EntityID  int64     `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
