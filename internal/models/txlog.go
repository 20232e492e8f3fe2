package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction log entry_type values. The log is append-only: one entry per
// balance movement, never updated.
const (
	TxEntryDepositCredit = "deposit_credit"
)

type TxLogEntry struct {
	ID           uuid.UUID `json:"id"`
	UserID       int64     `json:"user_id"`
	ClaimID      *string   `json:"claim_id,omitempty"`
	EntryType    string    `json:"entry_type"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}
