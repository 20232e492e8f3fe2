package models

import "time"

// Deposit claim statuses. A claim is decided exactly once: pending is the only
// non-terminal state.
const (
	DepositPending  = "pending"
	DepositApproved = "approved"
	DepositRejected = "rejected"
)

type DepositClaim struct {
	ClaimID   string     `json:"claim_id"`
	UserID    int64      `json:"user_id"`
	Amount    int64      `json:"amount"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}
