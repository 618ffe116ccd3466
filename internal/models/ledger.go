package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Time ledger entry types. Every balance mutation writes exactly one entry.
const (
	EntryDebit           = "debit"            // payer staked hours on acceptance
	EntryRefund          = "refund"           // stake returned to the payer
	EntryPayout          = "payout"           // stake paid to the payee on completion
	EntryPenaltyTransfer = "penalty_transfer" // stake forfeited to the counterparty (no-show)
	EntrySignupBonus     = "signup_bonus"     // registration grant
)

type TimeEntry struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	ProposalID   *uuid.UUID      `json:"proposal_id,omitempty"`
	EntryType    string          `json:"entry_type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
