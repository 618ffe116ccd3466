package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance bounds for every account. Balances live in NUMERIC(5,2) and are
// mutated only through the ledger service, never written directly by handlers.
var (
	// StartingBonus is granted once at registration.
	StartingBonus = decimal.RequireFromString("3.00")
	// BalanceCeiling is the hard upper bound on any balance.
	BalanceCeiling = decimal.RequireFromString("10.00")
)

type Account struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	DisplayName  string          `json:"display_name"`
	Avatar       string          `json:"avatar,omitempty"`
	PasswordHash string          `json:"-"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
