package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Proposal status enum. Declined, completed and cancelled are terminal.
const (
	ProposalStatusWaiting   = "waiting"
	ProposalStatusAccepted  = "accepted"
	ProposalStatusDeclined  = "declined"
	ProposalStatusCompleted = "completed"
	ProposalStatusCancelled = "cancelled"
)

// validTransitions is the full transition table for the proposal state
// machine. Completion is never requested directly: it is driven by the
// approval gate once both parties have signed off.
var validTransitions = map[string][]string{
	ProposalStatusWaiting:  {ProposalStatusAccepted, ProposalStatusDeclined},
	ProposalStatusAccepted: {ProposalStatusCompleted, ProposalStatusCancelled},
}

// CanTransition reports whether a proposal may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a proposal status admits no further
// transitions.
func IsTerminalStatus(status string) bool {
	return len(validTransitions[status]) == 0
}

type Proposal struct {
	ID                uuid.UUID       `json:"id"`
	PostID            uuid.UUID       `json:"post_id"`
	RequesterID       uuid.UUID       `json:"requester_id"`
	ProviderID        uuid.UUID       `json:"provider_id"`
	Rate              decimal.Decimal `json:"rate"`
	Status            string          `json:"status"`
	ProviderApproved  bool            `json:"provider_approved"`
	RequesterApproved bool            `json:"requester_approved"`
	Message           string          `json:"message,omitempty"`
	ProposedDate      *time.Time      `json:"proposed_date,omitempty"`
	ProposedLocation  string          `json:"proposed_location,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsParticipant reports whether the given account is a party to the proposal.
func (p *Proposal) IsParticipant(accountID uuid.UUID) bool {
	return accountID == p.RequesterID || accountID == p.ProviderID
}

// Counterparty returns the other participant, or uuid.Nil for non-participants.
func (p *Proposal) Counterparty(accountID uuid.UUID) uuid.UUID {
	switch accountID {
	case p.RequesterID:
		return p.ProviderID
	case p.ProviderID:
		return p.RequesterID
	}
	return uuid.Nil
}
