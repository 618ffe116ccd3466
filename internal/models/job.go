package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Job status enum. Jobs are monotonic: waiting moves to completed or
// cancelled and never back.
const (
	JobStatusWaiting   = "waiting"
	JobStatusCompleted = "completed"
	JobStatusCancelled = "cancelled"
)

// Cancellation reasons recorded on the job decline path. A no-show
// forfeits the staked hours to the counterparty; anything else refunds
// the payer.
const (
	CancellationNotShowedUp = "not_showed_up"
	CancellationOther       = "other"
)

// NormalizeCancellationReason maps unknown or empty reasons to "other".
func NormalizeCancellationReason(reason string) string {
	if reason == CancellationNotShowedUp {
		return reason
	}
	return CancellationOther
}

// Job is the materialized transaction created when a proposal is accepted.
// Requester, provider and rate are denormalized from the proposal at
// creation time so the record stays meaningful as history.
type Job struct {
	ID                 uuid.UUID       `json:"id"`
	ProposalID         uuid.UUID       `json:"proposal_id"`
	PostID             uuid.UUID       `json:"post_id"`
	RequesterID        uuid.UUID       `json:"requester_id"`
	ProviderID         uuid.UUID       `json:"provider_id"`
	Rate               decimal.Decimal `json:"rate"`
	Status             string          `json:"status"`
	CancelledBy        *uuid.UUID      `json:"cancelled_by,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
