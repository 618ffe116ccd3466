package models

import (
	"time"

	"github.com/google/uuid"
)

// Post type determines payment direction for proposals made against it:
// an offer is paid for by the requester, a need is paid for by the provider.
// The post owner is the provider in both cases.
const (
	PostTypeOffer = "offer"
	PostTypeNeed  = "need"
)

type Post struct {
	ID          uuid.UUID `json:"id"`
	PostedBy    uuid.UUID `json:"posted_by"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PostType    string    `json:"post_type"`
	Location    string    `json:"location,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PayerPayee returns which side of a proposal pays and which is paid,
// given the post's type.
func (p *Post) PayerPayee(requesterID, providerID uuid.UUID) (payer, payee uuid.UUID) {
	if p.PostType == PostTypeNeed {
		return providerID, requesterID
	}
	return requesterID, providerID
}
