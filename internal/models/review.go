package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRating is returned when a rating falls outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Review is a one-sided rating left after a job completes or is cancelled.
// At most one review per (proposal, reviewer).
type Review struct {
	ID             uuid.UUID `json:"id"`
	ProposalID     uuid.UUID `json:"proposal_id"`
	ReviewerID     uuid.UUID `json:"reviewer_id"`
	ReviewedUserID uuid.UUID `json:"reviewed_user_id"`
	Friendliness   int       `json:"friendliness"`
	TimeManagement int       `json:"time_management"`
	Reliability    int       `json:"reliability"`
	Communication  int       `json:"communication"`
	WorkQuality    int       `json:"work_quality"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Validate checks all five ratings are in range.
func (r *Review) Validate() error {
	ratings := map[string]int{
		"friendliness":    r.Friendliness,
		"time_management": r.TimeManagement,
		"reliability":     r.Reliability,
		"communication":   r.Communication,
		"work_quality":    r.WorkQuality,
	}
	for name, v := range ratings {
		if v < 1 || v > 5 {
			return fmt.Errorf("%s: %w", name, ErrInvalidRating)
		}
	}
	return nil
}

// ReviewAverages aggregates all reviews received by a user.
type ReviewAverages struct {
	Count          int     `json:"count"`
	Friendliness   float64 `json:"friendliness"`
	TimeManagement float64 `json:"time_management"`
	Reliability    float64 `json:"reliability"`
	Communication  float64 `json:"communication"`
	WorkQuality    float64 `json:"work_quality"`
}
