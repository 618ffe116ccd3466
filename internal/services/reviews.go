package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/thehive/timebank/internal/models"
)

var (
	// ErrAlreadyReviewed is returned on a second review for the same
	// (proposal, reviewer) pair.
	ErrAlreadyReviewed = errors.New("already reviewed this proposal")
	// ErrReviewNotAvailable is returned while the actor is still blocked
	// waiting on the job (neither approved nor the one who cancelled it).
	ErrReviewNotAvailable = errors.New("review not available yet")
	// ErrWrongReviewDirection is returned when the actor sits on the side
	// that does not review for this post type.
	ErrWrongReviewDirection = errors.New("this side does not review for this post type")
)

// ReviewStore is the review persistence surface.
type ReviewStore interface {
	Create(ctx context.Context, rev *models.Review) error
	ExistsByProposalAndReviewer(ctx context.Context, proposalID, reviewerID uuid.UUID) (bool, error)
	ListByReviewedUser(ctx context.Context, userID uuid.UUID) ([]*models.Review, error)
	AveragesByReviewedUser(ctx context.Context, userID uuid.UUID) (*models.ReviewAverages, error)
}

// JobLookup resolves a proposal's job for the cancelled-by check.
type JobLookup interface {
	GetByProposalID(ctx context.Context, proposalID uuid.UUID) (*models.Job, error)
}

// ProposalLookup resolves proposals outside a transaction.
type ProposalLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
}

// Ratings carries the five category scores and optional comment of a review
// request.
type Ratings struct {
	Friendliness   int
	TimeManagement int
	Reliability    int
	Communication  int
	WorkQuality    int
	Comment        string
}

// Reviews gates and creates post-job reviews. Reviews never touch the
// ledger; they only depend on lifecycle state.
type Reviews struct {
	proposals ProposalLookup
	jobs      JobLookup
	posts     PostLookup
	store     ReviewStore
}

func NewReviews(proposals ProposalLookup, jobs JobLookup, posts PostLookup, store ReviewStore) *Reviews {
	return &Reviews{proposals: proposals, jobs: jobs, posts: posts, store: store}
}

// CanReview reports whether the actor may review on this proposal: they must
// be a participant who either approved their side or cancelled the job.
// Participants merely blocked waiting cannot review.
func (s *Reviews) CanReview(ctx context.Context, p *models.Proposal, actorID uuid.UUID) bool {
	if !p.IsParticipant(actorID) {
		return false
	}
	if actorID == p.ProviderID && p.ProviderApproved {
		return true
	}
	if actorID == p.RequesterID && p.RequesterApproved {
		return true
	}
	job, err := s.jobs.GetByProposalID(ctx, p.ID)
	if err != nil {
		return false
	}
	return job.CancelledBy != nil && *job.CancelledBy == actorID
}

// Create validates and stores a review. The reviewed user is derived from
// the post type: on an offer the requester reviews the provider, on a need
// the provider reviews the requester. Any other combination is rejected.
func (s *Reviews) Create(ctx context.Context, proposalID, actorID uuid.UUID, ratings Ratings) (*models.Review, error) {
	p, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !p.IsParticipant(actorID) {
		return nil, ErrNotParticipant
	}

	post, err := s.posts.GetByID(ctx, p.PostID)
	if err != nil {
		return nil, err
	}
	var reviewedID uuid.UUID
	switch {
	case post.PostType == models.PostTypeOffer && actorID == p.RequesterID:
		reviewedID = p.ProviderID
	case post.PostType == models.PostTypeNeed && actorID == p.ProviderID:
		reviewedID = p.RequesterID
	default:
		return nil, fmt.Errorf("%w (%s post)", ErrWrongReviewDirection, post.PostType)
	}

	if !s.CanReview(ctx, p, actorID) {
		return nil, ErrReviewNotAvailable
	}

	exists, err := s.store.ExistsByProposalAndReviewer(ctx, proposalID, actorID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyReviewed
	}

	rev := &models.Review{
		ID:             uuid.New(),
		ProposalID:     proposalID,
		ReviewerID:     actorID,
		ReviewedUserID: reviewedID,
		Friendliness:   ratings.Friendliness,
		TimeManagement: ratings.TimeManagement,
		Reliability:    ratings.Reliability,
		Communication:  ratings.Communication,
		WorkQuality:    ratings.WorkQuality,
		Comment:        ratings.Comment,
	}
	if err := rev.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, rev); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return rev, nil
}

// ForUser returns a user's received reviews together with category averages.
func (s *Reviews) ForUser(ctx context.Context, userID uuid.UUID) ([]*models.Review, *models.ReviewAverages, error) {
	list, err := s.store.ListByReviewedUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	avg, err := s.store.AveragesByReviewedUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return list, avg, nil
}
