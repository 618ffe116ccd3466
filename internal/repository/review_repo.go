package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thehive/timebank/internal/models"
)

type ReviewRepo struct {
	pool *pgxpool.Pool
}

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

const reviewColumns = `id, proposal_id, reviewer_id, reviewed_user_id,
	friendliness, time_management, reliability, communication, work_quality,
	COALESCE(comment, ''), created_at`

// Create inserts a review. The unique (proposal_id, reviewer_id) constraint
// surfaces as a pgconn.PgError with code 23505.
func (r *ReviewRepo) Create(ctx context.Context, rev *models.Review) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO reviews (id, proposal_id, reviewer_id, reviewed_user_id,
			friendliness, time_management, reliability, communication, work_quality, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, rev.ID, rev.ProposalID, rev.ReviewerID, rev.ReviewedUserID,
		rev.Friendliness, rev.TimeManagement, rev.Reliability, rev.Communication, rev.WorkQuality,
		nullIfEmpty(rev.Comment)).Scan(&rev.CreatedAt)
}

func (r *ReviewRepo) ExistsByProposalAndReviewer(ctx context.Context, proposalID, reviewerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM reviews WHERE proposal_id = $1 AND reviewer_id = $2)
	`, proposalID, reviewerID).Scan(&exists)
	return exists, err
}

func (r *ReviewRepo) ListByReviewedUser(ctx context.Context, userID uuid.UUID) ([]*models.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reviewColumns+` FROM reviews WHERE reviewed_user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rev)
	}
	return list, rows.Err()
}

// AveragesByReviewedUser computes per-category rating averages in SQL.
func (r *ReviewRepo) AveragesByReviewedUser(ctx context.Context, userID uuid.UUID) (*models.ReviewAverages, error) {
	var avg models.ReviewAverages
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(friendliness), 0),
			COALESCE(AVG(time_management), 0),
			COALESCE(AVG(reliability), 0),
			COALESCE(AVG(communication), 0),
			COALESCE(AVG(work_quality), 0)
		FROM reviews WHERE reviewed_user_id = $1
	`, userID).Scan(&avg.Count, &avg.Friendliness, &avg.TimeManagement,
		&avg.Reliability, &avg.Communication, &avg.WorkQuality)
	if err != nil {
		return nil, err
	}
	return &avg, nil
}

func scanReview(row pgx.Row) (*models.Review, error) {
	var rev models.Review
	err := row.Scan(&rev.ID, &rev.ProposalID, &rev.ReviewerID, &rev.ReviewedUserID,
		&rev.Friendliness, &rev.TimeManagement, &rev.Reliability, &rev.Communication, &rev.WorkQuality,
		&rev.Comment, &rev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rev, nil
}
