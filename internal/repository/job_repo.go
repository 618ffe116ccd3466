package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thehive/timebank/internal/models"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `id, proposal_id, post_id, requester_id, provider_id, rate, status,
	cancelled_by, COALESCE(cancellation_reason, ''), created_at, updated_at`

// CreateTx inserts a job inside the acceptance transaction.
func (r *JobRepo) CreateTx(ctx context.Context, tx pgx.Tx, j *models.Job) error {
	return tx.QueryRow(ctx, `
		INSERT INTO jobs (id, proposal_id, post_id, requester_id, provider_id, rate, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, j.ID, j.ProposalID, j.PostID, j.RequesterID, j.ProviderID, j.Rate, j.Status).Scan(&j.CreatedAt, &j.UpdatedAt)
}

// HasWaitingTx reports whether the proposal already has a waiting job.
// This is the re-entrancy guard on acceptance.
func (r *JobRepo) HasWaitingTx(ctx context.Context, tx pgx.Tx, proposalID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM jobs WHERE proposal_id = $1 AND status = $2)
	`, proposalID, models.JobStatusWaiting).Scan(&exists)
	return exists, err
}

// CompleteWaitingTx moves the proposal's waiting job to completed. The
// returned flag is false when no waiting job existed, which callers rely on
// as the double-payout guard: the waiting→completed edge fires at most once.
func (r *JobRepo) CompleteWaitingTx(ctx context.Context, tx pgx.Tx, proposalID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE jobs SET status = $3, updated_at = now()
		WHERE proposal_id = $1 AND status = $2
	`, proposalID, models.JobStatusWaiting, models.JobStatusCompleted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CancelWaitingTx moves the proposal's waiting job to cancelled, recording
// who cancelled and why. Same at-most-once semantics as CompleteWaitingTx.
func (r *JobRepo) CancelWaitingTx(ctx context.Context, tx pgx.Tx, proposalID uuid.UUID, cancelledBy *uuid.UUID, reason string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE jobs SET status = $3, cancelled_by = $4, cancellation_reason = $5, updated_at = now()
		WHERE proposal_id = $1 AND status = $2
	`, proposalID, models.JobStatusWaiting, models.JobStatusCancelled, cancelledBy, nullIfEmpty(reason))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *JobRepo) GetByProposalID(ctx context.Context, proposalID uuid.UUID) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE proposal_id = $1 ORDER BY created_at DESC LIMIT 1
	`, proposalID))
}

func (r *JobRepo) ListByParticipant(ctx context.Context, accountID uuid.UUID) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE requester_id = $1 OR provider_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.ProposalID, &j.PostID, &j.RequesterID, &j.ProviderID, &j.Rate, &j.Status,
		&j.CancelledBy, &j.CancellationReason, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
