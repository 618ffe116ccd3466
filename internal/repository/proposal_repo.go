package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thehive/timebank/internal/models"
)

type ProposalRepo struct {
	pool *pgxpool.Pool
}

func NewProposalRepo(pool *pgxpool.Pool) *ProposalRepo {
	return &ProposalRepo{pool: pool}
}

const proposalColumns = `id, post_id, requester_id, provider_id, rate, status,
	provider_approved, requester_approved, message, proposed_date, proposed_location,
	created_at, updated_at`

func (r *ProposalRepo) Create(ctx context.Context, p *models.Proposal) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO proposals (id, post_id, requester_id, provider_id, rate, status, message, proposed_date, proposed_location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, p.ID, p.PostID, p.RequesterID, p.ProviderID, p.Rate, p.Status, p.Message, p.ProposedDate, p.ProposedLocation).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *ProposalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return scanProposal(r.pool.QueryRow(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the proposal row for the duration of the caller's
// transaction. Every lifecycle transition starts with this lock so that
// concurrent transitions on the same proposal serialize.
func (r *ProposalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Proposal, error) {
	return scanProposal(tx.QueryRow(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE id = $1 FOR UPDATE
	`, id))
}

// UpdateStatusTx moves the proposal between statuses with a compare-and-swap
// on the current status. Returns false when the row was not in fromStatus.
func (r *ProposalRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, fromStatus, toStatus string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE proposals SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, fromStatus, toStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetProviderApprovedTx sets the provider approval flag while the proposal
// is accepted, returning the resulting pair of flags.
func (r *ProposalRepo) SetProviderApprovedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (providerApproved, requesterApproved bool, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE proposals SET provider_approved = TRUE, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING provider_approved, requester_approved
	`, id, models.ProposalStatusAccepted).Scan(&providerApproved, &requesterApproved)
	return providerApproved, requesterApproved, err
}

// SetRequesterApprovedTx is the requester-side counterpart of
// SetProviderApprovedTx.
func (r *ProposalRepo) SetRequesterApprovedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (providerApproved, requesterApproved bool, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE proposals SET requester_approved = TRUE, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING provider_approved, requester_approved
	`, id, models.ProposalStatusAccepted).Scan(&providerApproved, &requesterApproved)
	return providerApproved, requesterApproved, err
}

func (r *ProposalRepo) ListByParticipant(ctx context.Context, accountID uuid.UUID) ([]*models.Proposal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+proposalColumns+` FROM proposals
		WHERE requester_id = $1 OR provider_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var p models.Proposal
	err := row.Scan(&p.ID, &p.PostID, &p.RequesterID, &p.ProviderID, &p.Rate, &p.Status,
		&p.ProviderApproved, &p.RequesterApproved, &p.Message, &p.ProposedDate, &p.ProposedLocation,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
