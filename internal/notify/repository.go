package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) Create(ctx context.Context, n *Notification) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, recipient_id, proposal_id, kind)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, n.ID, n.RecipientID, n.ProposalID, n.Kind).Scan(&n.CreatedAt)
}

func (r *Repository) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient_id, proposal_id, kind, is_read, created_at
		FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC
	`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.ProposalID, &n.Kind, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

// MarkRead flags a notification as read; scoped to the recipient so users
// cannot touch each other's inboxes.
func (r *Repository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2
	`, id, recipientID)
	return err
}
