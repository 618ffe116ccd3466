package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thehive/timebank/internal/models"
)

type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

func (r *PostRepo) Create(ctx context.Context, p *models.Post) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO posts (id, posted_by, title, description, post_type, location, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, p.ID, p.PostedBy, p.Title, p.Description, p.PostType, p.Location, p.Duration).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	err := r.pool.QueryRow(ctx, `
		SELECT id, posted_by, title, description, post_type, location, duration, created_at, updated_at
		FROM posts WHERE id = $1
	`, id).Scan(&p.ID, &p.PostedBy, &p.Title, &p.Description, &p.PostType, &p.Location, &p.Duration, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) List(ctx context.Context) ([]*models.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, posted_by, title, description, post_type, location, duration, created_at, updated_at
		FROM posts ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.PostedBy, &p.Title, &p.Description, &p.PostType, &p.Location, &p.Duration, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
