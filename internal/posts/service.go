package posts

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/thehive/timebank/internal/models"
)

// ErrInvalidPostType is returned for post types other than offer/need.
var ErrInvalidPostType = errors.New("post_type must be offer or need")

// Store is the post persistence surface.
type Store interface {
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create publishes a post. The post type is load-bearing: it fixes the
// payment direction of every proposal made against the post.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, title, description, postType, location, duration string) (*models.Post, error) {
	if postType != models.PostTypeOffer && postType != models.PostTypeNeed {
		return nil, ErrInvalidPostType
	}
	p := &models.Post{
		ID:          uuid.New(),
		PostedBy:    ownerID,
		Title:       title,
		Description: description,
		PostType:    postType,
		Location:    location,
		Duration:    duration,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Post, error) {
	return s.store.List(ctx)
}
