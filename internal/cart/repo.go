package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/sklepio/storefront-backend/pkg/db/models"
)

// Repository reads the cart lines the checkout works from. The cart service
// owns the rows; the checkout never writes them.
type Repository interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.CartLine, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ListBySession returns the session's cart lines in insertion order.
func (r *repository) ListBySession(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}
