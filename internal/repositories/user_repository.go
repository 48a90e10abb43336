package repositories

import (
	"context"

	"github.com/docuhub/exam-service/internal/models"
)

// UserRepository resolves user references for display (the service is not owner of user data)
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIDs skips ids that cannot be resolved
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
}
