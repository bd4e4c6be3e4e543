package property

import (
	"context"

	"github.com/google/uuid"
)

// PropertyRepository defines persistence operations for property listings.
type PropertyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Property, error)
	FindByHostID(ctx context.Context, hostID uuid.UUID) ([]*Property, error)
	ListAll(ctx context.Context, page, limit int) ([]*Property, int64, error)
	Save(ctx context.Context, property *Property) error
	Update(ctx context.Context, property *Property) error
}
