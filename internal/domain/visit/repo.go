package visit

import (
	"context"

	"github.com/google/uuid"
)

type VisitRepository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Visit, error)
	VisitOwnedBy(ctx context.Context, visitID, userID uuid.UUID) (bool, error)
}
