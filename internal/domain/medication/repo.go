package medication

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*Prescription, error)
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Prescription, error)
	// Refill consumes one refill if any remain. ok is false when the
	// prescription does not exist for userID or has none left.
	Refill(ctx context.Context, id, userID uuid.UUID, at time.Time) (p *Prescription, ok bool, err error)
}

// VisitOwnership answers whether a doctor visit belongs to a user. The visit
// repository satisfies it.
type VisitOwnership interface {
	VisitOwnedBy(ctx context.Context, visitID, userID uuid.UUID) (bool, error)
}
