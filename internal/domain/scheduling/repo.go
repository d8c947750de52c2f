package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StatusUpdate is applied only while the row still has Expected as its
// status, so two racing changes cannot both pass the transition check.
type StatusUpdate struct {
	Expected           string
	Status             string
	CancellationReason *string
	CancelledBy        *string
	CancelledAt        *time.Time
	At                 time.Time
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Appointment, error)
	// UpdateStatus returns ok=false when the status no longer matches
	// upd.Expected.
	UpdateStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) (a *Appointment, ok bool, err error)
}

// VisitOwnership answers whether a doctor visit belongs to a user. The visit
// repository satisfies it.
type VisitOwnership interface {
	VisitOwnedBy(ctx context.Context, visitID, userID uuid.UUID) (bool, error)
}
