package medication

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthsync/healthsync/internal/platform/auth"
	"github.com/healthsync/healthsync/pkg/apperrors"
)

type Service struct {
	prescriptions PrescriptionRepository
	visits        VisitOwnership
	now           func() time.Time
}

func NewService(prescriptions PrescriptionRepository, visits VisitOwnership) *Service {
	return &Service{prescriptions: prescriptions, visits: visits, now: time.Now}
}

// Build validates req and returns the prescription it describes for the
// given visit and user. The visit service uses it for prescriptions created
// together with their visit.
func Build(req CreatePrescriptionRequest, visitID, userID uuid.UUID) (*Prescription, error) {
	req.MedicationName = strings.TrimSpace(req.MedicationName)
	req.Dosage = strings.TrimSpace(req.Dosage)
	req.Frequency = strings.TrimSpace(req.Frequency)

	switch {
	case req.MedicationName == "":
		return nil, apperrors.Validation("medication_name is required")
	case req.Dosage == "":
		return nil, apperrors.Validation("dosage is required")
	case req.Frequency == "":
		return nil, apperrors.Validation("frequency is required")
	case req.StartDate.IsZero():
		return nil, apperrors.Validation("start_date is required")
	case req.EndDate != nil && req.EndDate.Before(req.StartDate.Time):
		return nil, apperrors.Validation("end_date cannot be before start_date")
	case req.RefillRemaining < 0:
		return nil, apperrors.Validation("refill_remaining cannot be negative")
	case req.DurationDays != nil && *req.DurationDays <= 0:
		return nil, apperrors.Validation("duration_days must be positive")
	case req.Quantity != nil && *req.Quantity < 0:
		return nil, apperrors.Validation("quantity cannot be negative")
	}

	details := FrequencyDetails{TimesPerDay: 1, SpecificTimes: []string{}}
	if req.FrequencyDetails != nil {
		details = *req.FrequencyDetails
		if details.TimesPerDay <= 0 {
			details.TimesPerDay = 1
		}
		details.SpecificTimes = orEmpty(details.SpecificTimes)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return &Prescription{
		VisitID:              visitID,
		UserID:               userID,
		MedicationName:       req.MedicationName,
		GenericName:          req.GenericName,
		Dosage:               req.Dosage,
		DosageUnit:           req.DosageUnit,
		Frequency:            req.Frequency,
		FrequencyDetails:     details,
		DurationDays:         req.DurationDays,
		Quantity:             req.Quantity,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		PrescriptionImageURL: req.PrescriptionImageURL,
		RefillRemaining:      req.RefillRemaining,
		NextRefillDate:       req.NextRefillDate,
		IsActive:             active,
		Instructions:         req.Instructions,
		SideEffects:          orEmpty(req.SideEffects),
		Contraindications:    orEmpty(req.Contraindications),
		DrugInteractions:     orEmpty(req.DrugInteractions),
		Notes:                req.Notes,
	}, nil
}

func (s *Service) ListPrescriptions(ctx context.Context, activeOnly bool) ([]*Prescription, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.prescriptions.ListByUser(ctx, userID, activeOnly)
}

// CreatePrescription attaches a prescription to one of the caller's visits.
// Visits of other users are reported as missing.
func (s *Service) CreatePrescription(ctx context.Context, req CreatePrescriptionRequest) (*Prescription, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	if req.VisitID == uuid.Nil {
		return nil, apperrors.Validation("visit_id is required")
	}
	p, err := Build(req, req.VisitID, userID)
	if err != nil {
		return nil, err
	}

	owned, err := s.visits.VisitOwnedBy(ctx, req.VisitID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, apperrors.NotFound("Visit not found")
	}

	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Refill records one refill. It fails with a conflict once no refills
// remain.
func (s *Service) Refill(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	p, ok, err := s.prescriptions.Refill(ctx, id, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if ok {
		zerolog.Ctx(ctx).Info().
			Str("user_id", userID.String()).
			Str("prescription_id", id.String()).
			Int("refill_remaining", p.RefillRemaining).
			Msg("prescription refilled")
		return p, nil
	}

	existing, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, apperrors.NotFound("Prescription not found")
	}
	return nil, apperrors.Conflict("No refills remaining")
}
