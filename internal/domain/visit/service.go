package visit

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/healthsync/healthsync/internal/domain/medication"
	"github.com/healthsync/healthsync/internal/platform/auth"
	"github.com/healthsync/healthsync/internal/platform/db"
	"github.com/healthsync/healthsync/internal/platform/telemetry"
	"github.com/healthsync/healthsync/pkg/apperrors"
)

type Service struct {
	visits        VisitRepository
	prescriptions medication.PrescriptionRepository
	tx            db.Transactor
}

func NewService(visits VisitRepository, prescriptions medication.PrescriptionRepository, tx db.Transactor) *Service {
	return &Service{visits: visits, prescriptions: prescriptions, tx: tx}
}

func (s *Service) ListVisits(ctx context.Context) ([]*Visit, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.visits.ListByUser(ctx, userID)
}

func buildVisit(req CreateVisitRequest, userID uuid.UUID) (*Visit, error) {
	req.DoctorName = strings.TrimSpace(req.DoctorName)
	if req.DoctorName == "" {
		return nil, apperrors.Validation("doctor_name is required")
	}
	if req.VisitDate.IsZero() {
		return nil, apperrors.Validation("visit_date is required")
	}
	if req.VisitType == "" {
		req.VisitType = "consultation"
	}
	if !validVisitTypes[req.VisitType] {
		return nil, apperrors.Validation("visit_type must be one of consultation, follow-up, emergency, routine")
	}
	if req.FollowUpDate != nil && req.FollowUpDate.Before(req.VisitDate.Time) {
		return nil, apperrors.Validation("follow_up_date cannot be before visit_date")
	}

	v := &Visit{
		UserID:                    userID,
		DoctorID:                  req.DoctorID,
		DoctorName:                req.DoctorName,
		DoctorSpecialty:           req.DoctorSpecialty,
		HospitalName:              req.HospitalName,
		VisitDate:                 req.VisitDate,
		VisitType:                 req.VisitType,
		Reason:                    req.Reason,
		Diagnosis:                 req.Diagnosis,
		Symptoms:                  orEmpty(req.Symptoms),
		Treatment:                 req.Treatment,
		Notes:                     req.Notes,
		PrescriptionImageURL:      req.PrescriptionImageURL,
		PrescriptionExtractedData: req.PrescriptionExtractedData,
		FollowUpRequired:          req.FollowUpRequired,
		FollowUpDate:              req.FollowUpDate,
		FollowUpNotes:             req.FollowUpNotes,
		TestsOrdered:              orEmpty(req.TestsOrdered),
		Attachments:               orEmpty(req.Attachments),
	}
	if v.PrescriptionExtractedData == nil {
		v.PrescriptionExtractedData = []map[string]interface{}{}
	}
	if req.VitalSigns != nil {
		v.VitalSigns = *req.VitalSigns
	}
	return v, nil
}

// CreateVisit stores a visit for the caller along with any prescriptions in
// the request. Either everything is written or nothing is.
func (s *Service) CreateVisit(ctx context.Context, req CreateVisitRequest) (*Detail, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	v, err := buildVisit(req, userID)
	if err != nil {
		return nil, err
	}

	// Validate every prescription before opening the transaction.
	for _, pr := range req.Prescriptions {
		if _, err := medication.Build(pr, uuid.Nil, userID); err != nil {
			if appErr, ok := apperrors.As(err); ok {
				return nil, apperrors.Validation("prescriptions: " + appErr.Message)
			}
			return nil, err
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "visit.create",
		attribute.Int("visit.prescriptions", len(req.Prescriptions)))
	defer span.End()

	detail := &Detail{Visit: v, Prescriptions: []*medication.Prescription{}}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.visits.Create(ctx, v); err != nil {
			return err
		}
		for _, pr := range req.Prescriptions {
			p, err := medication.Build(pr, v.ID, userID)
			if err != nil {
				return err
			}
			if err := s.prescriptions.Create(ctx, p); err != nil {
				return err
			}
			detail.Prescriptions = append(detail.Prescriptions, p)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("user_id", userID.String()).
		Str("visit_id", v.ID.String()).
		Int("prescriptions", len(detail.Prescriptions)).
		Msg("visit recorded")
	return detail, nil
}

// GetVisit returns one of the caller's visits with its prescriptions.
func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Detail, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.visits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.UserID != userID {
		return nil, apperrors.NotFound("Visit not found")
	}
	prescriptions, err := s.prescriptions.ListByVisit(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Visit: v, Prescriptions: prescriptions}, nil
}
