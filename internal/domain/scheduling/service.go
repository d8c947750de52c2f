package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthsync/healthsync/internal/platform/auth"
	"github.com/healthsync/healthsync/pkg/apperrors"
)

const defaultDurationMinutes = 30

type Service struct {
	appointments AppointmentRepository
	visits       VisitOwnership
	now          func() time.Time
}

func NewService(appointments AppointmentRepository, visits VisitOwnership) *Service {
	return &Service{appointments: appointments, visits: visits, now: time.Now}
}

// normalizeTime accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func normalizeTime(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	return "", false
}

func buildAppointment(req CreateAppointmentRequest, userID uuid.UUID) (*Appointment, error) {
	req.DoctorName = strings.TrimSpace(req.DoctorName)
	if req.DoctorName == "" {
		return nil, apperrors.Validation("doctor_name is required")
	}
	if req.AppointmentDate.IsZero() {
		return nil, apperrors.Validation("appointment_date is required")
	}
	if req.AppointmentTime == "" {
		return nil, apperrors.Validation("appointment_time is required")
	}
	clock, ok := normalizeTime(req.AppointmentTime)
	if !ok {
		return nil, apperrors.Validation("appointment_time must be HH:MM or HH:MM:SS")
	}

	duration := defaultDurationMinutes
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return nil, apperrors.Validation("duration_minutes must be positive")
		}
		duration = *req.DurationMinutes
	}
	if req.AppointmentType == "" {
		req.AppointmentType = "in-person"
	}
	if !validAppointmentTypes[req.AppointmentType] {
		return nil, apperrors.Validation("appointment_type must be one of online, in-person, phone")
	}
	if req.BookingPlatform == "" {
		req.BookingPlatform = "manual"
	}
	if !validBookingPlatforms[req.BookingPlatform] {
		return nil, apperrors.Validation("booking_platform must be one of doc990, echannelling, manual")
	}
	if req.ConsultationFee != nil && *req.ConsultationFee < 0 {
		return nil, apperrors.Validation("consultation_fee cannot be negative")
	}
	if req.ConfirmationNumber != nil && strings.TrimSpace(*req.ConfirmationNumber) == "" {
		req.ConfirmationNumber = nil
	}

	return &Appointment{
		UserID:             userID,
		DoctorID:           req.DoctorID,
		DoctorName:         req.DoctorName,
		DoctorSpecialty:    req.DoctorSpecialty,
		HospitalName:       req.HospitalName,
		AppointmentDate:    req.AppointmentDate,
		AppointmentTime:    clock,
		DurationMinutes:    duration,
		AppointmentType:    req.AppointmentType,
		Status:             StatusScheduled,
		Reason:             req.Reason,
		Notes:              req.Notes,
		BookingPlatform:    req.BookingPlatform,
		BookingPlatformID:  req.BookingPlatformID,
		ConfirmationNumber: req.ConfirmationNumber,
		ConsultationFee:    req.ConsultationFee,
		IsFollowUp:         req.IsFollowUp || req.FollowUpForVisitID != nil,
		FollowUpForVisitID: req.FollowUpForVisitID,
		AppointmentLink:    req.AppointmentLink,
	}, nil
}

// ListAppointments returns the caller's appointments, soonest first.
func (s *Service) ListAppointments(ctx context.Context) ([]*Appointment, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.appointments.ListByUser(ctx, userID)
}

// CreateAppointment books an appointment for the caller. A follow-up must
// reference one of the caller's own visits.
func (s *Service) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*Appointment, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	a, err := buildAppointment(req, userID)
	if err != nil {
		return nil, err
	}
	if a.FollowUpForVisitID != nil {
		owned, err := s.visits.VisitOwnedBy(ctx, *a.FollowUpForVisitID, userID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, apperrors.NotFound("Visit not found")
		}
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ChangeStatus moves one of the caller's appointments to a new status.
// Cancelling records who cancelled, when and why.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, change StatusChange) (*Appointment, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	if !IsValidStatus(change.Status) {
		return nil, apperrors.Validation("status must be one of scheduled, confirmed, completed, cancelled, no-show, rescheduled")
	}

	current, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, apperrors.NotFound("Appointment not found")
	}
	if !CanTransition(current.Status, change.Status) {
		return nil, apperrors.Validation("cannot change appointment status from " + current.Status + " to " + change.Status)
	}

	now := s.now().UTC()
	upd := StatusUpdate{Expected: current.Status, Status: change.Status, At: now}
	if change.Status == StatusCancelled {
		by := "user"
		upd.CancelledBy = &by
		upd.CancelledAt = &now
		upd.CancellationReason = change.CancellationReason
	}

	a, ok, err := s.appointments.UpdateStatus(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Conflict("Appointment status changed concurrently, please retry")
	}

	zerolog.Ctx(ctx).Info().
		Str("user_id", userID.String()).
		Str("appointment_id", id.String()).
		Str("from", current.Status).
		Str("to", a.Status).
		Msg("appointment status changed")
	return a, nil
}
