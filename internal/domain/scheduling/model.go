package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthsync/healthsync/pkg/datetime"
)

const (
	StatusScheduled   = "scheduled"
	StatusConfirmed   = "confirmed"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
	StatusNoShow      = "no-show"
	StatusRescheduled = "rescheduled"
)

var validAppointmentTypes = map[string]bool{"online": true, "in-person": true, "phone": true}

var validBookingPlatforms = map[string]bool{"doc990": true, "echannelling": true, "manual": true}

// transitions lists the statuses reachable from each status. Completed,
// cancelled and no-show are terminal.
var transitions = map[string]map[string]bool{
	StatusScheduled: {
		StatusConfirmed: true, StatusCancelled: true, StatusRescheduled: true,
		StatusNoShow: true, StatusCompleted: true,
	},
	StatusConfirmed: {
		StatusCompleted: true, StatusCancelled: true, StatusNoShow: true, StatusRescheduled: true,
	},
	StatusRescheduled: {
		StatusScheduled: true, StatusConfirmed: true, StatusCancelled: true,
	},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// CanTransition reports whether an appointment may move from one status to
// another.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// IsValidStatus reports whether s is a known appointment status.
func IsValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// Appointment maps to the appointments table. AppointmentTime is the local
// wall-clock time as HH:MM:SS.
type Appointment struct {
	ID                 uuid.UUID     `db:"id" json:"id"`
	UserID             uuid.UUID     `db:"user_id" json:"user_id"`
	DoctorID           *uuid.UUID    `db:"doctor_id" json:"doctor_id,omitempty"`
	DoctorName         string        `db:"doctor_name" json:"doctor_name"`
	DoctorSpecialty    *string       `db:"doctor_specialty" json:"doctor_specialty,omitempty"`
	HospitalName       *string       `db:"hospital_name" json:"hospital_name,omitempty"`
	AppointmentDate    datetime.Time `db:"appointment_date" json:"appointment_date"`
	AppointmentTime    string        `db:"appointment_time" json:"appointment_time"`
	DurationMinutes    int           `db:"duration_minutes" json:"duration_minutes"`
	AppointmentType    string        `db:"appointment_type" json:"appointment_type"`
	Status             string        `db:"status" json:"status"`
	Reason             *string       `db:"reason" json:"reason,omitempty"`
	Notes              *string       `db:"notes" json:"notes,omitempty"`
	BookingPlatform    string        `db:"booking_platform" json:"booking_platform"`
	BookingPlatformID  *string       `db:"booking_platform_id" json:"booking_platform_id,omitempty"`
	ConfirmationNumber *string       `db:"confirmation_number" json:"confirmation_number,omitempty"`
	ConsultationFee    *float64      `db:"consultation_fee" json:"consultation_fee,omitempty"`
	IsFollowUp         bool          `db:"is_follow_up" json:"is_follow_up"`
	FollowUpForVisitID *uuid.UUID    `db:"follow_up_for_visit_id" json:"follow_up_for_visit_id,omitempty"`
	ReminderSent24h    bool          `db:"reminder_sent_24h" json:"reminder_sent_24h"`
	ReminderSent1h     bool          `db:"reminder_sent_1h" json:"reminder_sent_1h"`
	CancellationReason *string       `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledBy        *string       `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	PrescriptionIssued bool          `db:"prescription_issued" json:"prescription_issued"`
	AppointmentLink    *string       `db:"appointment_link" json:"appointment_link,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

type CreateAppointmentRequest struct {
	DoctorID           *uuid.UUID    `json:"doctor_id"`
	DoctorName         string        `json:"doctor_name"`
	DoctorSpecialty    *string       `json:"doctor_specialty"`
	HospitalName       *string       `json:"hospital_name"`
	AppointmentDate    datetime.Time `json:"appointment_date"`
	AppointmentTime    string        `json:"appointment_time"`
	DurationMinutes    *int          `json:"duration_minutes"`
	AppointmentType    string        `json:"appointment_type"`
	Reason             *string       `json:"reason"`
	Notes              *string       `json:"notes"`
	BookingPlatform    string        `json:"booking_platform"`
	BookingPlatformID  *string       `json:"booking_platform_id"`
	ConfirmationNumber *string       `json:"confirmation_number"`
	ConsultationFee    *float64      `json:"consultation_fee"`
	IsFollowUp         bool          `json:"is_follow_up"`
	FollowUpForVisitID *uuid.UUID    `json:"follow_up_for_visit_id"`
	AppointmentLink    *string       `json:"appointment_link"`
}

// StatusChange is the body of PATCH /appointments/:id/status.
type StatusChange struct {
	Status             string  `json:"status"`
	CancellationReason *string `json:"cancellation_reason"`
}
