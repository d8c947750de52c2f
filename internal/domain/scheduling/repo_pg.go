package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthsync/healthsync/internal/platform/db"
	"github.com/healthsync/healthsync/pkg/apperrors"
)

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepo(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const appointmentCols = `id, user_id, doctor_id, doctor_name, doctor_specialty, hospital_name,
	appointment_date, appointment_time::text, duration_minutes, appointment_type, status, reason, notes,
	booking_platform, booking_platform_id, confirmation_number, consultation_fee, is_follow_up,
	follow_up_for_visit_id, reminder_sent_24h, reminder_sent_1h, cancellation_reason, cancelled_by,
	cancelled_at, prescription_issued, appointment_link, created_at, updated_at`

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (
			id, user_id, doctor_id, doctor_name, doctor_specialty, hospital_name,
			appointment_date, appointment_time, duration_minutes, appointment_type, status, reason, notes,
			booking_platform, booking_platform_id, confirmation_number, consultation_fee, is_follow_up,
			follow_up_for_visit_id, appointment_link
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8::time,$9,$10,
			$11,$12,$13,$14,$15,$16,$17,$18,$19,$20
		)
		RETURNING `+appointmentCols,
		a.ID, a.UserID, a.DoctorID, a.DoctorName, a.DoctorSpecialty, a.HospitalName,
		a.AppointmentDate, a.AppointmentTime, a.DurationMinutes, a.AppointmentType, a.Status, a.Reason, a.Notes,
		a.BookingPlatform, a.BookingPlatformID, a.ConfirmationNumber, a.ConsultationFee, a.IsFollowUp,
		a.FollowUpForVisitID, a.AppointmentLink,
	)
	created, err := scanAppointment(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperrors.Conflict("Confirmation number already in use")
		}
		return db.MapError(err, "Appointment not found")
	}
	*a = *created
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		return nil, db.MapError(err, "Appointment not found")
	}
	return a, nil
}

func (r *appointmentRepoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE user_id = $1
		 ORDER BY appointment_date ASC, appointment_time ASC`, userID)
	if err != nil {
		return nil, db.MapError(err, "Appointment not found")
	}
	defer rows.Close()

	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, db.MapError(err, "Appointment not found")
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "Appointment not found")
	}
	return items, nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) (*Appointment, bool, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE appointments SET
			status = $3,
			cancellation_reason = COALESCE($4, cancellation_reason),
			cancelled_by = COALESCE($5, cancelled_by),
			cancelled_at = COALESCE($6, cancelled_at),
			updated_at = $7
		WHERE id = $1 AND status = $2
		RETURNING `+appointmentCols,
		id, upd.Expected, upd.Status, upd.CancellationReason, upd.CancelledBy, upd.CancelledAt, upd.At,
	)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, db.MapError(err, "Appointment not found")
	}
	return a, true, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.UserID, &a.DoctorID, &a.DoctorName, &a.DoctorSpecialty, &a.HospitalName,
		&a.AppointmentDate, &a.AppointmentTime, &a.DurationMinutes, &a.AppointmentType, &a.Status, &a.Reason, &a.Notes,
		&a.BookingPlatform, &a.BookingPlatformID, &a.ConfirmationNumber, &a.ConsultationFee, &a.IsFollowUp,
		&a.FollowUpForVisitID, &a.ReminderSent24h, &a.ReminderSent1h, &a.CancellationReason, &a.CancelledBy,
		&a.CancelledAt, &a.PrescriptionIssued, &a.AppointmentLink, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
