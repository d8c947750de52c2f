package medication

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthsync/healthsync/internal/platform/db"
)

type prescriptionRepoPG struct {
	pool *pgxpool.Pool
}

func NewPrescriptionRepo(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

const prescriptionCols = `id, visit_id, user_id, medication_name, generic_name, dosage, dosage_unit,
	frequency, frequency_details, duration_days, quantity, start_date, end_date, prescription_image_url,
	refill_count, refill_remaining, last_refilled_date, next_refill_date, is_active, refill_reminder_sent,
	instructions, side_effects, contraindications, drug_interactions, notes, created_at, updated_at`

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO prescriptions (
			id, visit_id, user_id, medication_name, generic_name, dosage, dosage_unit,
			frequency, frequency_details, duration_days, quantity, start_date, end_date,
			prescription_image_url, refill_remaining, next_refill_date, is_active,
			instructions, side_effects, contraindications, drug_interactions, notes
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,
			$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22
		)
		RETURNING `+prescriptionCols,
		p.ID, p.VisitID, p.UserID, p.MedicationName, p.GenericName, p.Dosage, p.DosageUnit,
		p.Frequency, p.FrequencyDetails, p.DurationDays, p.Quantity, p.StartDate, p.EndDate,
		p.PrescriptionImageURL, p.RefillRemaining, p.NextRefillDate, p.IsActive,
		p.Instructions, orEmpty(p.SideEffects), orEmpty(p.Contraindications), orEmpty(p.DrugInteractions), p.Notes,
	)
	created, err := scanPrescription(row)
	if err != nil {
		return db.MapError(err, "Prescription not found")
	}
	*p = *created
	return nil
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE id = $1`, id)
	p, err := scanPrescription(row)
	if err != nil {
		return nil, db.MapError(err, "Prescription not found")
	}
	return p, nil
}

func (r *prescriptionRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*Prescription, error) {
	query := `SELECT ` + prescriptionCols + ` FROM prescriptions WHERE user_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY start_date DESC, created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *prescriptionRepoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Prescription, error) {
	return r.list(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE visit_id = $1 ORDER BY start_date DESC, created_at`,
		visitID)
}

func (r *prescriptionRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Prescription, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(err, "Prescription not found")
	}
	defer rows.Close()

	items := []*Prescription{}
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, db.MapError(err, "Prescription not found")
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "Prescription not found")
	}
	return items, nil
}

// nextRefillExpr dates the next refill from the supply one fill lasts:
// quantity units at times_per_day doses a day. duration_days is the length of
// the whole course and says nothing about when the supply runs out. Without
// a quantity or a dose rate the stored date is kept.
const nextRefillExpr = `CASE
				WHEN quantity > 0 AND (frequency_details->>'times_per_day')::int > 0
					THEN $3::timestamptz + make_interval(days => quantity / (frequency_details->>'times_per_day')::int)
				ELSE next_refill_date
			END`

// Refill decrements in a single guarded UPDATE so concurrent refills can
// never drive refill_remaining below zero.
func (r *prescriptionRepoPG) Refill(ctx context.Context, id, userID uuid.UUID, at time.Time) (*Prescription, bool, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE prescriptions SET
			refill_remaining = refill_remaining - 1,
			refill_count = refill_count + 1,
			last_refilled_date = $3::timestamptz,
			next_refill_date = `+nextRefillExpr+`,
			updated_at = $3::timestamptz
		WHERE id = $1 AND user_id = $2 AND refill_remaining > 0
		RETURNING `+prescriptionCols,
		id, userID, at,
	)
	p, err := scanPrescription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, db.MapError(err, "Prescription not found")
	}
	return p, true, nil
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(
		&p.ID, &p.VisitID, &p.UserID, &p.MedicationName, &p.GenericName, &p.Dosage, &p.DosageUnit,
		&p.Frequency, &p.FrequencyDetails, &p.DurationDays, &p.Quantity, &p.StartDate, &p.EndDate, &p.PrescriptionImageURL,
		&p.RefillCount, &p.RefillRemaining, &p.LastRefilledDate, &p.NextRefillDate, &p.IsActive, &p.RefillReminderSent,
		&p.Instructions, &p.SideEffects, &p.Contraindications, &p.DrugInteractions, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
