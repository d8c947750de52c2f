package visit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthsync/healthsync/internal/platform/db"
)

type visitRepoPG struct {
	pool *pgxpool.Pool
}

func NewVisitRepo(pool *pgxpool.Pool) VisitRepository {
	return &visitRepoPG{pool: pool}
}

const visitCols = `id, user_id, doctor_id, doctor_name, doctor_specialty, hospital_name, visit_date,
	visit_type, reason, diagnosis, symptoms, treatment, notes, prescription_image_url,
	prescription_extracted_data, follow_up_required, follow_up_date, follow_up_notes,
	vital_signs, tests_ordered, attachments, created_at, updated_at`

func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	extracted := v.PrescriptionExtractedData
	if extracted == nil {
		extracted = []map[string]interface{}{}
	}
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO doctor_visits (
			id, user_id, doctor_id, doctor_name, doctor_specialty, hospital_name, visit_date,
			visit_type, reason, diagnosis, symptoms, treatment, notes, prescription_image_url,
			prescription_extracted_data, follow_up_required, follow_up_date, follow_up_notes,
			vital_signs, tests_ordered, attachments
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,
			$12,$13,$14,$15,$16,$17,$18,$19,$20,$21
		)
		RETURNING `+visitCols,
		v.ID, v.UserID, v.DoctorID, v.DoctorName, v.DoctorSpecialty, v.HospitalName, v.VisitDate,
		v.VisitType, v.Reason, v.Diagnosis, orEmpty(v.Symptoms), v.Treatment, v.Notes, v.PrescriptionImageURL,
		extracted, v.FollowUpRequired, v.FollowUpDate, v.FollowUpNotes,
		v.VitalSigns, orEmpty(v.TestsOrdered), orEmpty(v.Attachments),
	)
	created, err := scanVisit(row)
	if err != nil {
		return db.MapError(err, "Visit not found")
	}
	*v = *created
	return nil
}

func (r *visitRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+visitCols+` FROM doctor_visits WHERE id = $1`, id)
	v, err := scanVisit(row)
	if err != nil {
		return nil, db.MapError(err, "Visit not found")
	}
	return v, nil
}

func (r *visitRepoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Visit, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+visitCols+` FROM doctor_visits WHERE user_id = $1 ORDER BY visit_date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, db.MapError(err, "Visit not found")
	}
	defer rows.Close()

	items := []*Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, db.MapError(err, "Visit not found")
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "Visit not found")
	}
	return items, nil
}

func (r *visitRepoPG) VisitOwnedBy(ctx context.Context, visitID, userID uuid.UUID) (bool, error) {
	var owned bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM doctor_visits WHERE id = $1 AND user_id = $2)`, visitID, userID).Scan(&owned)
	if err != nil {
		return false, db.MapError(err, "Visit not found")
	}
	return owned, nil
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(
		&v.ID, &v.UserID, &v.DoctorID, &v.DoctorName, &v.DoctorSpecialty, &v.HospitalName, &v.VisitDate,
		&v.VisitType, &v.Reason, &v.Diagnosis, &v.Symptoms, &v.Treatment, &v.Notes, &v.PrescriptionImageURL,
		&v.PrescriptionExtractedData, &v.FollowUpRequired, &v.FollowUpDate, &v.FollowUpNotes,
		&v.VitalSigns, &v.TestsOrdered, &v.Attachments, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
