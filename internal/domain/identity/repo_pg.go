package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthsync/healthsync/internal/platform/db"
	"github.com/healthsync/healthsync/pkg/apperrors"
)

var pg = goqu.Dialect("postgres")

type userRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

const userCols = `id, email, phone, password_hash, full_name, date_of_birth, gender, blood_group,
	allergies, medical_conditions, profile_picture_url, is_verified, verification_token,
	two_factor_enabled, two_factor_secret, last_login, is_active, notification_preferences,
	emergency_contact_name, emergency_contact_phone, created_at, updated_at, deleted_at`

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (
			id, email, phone, password_hash, full_name, allergies, medical_conditions,
			is_active, notification_preferences
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+userCols,
		u.ID, u.Email, u.Phone, u.PasswordHash, u.FullName, nonNil(u.Allergies), nonNil(u.MedicalConditions),
		u.IsActive, u.NotificationPreferences,
	)
	created, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperrors.Conflict("Email already registered")
		}
		return db.MapError(err, "User not found")
	}
	*u = *created
	return nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, db.MapError(err, "User not found")
	}
	return u, nil
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, db.MapError(err, "User not found")
	}
	return u, nil
}

func (r *userRepoPG) EmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&taken)
	if err != nil {
		return false, db.MapError(err, "User not found")
	}
	return taken, nil
}

func (r *userRepoPG) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	query, args, err := buildProfileUpdate(id, upd, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, db.MapError(err, "User not found")
	}
	return u, nil
}

// buildProfileUpdate renders the UPDATE for the fields set on upd. JSONB
// values are passed as encoded text; goqu would otherwise expand slices into
// value lists.
func buildProfileUpdate(id uuid.UUID, upd ProfileUpdate, now time.Time) (string, []interface{}, error) {
	rec := goqu.Record{"updated_at": now}
	setString := func(col string, v *string) {
		if v != nil {
			rec[col] = *v
		}
	}
	setString("full_name", upd.FullName)
	setString("phone", upd.Phone)
	setString("gender", upd.Gender)
	setString("blood_group", upd.BloodGroup)
	setString("emergency_contact_name", upd.EmergencyContactName)
	setString("emergency_contact_phone", upd.EmergencyContactPhone)
	setString("profile_picture_url", upd.ProfilePictureURL)
	if upd.DateOfBirth != nil {
		rec["date_of_birth"] = upd.DateOfBirth.Time
	}
	for _, col := range upd.Clear {
		if _, set := rec[col]; !set {
			rec[col] = nil
		}
	}

	jsonCols := map[string]interface{}{}
	if upd.Allergies != nil {
		jsonCols["allergies"] = nonNil(*upd.Allergies)
	}
	if upd.MedicalConditions != nil {
		jsonCols["medical_conditions"] = nonNil(*upd.MedicalConditions)
	}
	if upd.NotificationPreferences != nil {
		jsonCols["notification_preferences"] = upd.NotificationPreferences
	}
	for col, v := range jsonCols {
		b, err := json.Marshal(v)
		if err != nil {
			return "", nil, fmt.Errorf("encode %s: %w", col, err)
		}
		rec[col] = goqu.L("?::jsonb", string(b))
	}

	query, args, err := pg.Update("users").
		Set(rec).
		Where(goqu.C("id").Eq(id.String()), goqu.C("deleted_at").IsNull()).
		Returning(goqu.L(userCols)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build profile update: %w", err)
	}
	return query, args, nil
}

func (r *userRepoPG) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, at)
	return db.MapError(err, "User not found")
}

func (r *userRepoPG) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE users SET deleted_at = $2, is_active = false, updated_at = $2
		 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return db.MapError(err, "User not found")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("User not found")
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.Phone, &u.PasswordHash, &u.FullName, &u.DateOfBirth, &u.Gender, &u.BloodGroup,
		&u.Allergies, &u.MedicalConditions, &u.ProfilePictureURL, &u.IsVerified, &u.VerificationToken,
		&u.TwoFactorEnabled, &u.TwoFactorSecret, &u.LastLogin, &u.IsActive, &u.NotificationPreferences,
		&u.EmergencyContactName, &u.EmergencyContactPhone, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
