package identity

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/healthsync/healthsync/pkg/datetime"
)

var validGenders = map[string]bool{"M": true, "F": true, "O": true}

// NotificationPreferences is stored as a JSONB object on the user row.
type NotificationPreferences struct {
	Email               bool `json:"email"`
	SMS                 bool `json:"sms"`
	Push                bool `json:"push"`
	AppointmentReminder bool `json:"appointment_reminder"`
	RefillReminder      bool `json:"refill_reminder"`
	HealthSummary       bool `json:"health_summary"`
}

// DefaultNotificationPreferences has every channel enabled.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		Email:               true,
		SMS:                 true,
		Push:                true,
		AppointmentReminder: true,
		RefillReminder:      true,
		HealthSummary:       true,
	}
}

// User maps to the users table. Secrets never leave the process: they are
// excluded from JSON here and from the Profile projection.
type User struct {
	ID                      uuid.UUID               `db:"id" json:"id"`
	Email                   string                  `db:"email" json:"email"`
	Phone                   *string                 `db:"phone" json:"phone,omitempty"`
	PasswordHash            string                  `db:"password_hash" json:"-"`
	FullName                string                  `db:"full_name" json:"full_name"`
	DateOfBirth             *datetime.Time          `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender                  *string                 `db:"gender" json:"gender,omitempty"`
	BloodGroup              *string                 `db:"blood_group" json:"blood_group,omitempty"`
	Allergies               []string                `db:"allergies" json:"allergies"`
	MedicalConditions       []string                `db:"medical_conditions" json:"medical_conditions"`
	ProfilePictureURL       *string                 `db:"profile_picture_url" json:"profile_picture_url,omitempty"`
	IsVerified              bool                    `db:"is_verified" json:"is_verified"`
	VerificationToken       *string                 `db:"verification_token" json:"-"`
	TwoFactorEnabled        bool                    `db:"two_factor_enabled" json:"two_factor_enabled"`
	TwoFactorSecret         *string                 `db:"two_factor_secret" json:"-"`
	LastLogin               *time.Time              `db:"last_login" json:"last_login,omitempty"`
	IsActive                bool                    `db:"is_active" json:"is_active"`
	NotificationPreferences NotificationPreferences `db:"notification_preferences" json:"notification_preferences"`
	EmergencyContactName    *string                 `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone   *string                 `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	CreatedAt               time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time               `db:"updated_at" json:"updated_at"`
	DeletedAt               *time.Time              `db:"deleted_at" json:"-"`
}

// Profile is the public view of a user returned by every endpoint.
type Profile struct {
	ID                      uuid.UUID               `json:"id"`
	Email                   string                  `json:"email"`
	Phone                   *string                 `json:"phone,omitempty"`
	FullName                string                  `json:"full_name"`
	DateOfBirth             *datetime.Time          `json:"date_of_birth,omitempty"`
	Gender                  *string                 `json:"gender,omitempty"`
	BloodGroup              *string                 `json:"blood_group,omitempty"`
	Allergies               []string                `json:"allergies"`
	MedicalConditions       []string                `json:"medical_conditions"`
	ProfilePictureURL       *string                 `json:"profile_picture_url,omitempty"`
	IsVerified              bool                    `json:"is_verified"`
	TwoFactorEnabled        bool                    `json:"two_factor_enabled"`
	LastLogin               *time.Time              `json:"last_login,omitempty"`
	IsActive                bool                    `json:"is_active"`
	NotificationPreferences NotificationPreferences `json:"notification_preferences"`
	EmergencyContactName    *string                 `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone   *string                 `json:"emergency_contact_phone,omitempty"`
	CreatedAt               time.Time               `json:"created_at"`
	UpdatedAt               time.Time               `json:"updated_at"`
}

// PublicProfile projects u onto the fields safe to return to its owner.
func PublicProfile(u *User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:                      u.ID,
		Email:                   u.Email,
		Phone:                   u.Phone,
		FullName:                u.FullName,
		DateOfBirth:             u.DateOfBirth,
		Gender:                  u.Gender,
		BloodGroup:              u.BloodGroup,
		Allergies:               nonNil(u.Allergies),
		MedicalConditions:       nonNil(u.MedicalConditions),
		ProfilePictureURL:       u.ProfilePictureURL,
		IsVerified:              u.IsVerified,
		TwoFactorEnabled:        u.TwoFactorEnabled,
		LastLogin:               u.LastLogin,
		IsActive:                u.IsActive,
		NotificationPreferences: u.NotificationPreferences,
		EmergencyContactName:    u.EmergencyContactName,
		EmergencyContactPhone:   u.EmergencyContactPhone,
		CreatedAt:               u.CreatedAt,
		UpdatedAt:               u.UpdatedAt,
	}
}

// ProfileUpdate carries the mutable profile fields. Omitted fields are left
// as they are; an explicit JSON null on a nullable column lands in Clear and
// resets that column.
type ProfileUpdate struct {
	FullName                *string                  `json:"full_name"`
	Phone                   *string                  `json:"phone"`
	DateOfBirth             *datetime.Time           `json:"date_of_birth"`
	Gender                  *string                  `json:"gender"`
	BloodGroup              *string                  `json:"blood_group"`
	Allergies               *[]string                `json:"allergies"`
	MedicalConditions       *[]string                `json:"medical_conditions"`
	EmergencyContactName    *string                  `json:"emergency_contact_name"`
	EmergencyContactPhone   *string                  `json:"emergency_contact_phone"`
	NotificationPreferences *NotificationPreferences `json:"notification_preferences"`
	ProfilePictureURL       *string                  `json:"profile_picture_url"`

	Clear []string `json:"-"`
}

// clearableColumns are the nullable users columns a profile update may reset.
var clearableColumns = []string{
	"phone",
	"date_of_birth",
	"gender",
	"blood_group",
	"emergency_contact_name",
	"emergency_contact_phone",
	"profile_picture_url",
}

func (u *ProfileUpdate) UnmarshalJSON(b []byte) error {
	type plain ProfileUpdate
	if err := json.Unmarshal(b, (*plain)(u)); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	u.Clear = nil
	for _, col := range clearableColumns {
		if v, ok := raw[col]; ok && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			u.Clear = append(u.Clear, col)
		}
	}
	return nil
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.Phone == nil && u.DateOfBirth == nil && u.Gender == nil &&
		u.BloodGroup == nil && u.Allergies == nil && u.MedicalConditions == nil &&
		u.EmergencyContactName == nil && u.EmergencyContactPhone == nil &&
		u.NotificationPreferences == nil && u.ProfilePictureURL == nil && len(u.Clear) == 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
