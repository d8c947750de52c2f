package medication

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthsync/healthsync/pkg/datetime"
)

// FrequencyDetails refines the free-text frequency.
type FrequencyDetails struct {
	TimesPerDay   int      `json:"times_per_day"`
	SpecificTimes []string `json:"specific_times"`
	WithFood      *bool    `json:"with_food"`
}

// Prescription maps to the prescriptions table. Every prescription belongs
// to a doctor visit of the same user.
type Prescription struct {
	ID                   uuid.UUID        `db:"id" json:"id"`
	VisitID              uuid.UUID        `db:"visit_id" json:"visit_id"`
	UserID               uuid.UUID        `db:"user_id" json:"user_id"`
	MedicationName       string           `db:"medication_name" json:"medication_name"`
	GenericName          *string          `db:"generic_name" json:"generic_name,omitempty"`
	Dosage               string           `db:"dosage" json:"dosage"`
	DosageUnit           *string          `db:"dosage_unit" json:"dosage_unit,omitempty"`
	Frequency            string           `db:"frequency" json:"frequency"`
	FrequencyDetails     FrequencyDetails `db:"frequency_details" json:"frequency_details"`
	DurationDays         *int             `db:"duration_days" json:"duration_days,omitempty"`
	Quantity             *int             `db:"quantity" json:"quantity,omitempty"`
	StartDate            datetime.Time    `db:"start_date" json:"start_date"`
	EndDate              *datetime.Time   `db:"end_date" json:"end_date,omitempty"`
	PrescriptionImageURL *string          `db:"prescription_image_url" json:"prescription_image_url,omitempty"`
	RefillCount          int              `db:"refill_count" json:"refill_count"`
	RefillRemaining      int              `db:"refill_remaining" json:"refill_remaining"`
	LastRefilledDate     *datetime.Time   `db:"last_refilled_date" json:"last_refilled_date,omitempty"`
	NextRefillDate       *datetime.Time   `db:"next_refill_date" json:"next_refill_date,omitempty"`
	IsActive             bool             `db:"is_active" json:"is_active"`
	RefillReminderSent   bool             `db:"refill_reminder_sent" json:"refill_reminder_sent"`
	Instructions         *string          `db:"instructions" json:"instructions,omitempty"`
	SideEffects          []string         `db:"side_effects" json:"side_effects"`
	Contraindications    []string         `db:"contraindications" json:"contraindications"`
	DrugInteractions     []string         `db:"drug_interactions" json:"drug_interactions"`
	Notes                *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt            time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time        `db:"updated_at" json:"updated_at"`
}

// CreatePrescriptionRequest is the body of POST /prescriptions and of each
// element of a visit's prescriptions array. IsActive defaults to true.
type CreatePrescriptionRequest struct {
	VisitID              uuid.UUID         `json:"visit_id"`
	MedicationName       string            `json:"medication_name"`
	GenericName          *string           `json:"generic_name"`
	Dosage               string            `json:"dosage"`
	DosageUnit           *string           `json:"dosage_unit"`
	Frequency            string            `json:"frequency"`
	FrequencyDetails     *FrequencyDetails `json:"frequency_details"`
	DurationDays         *int              `json:"duration_days"`
	Quantity             *int              `json:"quantity"`
	StartDate            datetime.Time     `json:"start_date"`
	EndDate              *datetime.Time    `json:"end_date"`
	PrescriptionImageURL *string           `json:"prescription_image_url"`
	RefillRemaining      int               `json:"refill_remaining"`
	NextRefillDate       *datetime.Time    `json:"next_refill_date"`
	IsActive             *bool             `json:"is_active"`
	Instructions         *string           `json:"instructions"`
	SideEffects          []string          `json:"side_effects"`
	Contraindications    []string          `json:"contraindications"`
	DrugInteractions     []string          `json:"drug_interactions"`
	Notes                *string           `json:"notes"`
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
