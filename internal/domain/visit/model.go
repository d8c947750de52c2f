package visit

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthsync/healthsync/internal/domain/medication"
	"github.com/healthsync/healthsync/pkg/datetime"
)

var validVisitTypes = map[string]bool{
	"consultation": true, "follow-up": true, "emergency": true, "routine": true,
}

// VitalSigns recorded during a visit. Every reading is optional.
type VitalSigns struct {
	BloodPressure *string  `json:"blood_pressure"`
	HeartRate     *int     `json:"heart_rate"`
	Temperature   *float64 `json:"temperature"`
	Weight        *float64 `json:"weight"`
	Height        *float64 `json:"height"`
}

// Visit maps to the doctor_visits table.
type Visit struct {
	ID                        uuid.UUID                `db:"id" json:"id"`
	UserID                    uuid.UUID                `db:"user_id" json:"user_id"`
	DoctorID                  *uuid.UUID               `db:"doctor_id" json:"doctor_id,omitempty"`
	DoctorName                string                   `db:"doctor_name" json:"doctor_name"`
	DoctorSpecialty           *string                  `db:"doctor_specialty" json:"doctor_specialty,omitempty"`
	HospitalName              *string                  `db:"hospital_name" json:"hospital_name,omitempty"`
	VisitDate                 datetime.Time            `db:"visit_date" json:"visit_date"`
	VisitType                 string                   `db:"visit_type" json:"visit_type"`
	Reason                    *string                  `db:"reason" json:"reason,omitempty"`
	Diagnosis                 *string                  `db:"diagnosis" json:"diagnosis,omitempty"`
	Symptoms                  []string                 `db:"symptoms" json:"symptoms"`
	Treatment                 *string                  `db:"treatment" json:"treatment,omitempty"`
	Notes                     *string                  `db:"notes" json:"notes,omitempty"`
	PrescriptionImageURL      *string                  `db:"prescription_image_url" json:"prescription_image_url,omitempty"`
	PrescriptionExtractedData []map[string]interface{} `db:"prescription_extracted_data" json:"prescription_extracted_data"`
	FollowUpRequired          bool                     `db:"follow_up_required" json:"follow_up_required"`
	FollowUpDate              *datetime.Time           `db:"follow_up_date" json:"follow_up_date,omitempty"`
	FollowUpNotes             *string                  `db:"follow_up_notes" json:"follow_up_notes,omitempty"`
	VitalSigns                VitalSigns               `db:"vital_signs" json:"vital_signs"`
	TestsOrdered              []string                 `db:"tests_ordered" json:"tests_ordered"`
	Attachments               []string                 `db:"attachments" json:"attachments"`
	CreatedAt                 time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time                `db:"updated_at" json:"updated_at"`
}

// CreateVisitRequest is the body of POST /visits. Prescriptions, when given,
// are stored in the same transaction as the visit.
type CreateVisitRequest struct {
	DoctorID                  *uuid.UUID                             `json:"doctor_id"`
	DoctorName                string                                 `json:"doctor_name"`
	DoctorSpecialty           *string                                `json:"doctor_specialty"`
	HospitalName              *string                                `json:"hospital_name"`
	VisitDate                 datetime.Time                          `json:"visit_date"`
	VisitType                 string                                 `json:"visit_type"`
	Reason                    *string                                `json:"reason"`
	Diagnosis                 *string                                `json:"diagnosis"`
	Symptoms                  []string                               `json:"symptoms"`
	Treatment                 *string                                `json:"treatment"`
	Notes                     *string                                `json:"notes"`
	PrescriptionImageURL      *string                                `json:"prescription_image_url"`
	PrescriptionExtractedData []map[string]interface{}               `json:"prescription_extracted_data"`
	FollowUpRequired          bool                                   `json:"follow_up_required"`
	FollowUpDate              *datetime.Time                         `json:"follow_up_date"`
	FollowUpNotes             *string                                `json:"follow_up_notes"`
	VitalSigns                *VitalSigns                            `json:"vital_signs"`
	TestsOrdered              []string                               `json:"tests_ordered"`
	Attachments               []string                               `json:"attachments"`
	Prescriptions             []medication.CreatePrescriptionRequest `json:"prescriptions"`
}

// Detail is a visit together with the prescriptions written during it.
type Detail struct {
	*Visit
	Prescriptions []*medication.Prescription `json:"prescriptions"`
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
