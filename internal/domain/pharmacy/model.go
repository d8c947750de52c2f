package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// DayHours is one weekday's opening window, as "HH:MM" strings.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Pharmacy maps to the pharmacies table.
type Pharmacy struct {
	ID                uuid.UUID           `db:"id" json:"id"`
	Name              string              `db:"name" json:"name"`
	Address           string              `db:"address" json:"address"`
	City              string              `db:"city" json:"city"`
	PostalCode        *string             `db:"postal_code" json:"postal_code,omitempty"`
	Country           string              `db:"country" json:"country"`
	Latitude          float64             `db:"latitude" json:"latitude"`
	Longitude         float64             `db:"longitude" json:"longitude"`
	Phone             string              `db:"phone" json:"phone"`
	Email             *string             `db:"email" json:"email,omitempty"`
	Website           *string             `db:"website" json:"website,omitempty"`
	OperatingHours    map[string]DayHours `db:"operating_hours" json:"operating_hours"`
	DeliveryAvailable bool                `db:"delivery_available" json:"delivery_available"`
	DeliveryRadiusKM  *int                `db:"delivery_radius_km" json:"delivery_radius_km,omitempty"`
	PickupAvailable   bool                `db:"pickup_available" json:"pickup_available"`
	APIIntegrated     bool                `db:"api_integrated" json:"api_integrated"`
	APIProvider       string              `db:"api_provider" json:"api_provider"`
	APIKey            *string             `db:"api_key" json:"-"`
	IsActive          bool                `db:"is_active" json:"is_active"`
	Rating            float64             `db:"rating" json:"rating"`
	ReviewsCount      int                 `db:"reviews_count" json:"reviews_count"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

// NearbyPharmacy is a pharmacy annotated with its distance from the search
// point.
type NearbyPharmacy struct {
	*Pharmacy
	DistanceKM float64 `json:"distance_km"`
}

// Medicine maps to the medicines table.
type Medicine struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	GenericName          string    `db:"generic_name" json:"generic_name"`
	BrandName            string    `db:"brand_name" json:"brand_name"`
	Description          *string   `db:"description" json:"description,omitempty"`
	Strength             string    `db:"strength" json:"strength"`
	Form                 string    `db:"form" json:"form"`
	Manufacturer         *string   `db:"manufacturer" json:"manufacturer,omitempty"`
	Category             *string   `db:"category" json:"category,omitempty"`
	TherapeuticUse       *string   `db:"therapeutic_use" json:"therapeutic_use,omitempty"`
	Contraindications    []string  `db:"contraindications" json:"contraindications"`
	SideEffects          []string  `db:"side_effects" json:"side_effects"`
	DrugInteractions     []string  `db:"drug_interactions" json:"drug_interactions"`
	DosageInstructions   *string   `db:"dosage_instructions" json:"dosage_instructions,omitempty"`
	StorageInstructions  *string   `db:"storage_instructions" json:"storage_instructions,omitempty"`
	RequiresPrescription bool      `db:"requires_prescription" json:"requires_prescription"`
	IsAvailable          bool      `db:"is_available" json:"is_available"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// MedicineInventory is one stock row of a medicine at a pharmacy. Medicine is
// populated on listing endpoints.
type MedicineInventory struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	PharmacyID         uuid.UUID  `db:"pharmacy_id" json:"pharmacy_id"`
	MedicineID         uuid.UUID  `db:"medicine_id" json:"medicine_id"`
	Price              float64    `db:"price" json:"price"`
	QuantityInStock    int        `db:"quantity_in_stock" json:"quantity_in_stock"`
	BatchNumber        *string    `db:"batch_number" json:"batch_number,omitempty"`
	ExpiryDate         *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	DiscountPercentage float64    `db:"discount_percentage" json:"discount_percentage"`
	LastUpdated        time.Time  `db:"last_updated" json:"last_updated"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
	Medicine           *Medicine  `json:"medicine,omitempty"`
}

// InStock reports whether at least one unit is available.
func (i *MedicineInventory) InStock() bool {
	return i.QuantityInStock > 0
}

func (m *Medicine) normalize() {
	m.Contraindications = orEmpty(m.Contraindications)
	m.SideEffects = orEmpty(m.SideEffects)
	m.DrugInteractions = orEmpty(m.DrugInteractions)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
