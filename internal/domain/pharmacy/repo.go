package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type PharmacyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error)
	// ListActiveInBox returns active pharmacies inside box, unordered.
	ListActiveInBox(ctx context.Context, box BoundingBox) ([]*Pharmacy, error)
}

type MedicineRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)
	// Search matches term as a case-insensitive substring of the generic or
	// brand name.
	Search(ctx context.Context, term string, limit int) ([]*Medicine, error)
}

type InventoryRepository interface {
	ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, limit, offset int) ([]*MedicineInventory, int, error)
	// Get returns the most recently updated stock row for the pair.
	Get(ctx context.Context, pharmacyID, medicineID uuid.UUID) (*MedicineInventory, error)
}
