package pharmacy

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthsync/healthsync/internal/platform/db"
)

var pg = goqu.Dialect("postgres")

const pharmacyCols = `id, name, address, city, postal_code, country, latitude, longitude, phone,
	email, website, operating_hours, delivery_available, delivery_radius_km, pickup_available,
	api_integrated, api_provider, api_key, is_active, rating, reviews_count, created_at, updated_at`

const medicineCols = `id, generic_name, brand_name, description, strength, form, manufacturer,
	category, therapeutic_use, contraindications, side_effects, drug_interactions,
	dosage_instructions, storage_instructions, requires_prescription, is_available,
	created_at, updated_at`

// Inventory rows are always read joined with their medicine: i.* then m.*.
const inventoryJoinCols = `i.id, i.pharmacy_id, i.medicine_id, i.price, i.quantity_in_stock,
	i.batch_number, i.expiry_date, i.discount_percentage, i.last_updated, i.created_at, i.updated_at,
	m.id, m.generic_name, m.brand_name, m.description, m.strength, m.form, m.manufacturer,
	m.category, m.therapeutic_use, m.contraindications, m.side_effects, m.drug_interactions,
	m.dosage_instructions, m.storage_instructions, m.requires_prescription, m.is_available,
	m.created_at, m.updated_at`

// -- Pharmacy --

type pharmacyRepoPG struct {
	pool *pgxpool.Pool
}

func NewPharmacyRepo(pool *pgxpool.Pool) PharmacyRepository {
	return &pharmacyRepoPG{pool: pool}
}

func (r *pharmacyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+pharmacyCols+` FROM pharmacies WHERE id = $1`, id)
	p, err := scanPharmacy(row)
	if err != nil {
		return nil, db.MapError(err, "Pharmacy not found")
	}
	return p, nil
}

func (r *pharmacyRepoPG) ListActiveInBox(ctx context.Context, box BoundingBox) ([]*Pharmacy, error) {
	query, args, err := buildNearbyQuery(box)
	if err != nil {
		return nil, err
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(err, "Pharmacy not found")
	}
	defer rows.Close()

	items := []*Pharmacy{}
	for rows.Next() {
		p, err := scanPharmacy(rows)
		if err != nil {
			return nil, db.MapError(err, "Pharmacy not found")
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// buildNearbyQuery selects active pharmacies inside box. Exact distance
// filtering happens in the service.
func buildNearbyQuery(box BoundingBox) (string, []interface{}, error) {
	where := []exp.Expression{
		goqu.C("is_active").IsTrue(),
		goqu.C("latitude").Between(goqu.Range(box.MinLat, box.MaxLat)),
	}
	if !box.WrapsLongitude {
		where = append(where, goqu.C("longitude").Between(goqu.Range(box.MinLon, box.MaxLon)))
	}
	return pg.From("pharmacies").
		Select(goqu.L(pharmacyCols)).
		Where(where...).
		Prepared(true).
		ToSQL()
}

func scanPharmacy(row pgx.Row) (*Pharmacy, error) {
	var p Pharmacy
	err := row.Scan(
		&p.ID, &p.Name, &p.Address, &p.City, &p.PostalCode, &p.Country, &p.Latitude, &p.Longitude, &p.Phone,
		&p.Email, &p.Website, &p.OperatingHours, &p.DeliveryAvailable, &p.DeliveryRadiusKM, &p.PickupAvailable,
		&p.APIIntegrated, &p.APIProvider, &p.APIKey, &p.IsActive, &p.Rating, &p.ReviewsCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.OperatingHours == nil {
		p.OperatingHours = map[string]DayHours{}
	}
	return &p, nil
}

// -- Medicine --

type medicineRepoPG struct {
	pool *pgxpool.Pool
}

func NewMedicineRepo(pool *pgxpool.Pool) MedicineRepository {
	return &medicineRepoPG{pool: pool}
}

func (r *medicineRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+medicineCols+` FROM medicines WHERE id = $1`, id)
	m, err := scanMedicine(row)
	if err != nil {
		return nil, db.MapError(err, "Medicine not found")
	}
	return m, nil
}

func (r *medicineRepoPG) Search(ctx context.Context, term string, limit int) ([]*Medicine, error) {
	query, args, err := buildMedicineSearch(term, limit)
	if err != nil {
		return nil, err
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(err, "Medicine not found")
	}
	defer rows.Close()

	items := []*Medicine{}
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, db.MapError(err, "Medicine not found")
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildMedicineSearch(term string, limit int) (string, []interface{}, error) {
	pattern := "%" + likeEscaper.Replace(term) + "%"
	return pg.From("medicines").
		Select(goqu.L(medicineCols)).
		Where(goqu.Or(
			goqu.C("generic_name").ILike(pattern),
			goqu.C("brand_name").ILike(pattern),
		)).
		Order(goqu.C("generic_name").Asc(), goqu.C("brand_name").Asc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
}

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(medicineTargets(&m)...)
	if err != nil {
		return nil, err
	}
	m.normalize()
	return &m, nil
}

func medicineTargets(m *Medicine) []interface{} {
	return []interface{}{
		&m.ID, &m.GenericName, &m.BrandName, &m.Description, &m.Strength, &m.Form, &m.Manufacturer,
		&m.Category, &m.TherapeuticUse, &m.Contraindications, &m.SideEffects, &m.DrugInteractions,
		&m.DosageInstructions, &m.StorageInstructions, &m.RequiresPrescription, &m.IsAvailable,
		&m.CreatedAt, &m.UpdatedAt,
	}
}

// -- Inventory --

type inventoryRepoPG struct {
	pool *pgxpool.Pool
}

func NewInventoryRepo(pool *pgxpool.Pool) InventoryRepository {
	return &inventoryRepoPG{pool: pool}
}

func (r *inventoryRepoPG) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, limit, offset int) ([]*MedicineInventory, int, error) {
	countQuery, countArgs, err := pg.From("medicine_inventory").
		Select(goqu.COUNT("*")).
		Where(goqu.C("pharmacy_id").Eq(pharmacyID.String())).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err, "Pharmacy not found")
	}

	query, args, err := buildInventoryList(pharmacyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.MapError(err, "Pharmacy not found")
	}
	defer rows.Close()

	items := []*MedicineInventory{}
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, 0, db.MapError(err, "Pharmacy not found")
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func (r *inventoryRepoPG) Get(ctx context.Context, pharmacyID, medicineID uuid.UUID) (*MedicineInventory, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+inventoryJoinCols+`
		FROM medicine_inventory i
		JOIN medicines m ON m.id = i.medicine_id
		WHERE i.pharmacy_id = $1 AND i.medicine_id = $2
		ORDER BY i.last_updated DESC
		LIMIT 1`, pharmacyID, medicineID)
	inv, err := scanInventory(row)
	if err != nil {
		return nil, db.MapError(err, "Medicine not stocked at this pharmacy")
	}
	return inv, nil
}

func buildInventoryList(pharmacyID uuid.UUID, limit, offset int) (string, []interface{}, error) {
	return pg.From(goqu.T("medicine_inventory").As("i")).
		Join(goqu.T("medicines").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("i.medicine_id")))).
		Select(goqu.L(inventoryJoinCols)).
		Where(goqu.I("i.pharmacy_id").Eq(pharmacyID.String())).
		Order(goqu.I("m.generic_name").Asc(), goqu.I("i.last_updated").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		Prepared(true).
		ToSQL()
}

func scanInventory(row pgx.Row) (*MedicineInventory, error) {
	var inv MedicineInventory
	var m Medicine
	targets := []interface{}{
		&inv.ID, &inv.PharmacyID, &inv.MedicineID, &inv.Price, &inv.QuantityInStock,
		&inv.BatchNumber, &inv.ExpiryDate, &inv.DiscountPercentage, &inv.LastUpdated, &inv.CreatedAt, &inv.UpdatedAt,
	}
	if err := row.Scan(append(targets, medicineTargets(&m)...)...); err != nil {
		return nil, err
	}
	m.normalize()
	inv.Medicine = &m
	return &inv, nil
}
