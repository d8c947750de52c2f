package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync/healthsync/internal/platform/cache"
	"github.com/healthsync/healthsync/pkg/apperrors"
	"github.com/healthsync/healthsync/pkg/pagination"
)

// -- Mock Repositories --

type mockPharmacyRepo struct {
	items map[uuid.UUID]*Pharmacy
}

func (m *mockPharmacyRepo) GetByID(_ context.Context, id uuid.UUID) (*Pharmacy, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, apperrors.NotFound("Pharmacy not found")
	}
	return p, nil
}

func (m *mockPharmacyRepo) ListActiveInBox(_ context.Context, box BoundingBox) ([]*Pharmacy, error) {
	items := []*Pharmacy{}
	for _, p := range m.items {
		if !p.IsActive || p.Latitude < box.MinLat || p.Latitude > box.MaxLat {
			continue
		}
		if !box.WrapsLongitude && (p.Longitude < box.MinLon || p.Longitude > box.MaxLon) {
			continue
		}
		items = append(items, p)
	}
	return items, nil
}

type mockMedicineRepo struct {
	items     []*Medicine
	searches  int
	lastLimit int
}

func (m *mockMedicineRepo) GetByID(_ context.Context, id uuid.UUID) (*Medicine, error) {
	for _, med := range m.items {
		if med.ID == id {
			return med, nil
		}
	}
	return nil, apperrors.NotFound("Medicine not found")
}

func (m *mockMedicineRepo) Search(_ context.Context, term string, limit int) ([]*Medicine, error) {
	m.searches++
	m.lastLimit = limit
	term = strings.ToLower(term)
	items := []*Medicine{}
	for _, med := range m.items {
		if strings.Contains(strings.ToLower(med.GenericName), term) || strings.Contains(strings.ToLower(med.BrandName), term) {
			items = append(items, med)
		}
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

type mockInventoryRepo struct {
	rows []*MedicineInventory
}

func (m *mockInventoryRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID, limit, offset int) ([]*MedicineInventory, int, error) {
	all := []*MedicineInventory{}
	for _, r := range m.rows {
		if r.PharmacyID == pharmacyID {
			all = append(all, r)
		}
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *mockInventoryRepo) Get(_ context.Context, pharmacyID, medicineID uuid.UUID) (*MedicineInventory, error) {
	for _, r := range m.rows {
		if r.PharmacyID == pharmacyID && r.MedicineID == medicineID {
			return r, nil
		}
	}
	return nil, apperrors.NotFound("Medicine not stocked at this pharmacy")
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	fail bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return b, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.fail {
		return errors.New("connection refused")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Ping(context.Context) error { return nil }

type fixture struct {
	svc        *Service
	pharmacies *mockPharmacyRepo
	medicines  *mockMedicineRepo
	inventory  *mockInventoryRepo
	cache      *memoryCache

	near, mid, north, kandy, closed *Pharmacy
	paracetamol, amoxicillin        *Medicine
}

func newPharmacy(name string, lat, lon float64, active bool) *Pharmacy {
	return &Pharmacy{
		ID: uuid.New(), Name: name, Address: "1 Main St", City: "Colombo", Country: "Sri Lanka",
		Latitude: lat, Longitude: lon, Phone: "+94 11 000 0000", IsActive: active,
		APIProvider: "manual", Rating: 4.5, OperatingHours: map[string]DayHours{},
	}
}

func newFixture() *fixture {
	f := &fixture{
		near:   newPharmacy("Union Chemists", 6.9300, 79.8600, true),
		mid:    newPharmacy("Healthguard", 6.9500, 79.8700, true),
		north:  newPharmacy("Northside Pharmacy", 6.9800, 79.8612, true),
		kandy:  newPharmacy("Kandy Pharmacy", 7.2906, 80.6337, true),
		closed: newPharmacy("Closed Pharmacy", 6.9275, 79.8610, false),
		paracetamol: &Medicine{
			ID: uuid.New(), GenericName: "Paracetamol", BrandName: "Panadol", Strength: "500mg", Form: "tablet",
		},
		amoxicillin: &Medicine{
			ID: uuid.New(), GenericName: "Amoxicillin", BrandName: "Amoxil", Strength: "250mg", Form: "capsule",
		},
	}
	f.pharmacies = &mockPharmacyRepo{items: map[uuid.UUID]*Pharmacy{}}
	for _, p := range []*Pharmacy{f.near, f.mid, f.north, f.kandy, f.closed} {
		f.pharmacies.items[p.ID] = p
	}
	f.medicines = &mockMedicineRepo{items: []*Medicine{f.paracetamol, f.amoxicillin}}
	f.inventory = &mockInventoryRepo{rows: []*MedicineInventory{
		{ID: uuid.New(), PharmacyID: f.near.ID, MedicineID: f.paracetamol.ID, Price: 12.5, QuantityInStock: 200, Medicine: f.paracetamol},
		{ID: uuid.New(), PharmacyID: f.near.ID, MedicineID: f.amoxicillin.ID, Price: 48, Medicine: f.amoxicillin},
		{ID: uuid.New(), PharmacyID: f.closed.ID, MedicineID: f.paracetamol.ID, Price: 11, QuantityInStock: 5, Medicine: f.paracetamol},
	}}
	f.cache = newMemoryCache()
	f.svc = NewService(f.pharmacies, f.medicines, f.inventory, f.cache, 5*time.Minute)
	return f
}

func names(items []*NearbyPharmacy) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.Name
	}
	return out
}

func TestNearby_DefaultRadiusNearestFirst(t *testing.T) {
	f := newFixture()

	items, err := f.svc.Nearby(context.Background(), NearbyQuery{Latitude: colomboLat, Longitude: colomboLon})
	require.NoError(t, err)
	assert.Equal(t, []string{"Union Chemists", "Healthguard"}, names(items))
	assert.InDelta(t, 0.35, items[0].DistanceKM, 0.001)
	assert.InDelta(t, 2.73, items[1].DistanceKM, 0.001)
}

func TestNearby_LargerRadiusAndLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	items, err := f.svc.Nearby(ctx, NearbyQuery{Latitude: colomboLat, Longitude: colomboLon, RadiusKM: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Union Chemists", "Healthguard", "Northside Pharmacy"}, names(items))

	items, err = f.svc.Nearby(ctx, NearbyQuery{Latitude: colomboLat, Longitude: colomboLon, RadiusKM: 100, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = f.svc.Nearby(ctx, NearbyQuery{Latitude: colomboLat, Longitude: colomboLon, RadiusKM: 100})
	require.NoError(t, err)
	assert.Equal(t, "Kandy Pharmacy", items[len(items)-1].Name)
	for _, p := range items {
		assert.True(t, p.IsActive)
		assert.LessOrEqual(t, p.DistanceKM, 100.0)
	}
}

func TestNearby_Validation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name string
		q    NearbyQuery
	}{
		{"latitude too high", NearbyQuery{Latitude: 91, Longitude: 0}},
		{"latitude too low", NearbyQuery{Latitude: -90.5, Longitude: 0}},
		{"longitude out of range", NearbyQuery{Latitude: 0, Longitude: 181}},
		{"negative radius", NearbyQuery{Latitude: 0, Longitude: 0, RadiusKM: -1}},
		{"radius too large", NearbyQuery{Latitude: 0, Longitude: 0, RadiusKM: 500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Nearby(context.Background(), tt.q)
			assert.True(t, apperrors.Is(err, apperrors.TypeValidation), "got %v", err)
		})
	}
}

func TestSearchMedicines(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	items, err := f.svc.SearchMedicines(ctx, "PANA")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Paracetamol", items[0].GenericName)

	items, err = f.svc.SearchMedicines(ctx, "amox")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Amoxil", items[0].BrandName)

	items, err = f.svc.SearchMedicines(ctx, "insulin")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestSearchMedicines_CappedAtTwenty(t *testing.T) {
	f := newFixture()
	for i := 0; i < 30; i++ {
		f.medicines.items = append(f.medicines.items, &Medicine{
			ID:          uuid.New(),
			GenericName: fmt.Sprintf("Cetirizine %d", i),
			BrandName:   fmt.Sprintf("Zyrtec %d", i),
		})
	}

	items, err := f.svc.SearchMedicines(context.Background(), "cetirizine")
	require.NoError(t, err)
	assert.Len(t, items, 20)
	assert.Equal(t, 20, f.medicines.lastLimit)
}

func TestSearchMedicines_RequiresQuery(t *testing.T) {
	f := newFixture()
	for _, q := range []string{"", "   ", "\x00"} {
		_, err := f.svc.SearchMedicines(context.Background(), q)
		require.Error(t, err)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, "Search query required", appErr.Message)
	}

	_, err := f.svc.SearchMedicines(context.Background(), strings.Repeat("a", 101))
	assert.True(t, apperrors.Is(err, apperrors.TypeValidation))
	assert.Zero(t, f.medicines.searches)
}

func TestSearchMedicines_Cached(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.SearchMedicines(ctx, "Para")
	require.NoError(t, err)
	second, err := f.svc.SearchMedicines(ctx, "para")
	require.NoError(t, err)

	assert.Equal(t, 1, f.medicines.searches)
	assert.Equal(t, 5*time.Minute, f.cache.ttls["medicines:search:para"])
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestSearchMedicines_CacheFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.cache.fail = true

	items, err := f.svc.SearchMedicines(context.Background(), "para")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSearchMedicines_NilCache(t *testing.T) {
	f := newFixture()
	svc := NewService(f.pharmacies, f.medicines, f.inventory, nil, time.Minute)

	_, err := svc.SearchMedicines(context.Background(), "para")
	require.NoError(t, err)
	_, err = svc.SearchMedicines(context.Background(), "para")
	require.NoError(t, err)
	assert.Equal(t, 2, f.medicines.searches)
}

func TestListInventory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	page, err := f.svc.ListInventory(ctx, f.near.ID, pagination.Params{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasMore)
	rows, ok := page.Items.([]*MedicineInventory)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.NotNil(t, rows[0].Medicine)

	_, err = f.svc.ListInventory(ctx, f.closed.ID, pagination.Params{Limit: 20})
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))

	_, err = f.svc.ListInventory(ctx, uuid.New(), pagination.Params{Limit: 20})
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))
}

func TestGetInventory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv, err := f.svc.GetInventory(ctx, f.near.ID, f.paracetamol.ID)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, inv.Price, 0.001)
	assert.True(t, inv.InStock())

	inv, err = f.svc.GetInventory(ctx, f.near.ID, f.amoxicillin.ID)
	require.NoError(t, err)
	assert.False(t, inv.InStock())

	_, err = f.svc.GetInventory(ctx, f.mid.ID, f.paracetamol.ID)
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))
}

func TestGetMedicine(t *testing.T) {
	f := newFixture()

	m, err := f.svc.GetMedicine(context.Background(), f.amoxicillin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin", m.GenericName)

	_, err = f.svc.GetMedicine(context.Background(), uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))
}
