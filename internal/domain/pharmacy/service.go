package pharmacy

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/healthsync/healthsync/internal/platform/cache"
	"github.com/healthsync/healthsync/internal/platform/middleware"
	"github.com/healthsync/healthsync/internal/platform/telemetry"
	"github.com/healthsync/healthsync/pkg/apperrors"
	"github.com/healthsync/healthsync/pkg/pagination"
)

const (
	DefaultRadiusKM = 5.0
	MaxRadiusKM     = 100.0

	searchLimit     = 20
	maxSearchLength = 100
)

// NearbyBounds caps how many pharmacies a nearby search returns.
var NearbyBounds = pagination.Bounds{Default: 10, Max: 50}

// NearbyQuery is a point and radius search. A zero RadiusKM or Limit takes
// the default.
type NearbyQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKM  float64
	Limit     int
}

type Service struct {
	pharmacies PharmacyRepository
	medicines  MedicineRepository
	inventory  InventoryRepository
	cache      cache.Cache
	cacheTTL   time.Duration
}

// NewService wires the pharmacy repositories. A nil cache disables result
// caching.
func NewService(pharmacies PharmacyRepository, medicines MedicineRepository, inventory InventoryRepository, c cache.Cache, cacheTTL time.Duration) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		pharmacies: pharmacies,
		medicines:  medicines,
		inventory:  inventory,
		cache:      c,
		cacheTTL:   cacheTTL,
	}
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}

// Nearby returns active pharmacies within q.RadiusKM of the point, nearest
// first.
func (s *Service) Nearby(ctx context.Context, q NearbyQuery) ([]*NearbyPharmacy, error) {
	if !validCoordinate(q.Latitude, 90) {
		return nil, apperrors.Validation("latitude must be between -90 and 90")
	}
	if !validCoordinate(q.Longitude, 180) {
		return nil, apperrors.Validation("longitude must be between -180 and 180")
	}
	if q.RadiusKM == 0 {
		q.RadiusKM = DefaultRadiusKM
	}
	if math.IsNaN(q.RadiusKM) || q.RadiusKM < 0 || q.RadiusKM > MaxRadiusKM {
		return nil, apperrors.Validation("radius must be between 0 and 100 km")
	}
	if q.Limit <= 0 {
		q.Limit = NearbyBounds.Default
	}
	if q.Limit > NearbyBounds.Max {
		q.Limit = NearbyBounds.Max
	}

	ctx, span := telemetry.StartSpan(ctx, "pharmacy.nearby",
		attribute.Float64("search.radius_km", q.RadiusKM))
	defer span.End()

	candidates, err := s.pharmacies.ListActiveInBox(ctx, BoxAround(q.Latitude, q.Longitude, q.RadiusKM))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	results := []*NearbyPharmacy{}
	for _, p := range candidates {
		d := HaversineKM(q.Latitude, q.Longitude, p.Latitude, p.Longitude)
		if d > q.RadiusKM {
			continue
		}
		results = append(results, &NearbyPharmacy{Pharmacy: p, DistanceKM: math.Round(d*100) / 100})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceKM != results[j].DistanceKM {
			return results[i].DistanceKM < results[j].DistanceKM
		}
		return results[i].Name < results[j].Name
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}

	span.SetAttributes(attribute.Int("search.candidates", len(candidates)), attribute.Int("search.results", len(results)))
	return results, nil
}

func (s *Service) activePharmacy(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	p, err := s.pharmacies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperrors.NotFound("Pharmacy not found")
	}
	return p, nil
}

// ListInventory pages through a pharmacy's stock rows with their medicines.
func (s *Service) ListInventory(ctx context.Context, pharmacyID uuid.UUID, page pagination.Params) (*pagination.Response, error) {
	if _, err := s.activePharmacy(ctx, pharmacyID); err != nil {
		return nil, err
	}
	items, total, err := s.inventory.ListByPharmacy(ctx, pharmacyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return pagination.NewResponse(items, total, page), nil
}

func (s *Service) GetInventory(ctx context.Context, pharmacyID, medicineID uuid.UUID) (*MedicineInventory, error) {
	if _, err := s.activePharmacy(ctx, pharmacyID); err != nil {
		return nil, err
	}
	return s.inventory.Get(ctx, pharmacyID, medicineID)
}

func searchCacheKey(term string) string {
	return "medicines:search:" + strings.ToLower(term)
}

// SearchMedicines matches q against generic and brand names. Results are
// cached per lowercased term.
func (s *Service) SearchMedicines(ctx context.Context, q string) ([]*Medicine, error) {
	term := strings.TrimSpace(middleware.SanitizeString(q))
	if term == "" {
		return nil, apperrors.Validation("Search query required")
	}
	if len(term) > maxSearchLength {
		return nil, apperrors.Validation("Search query too long")
	}

	key := searchCacheKey(term)
	var cached []*Medicine
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return cached, nil
	}

	items, err := s.medicines.Search(ctx, term, searchLimit)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, key, items, s.cacheTTL); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("medicine search cache write failed")
	}
	return items, nil
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.medicines.GetByID(ctx, id)
}
