package pharmacy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync/healthsync/internal/platform/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer() (*fixture, *echo.Echo) {
	f := newFixture()
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop(), false)
	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))
	return f, e
}

func get(e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHandler_Nearby(t *testing.T) {
	_, e := newTestServer()

	rec, env := get(e, "/api/v1/pharmacies/nearby?latitude=6.9271&longitude=79.8612")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Union Chemists", items[0]["name"])
	assert.Contains(t, items[0], "distance_km")
	assert.NotContains(t, items[0], "api_key")

	rec, env = get(e, "/api/v1/pharmacies/nearby?latitude=6.9271&longitude=79.8612&radius=10&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 1)
}

func TestHandler_Nearby_BadInput(t *testing.T) {
	_, e := newTestServer()
	tests := []struct {
		query   string
		message string
	}{
		{"", "Latitude and longitude required"},
		{"?latitude=6.9", "Latitude and longitude required"},
		{"?longitude=79.8", "Latitude and longitude required"},
		{"?latitude=north&longitude=79.8", "Latitude and longitude must be numbers"},
		{"?latitude=95&longitude=79.8", "latitude must be between -90 and 90"},
		{"?latitude=6.9&longitude=79.8&radius=abc", "radius must be a positive number"},
	}
	for _, tt := range tests {
		rec, env := get(e, "/api/v1/pharmacies/nearby"+tt.query)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.query)
		assert.False(t, env.Success)
		assert.Equal(t, tt.message, env.Message, tt.query)
	}
}

func TestHandler_Inventory(t *testing.T) {
	f, e := newTestServer()

	rec, env := get(e, "/api/v1/pharmacies/"+f.near.ID.String()+"/inventory?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items   []MedicineInventory `json:"items"`
		Total   int                 `json:"total"`
		HasMore bool                `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasMore)

	rec, env = get(e, "/api/v1/pharmacies/"+f.near.ID.String()+"/inventory/"+f.paracetamol.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var inv MedicineInventory
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	assert.Equal(t, f.paracetamol.ID, inv.MedicineID)
	require.NotNil(t, inv.Medicine)
	assert.Equal(t, "Panadol", inv.Medicine.BrandName)

	rec, env = get(e, "/api/v1/pharmacies/"+f.mid.ID.String()+"/inventory/"+f.paracetamol.ID.String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Medicine not stocked at this pharmacy", env.Message)

	rec, _ = get(e, "/api/v1/pharmacies/not-a-uuid/inventory")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Medicines(t *testing.T) {
	f, e := newTestServer()

	rec, env := get(e, "/api/v1/medicines/search?q="+url.QueryEscape("panadol"))
	require.Equal(t, http.StatusOK, rec.Code)
	var items []Medicine
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Paracetamol", items[0].GenericName)

	rec, env = get(e, "/api/v1/medicines/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Search query required", env.Message)

	rec, env = get(e, "/api/v1/medicines/"+f.amoxicillin.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var m Medicine
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, "Amoxil", m.BrandName)

	rec, _ = get(e, "/api/v1/medicines/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
