package pharmacy

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthsync/healthsync/pkg/apperrors"
	"github.com/healthsync/healthsync/pkg/pagination"
	"github.com/healthsync/healthsync/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the pharmacy and medicine catalog routes. All of them
// are public.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/pharmacies/nearby", h.Nearby)
	api.GET("/pharmacies/:id/inventory", h.ListInventory)
	api.GET("/pharmacies/:id/inventory/:medicineId", h.GetInventory)

	api.GET("/medicines/search", h.SearchMedicines)
	api.GET("/medicines/:id", h.GetMedicine)
}

func parseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) Nearby(c echo.Context) error {
	latRaw, lonRaw := c.QueryParam("latitude"), c.QueryParam("longitude")
	if latRaw == "" || lonRaw == "" {
		return apperrors.Validation("Latitude and longitude required")
	}
	lat, latErr := strconv.ParseFloat(latRaw, 64)
	lon, lonErr := strconv.ParseFloat(lonRaw, 64)
	if latErr != nil || lonErr != nil {
		return apperrors.Validation("Latitude and longitude must be numbers")
	}

	q := NearbyQuery{
		Latitude:  lat,
		Longitude: lon,
		Limit:     pagination.WithBounds(c, NearbyBounds).Limit,
	}
	if raw := c.QueryParam("radius"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			return apperrors.Validation("radius must be a positive number")
		}
		q.RadiusKM = radius
	}

	items, err := h.svc.Nearby(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return response.OK(c, items, "")
}

func (h *Handler) ListInventory(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	page, err := h.svc.ListInventory(c.Request().Context(), id, pagination.FromContext(c))
	if err != nil {
		return err
	}
	return response.OK(c, page, "")
}

func (h *Handler) GetInventory(c echo.Context) error {
	pharmacyID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	medicineID, err := parseUUIDParam(c, "medicineId")
	if err != nil {
		return err
	}
	inv, err := h.svc.GetInventory(c.Request().Context(), pharmacyID, medicineID)
	if err != nil {
		return err
	}
	return response.OK(c, inv, "")
}

func (h *Handler) SearchMedicines(c echo.Context) error {
	items, err := h.svc.SearchMedicines(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return response.OK(c, items, "")
}

func (h *Handler) GetMedicine(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	m, err := h.svc.GetMedicine(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, m, "")
}
