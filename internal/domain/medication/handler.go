package medication

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthsync/healthsync/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, requireAuth echo.MiddlewareFunc) {
	api.GET("/prescriptions", h.ListPrescriptions, requireAuth)
	api.POST("/prescriptions", h.CreatePrescription, requireAuth)
	api.POST("/prescriptions/:id/refill", h.RefillPrescription, requireAuth)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	activeOnly := false
	if v := c.QueryParam("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "active must be true or false")
		}
		activeOnly = b
	}
	items, err := h.svc.ListPrescriptions(c.Request().Context(), activeOnly)
	if err != nil {
		return err
	}
	return response.OK(c, items, "")
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var req CreatePrescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.CreatePrescription(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.Created(c, p, "Prescription recorded successfully")
}

func (h *Handler) RefillPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Refill(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, p, "Prescription refilled successfully")
}
