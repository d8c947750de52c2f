package visit

import (
	"net/http"

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
	api.GET("/visits", h.ListVisits, requireAuth)
	api.POST("/visits", h.CreateVisit, requireAuth)
	api.GET("/visits/:id", h.GetVisit, requireAuth)
}

func (h *Handler) ListVisits(c echo.Context) error {
	items, err := h.svc.ListVisits(c.Request().Context())
	if err != nil {
		return err
	}
	return response.OK(c, items, "")
}

func (h *Handler) CreateVisit(c echo.Context) error {
	var req CreateVisitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	detail, err := h.svc.CreateVisit(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.Created(c, detail, "Visit recorded successfully")
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	detail, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, detail, "")
}
