package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthsync/healthsync/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the auth and profile endpoints. requireAuth is
// attached per route so unmatched paths still fall through to the 404
// handler instead of failing authentication.
func (h *Handler) RegisterRoutes(api *echo.Group, requireAuth echo.MiddlewareFunc) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.Refresh)
	api.POST("/auth/logout", h.Logout, requireAuth)

	api.GET("/users/profile", h.GetProfile, requireAuth)
	api.PUT("/users/profile", h.UpdateProfile, requireAuth)
	api.DELETE("/users/profile", h.DeleteProfile, requireAuth)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.Created(c, res, "Registration successful")
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.OK(c, res, "Login successful")
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	pair, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return response.OK(c, pair, "Token refreshed")
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.svc.Logout(c.Request().Context()); err != nil {
		return err
	}
	return response.OK(c, nil, "Logout successful")
}

func (h *Handler) GetProfile(c echo.Context) error {
	p, err := h.svc.GetProfile(c.Request().Context())
	if err != nil {
		return err
	}
	return response.OK(c, p, "")
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var upd ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.UpdateProfile(c.Request().Context(), upd)
	if err != nil {
		return err
	}
	return response.OK(c, p, "Profile updated successfully")
}

func (h *Handler) DeleteProfile(c echo.Context) error {
	if err := h.svc.DeleteProfile(c.Request().Context()); err != nil {
		return err
	}
	return response.OK(c, nil, "Account deleted successfully")
}
