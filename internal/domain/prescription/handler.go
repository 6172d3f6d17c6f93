package prescription

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mednow/mednow/internal/platform/auth"
	"github.com/mednow/mednow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/prescriptions", h.Create, auth.RequireRole(auth.RolePhysician))
	api.GET("/prescriptions", h.List, auth.RequireRole(auth.RolePatient, auth.RolePhysician, auth.RolePharmacist))
	api.POST("/prescriptions/history", h.History, auth.RequireRole(auth.RolePhysician))
}

func (h *Handler) Create(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	physicianID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user id")
	}
	p.PhysicianID = physicianID

	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)

	var filter ListFilter
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		filter.PatientID = id
	}
	if v := c.QueryParam("class"); v != "" {
		if !validClasses[v] {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid class")
		}
		filter.Class = v
	}

	selfID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user id")
	}

	switch {
	case auth.HasRole(ctx, auth.RoleAdmin) || auth.HasRole(ctx, auth.RolePharmacist):
		// Unrestricted; pharmacists query by patient at the counter.
	case auth.HasRole(ctx, auth.RolePhysician):
		// Physicians see their own prescriptions unless narrowed to a
		// patient.
		if filter.PatientID == uuid.Nil {
			filter.PhysicianID = selfID
		}
	default:
		filter.PatientID = selfID
	}

	items, total, err := h.svc.List(ctx, filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

type historyRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
}

func (h *Handler) History(c echo.Context) error {
	var req historyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	entries, err := h.svc.History(c.Request().Context(), req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": entries, "total": len(entries)})
}
