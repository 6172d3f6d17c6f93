package delivery

import (
	"errors"
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
	api.POST("/deliveries", h.Register, auth.RequireRole(auth.RolePharmacist))
	api.GET("/deliveries", h.List, auth.RequireRole(auth.RolePatient, auth.RolePharmacist))
}

func (h *Handler) Register(c echo.Context) error {
	var d Delivery
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pharmacistID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user id")
	}
	d.PharmacistID = pharmacistID

	if err := h.svc.Register(c.Request().Context(), &d); err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)

	var filter ListFilter
	if v := c.QueryParam("prescription_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid prescription_id")
		}
		filter.PrescriptionID = id
	}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		filter.PatientID = id
	}

	selfID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user id")
	}

	switch {
	case auth.HasRole(ctx, auth.RoleAdmin):
	case auth.HasRole(ctx, auth.RolePharmacist):
		// Pharmacists default to their own counter log unless they
		// narrow to a prescription or patient.
		if filter.PrescriptionID == uuid.Nil && filter.PatientID == uuid.Nil {
			filter.PharmacistID = selfID
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
