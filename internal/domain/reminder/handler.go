package reminder

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/mednow/mednow/internal/platform/auth"
	"github.com/mednow/mednow/pkg/pagination"
)

type Handler struct {
	svc       *Service
	evaluator *Evaluator
	loc       *time.Location
}

func NewHandler(svc *Service, evaluator *Evaluator, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{svc: svc, evaluator: evaluator, loc: loc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	writeGroup := api.Group("", auth.RequireRole(auth.RolePatient, auth.RolePharmacist))
	writeGroup.POST("/reminders", h.Create)
	writeGroup.PATCH("/reminders/:id", h.Update)

	readGroup := api.Group("", auth.RequireRole(auth.RolePatient, auth.RolePhysician, auth.RolePharmacist))
	readGroup.GET("/reminders", h.List)

	// Manual evaluation trigger, mirroring the cron cadence.
	api.POST("/scheduler/reminders/run", h.Run, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) Create(c echo.Context) error {
	var r Reminder
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user id")
	}
	r.CreatedByID = userID

	if err := h.svc.Create(c.Request().Context(), &r); err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var params UpdateParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	r, err := h.svc.Update(c.Request().Context(), id, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "reminder not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, r)
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
	if v := c.QueryParam("created_by_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid created_by_id")
		}
		filter.CreatedByID = id
	}

	// A plain patient only ever sees their own reminders.
	clinical := auth.HasRole(ctx, auth.RolePhysician) ||
		auth.HasRole(ctx, auth.RolePharmacist) ||
		auth.HasRole(ctx, auth.RoleAdmin)
	if !clinical {
		selfID, err := uuid.Parse(auth.UserIDFromContext(ctx))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid user id")
		}
		filter.PatientID = selfID
	}

	items, total, err := h.svc.List(ctx, filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

// Run triggers one evaluation pass outside the scheduler cadence.
func (h *Handler) Run(c echo.Context) error {
	now := time.Now().In(h.loc)
	if err := h.evaluator.EvaluateAndDispatch(c.Request().Context(), now); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
