package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mednow/mednow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes splits routes between the public group (registration
// and login happen before a token exists) and the authenticated API
// group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/users", h.Register)
	public.POST("/auth/login", h.Login)
	public.GET("/users/cpf", h.LookupCPF)

	api.GET("/auth/me", h.Me)
	api.POST("/users/device-token", h.RegisterDeviceToken)
	api.POST("/patients/search", h.SearchPatients, auth.RequireRole(auth.RolePhysician, auth.RolePharmacist))

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/profiles/pending", h.PendingProfiles)
	adminGroup.GET("/profiles/approved", h.ApprovedProfiles)
	adminGroup.PATCH("/profiles/approve", h.SetApproval)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, profile, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, ErrProfileExists) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"user":    user,
		"profile": profile,
	})
}

type loginRequest struct {
	CPF      string `json:"cpf"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, roles, err := h.svc.Login(c.Request().Context(), req.CPF, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrNoApprovedRole) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
		"roles": roles,
	})
}

func (h *Handler) LookupCPF(c echo.Context) error {
	cpf := c.QueryParam("cpf")
	if cpf == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "cpf is required")
	}

	exists, profiles, err := h.svc.LookupCPF(c.Request().Context(), cpf)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	roles := make([]string, 0, len(profiles))
	for _, p := range profiles {
		roles = append(roles, p.Role)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"exists": exists,
		"roles":  roles,
	})
}

func (h *Handler) Me(c echo.Context) error {
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user id")
	}

	user, profiles, err := h.svc.GetUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":     user,
		"profiles": profiles,
	})
}

type deviceTokenRequest struct {
	DeviceToken string `json:"device_token"`
}

func (h *Handler) RegisterDeviceToken(c echo.Context) error {
	var req deviceTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user id")
	}

	if err := h.svc.RegisterDeviceToken(c.Request().Context(), userID, req.DeviceToken); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

type patientSearchRequest struct {
	Term string `json:"term"`
	Page int    `json:"page"`
}

func (h *Handler) SearchPatients(c echo.Context) error {
	var req patientSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Term == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "term is required")
	}

	items, total, err := h.svc.SearchPatients(c.Request().Context(), req.Term, req.Page)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":      items,
		"total":     total,
		"page_size": PatientSearchPageSize,
	})
}

func (h *Handler) PendingProfiles(c echo.Context) error {
	items, err := h.svc.PendingProfiles(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) ApprovedProfiles(c echo.Context) error {
	items, err := h.svc.ApprovedProfiles(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

type approvalRequest struct {
	ProfileID uuid.UUID `json:"profile_id"`
	Approved  bool      `json:"approved"`
}

func (h *Handler) SetApproval(c echo.Context) error {
	var req approvalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ProfileID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "profile_id is required")
	}

	profile, err := h.svc.SetApproval(c.Request().Context(), req.ProfileID, req.Approved)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, profile)
}
