package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/k1maruuu/eyes/internal/platform/auth"
	"github.com/k1maruuu/eyes/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleFeldsher, auth.RoleSurgeon))
	staff.GET("/patients", h.List)
	staff.GET("/patients/:id", h.Get)
	staff.GET("/dashboard/summary", h.Dashboard)

	edit := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleFeldsher))
	edit.POST("/patients", h.Create)
	edit.PATCH("/patients/:id", h.Update)
	edit.POST("/patients/:id/submit-for-review", h.action(ActionSubmitForReview))
	edit.DELETE("/patients/:id", h.Delete, auth.RequireRole(auth.RoleAdmin))

	surgeon := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleSurgeon))
	surgeon.POST("/patients/:id/approve", h.action(ActionApprove))
	surgeon.POST("/patients/:id/request-changes", h.action(ActionRequestChanges))
	surgeon.POST("/patients/:id/schedule-surgery", h.action(ActionScheduleSurgery))
	surgeon.POST("/patients/:id/complete-surgery", h.action(ActionCompleteSurgery))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrScopeDenied):
		return echo.NewHTTPError(http.StatusForbidden, ErrScopeDenied.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrBadSnils), errors.Is(err, ErrBadEye), errors.Is(err, ErrFullNameRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func (h *Handler) Create(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), actor, &p); err != nil {
		if errors.Is(err, ErrBadSnils) || errors.Is(err, ErrBadEye) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	f := ListFilter{Limit: pg.Limit, Offset: pg.Offset, Search: c.QueryParam("q")}
	if raw := c.QueryParam("status"); raw != "" {
		st := Status(raw)
		if !st.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
		}
		f.Status = &st
	}
	if raw := c.QueryParam("organization_id"); raw != "" {
		orgID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid organization_id")
		}
		f.OrganizationID = &orgID
	}
	items, total, err := h.svc.List(c.Request().Context(), actor, f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var f UpdateFields
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Update(c.Request().Context(), actor, id, f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type actionRequest struct {
	Comment *string `json:"comment,omitempty"`
}

func (h *Handler) action(a Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, _ := auth.ActorFromContext(c.Request().Context())
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		var req actionRequest
		_ = c.Bind(&req)
		p, err := h.svc.Apply(c.Request().Context(), actor, id, a, req.Comment)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func (h *Handler) Delete(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Dashboard(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	sum, err := h.svc.Dashboard(c.Request().Context(), actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sum)
}
