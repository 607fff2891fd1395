package checklist

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/k1maruuu/eyes/internal/domain/patient"
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
	staff.GET("/patients/:id/checklist", h.Latest)
	staff.GET("/checklists/:id/progress", h.Progress)
	staff.GET("/checklist-templates", h.ListTemplates)
	staff.GET("/checklist-templates/:id", h.GetTemplate)
	// Surgeons may tick items too, e.g. the final examination line.
	staff.PATCH("/checklists/:id/items/:item_id", h.UpdateItem)

	edit := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleFeldsher))
	edit.POST("/patients/:id/checklist/generate", h.Generate)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/checklist-templates", h.CreateTemplate)
	admin.PATCH("/checklist-templates/:id/active", h.SetTemplateActive)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, patient.ErrScopeDenied):
		return echo.NewHTTPError(http.StatusForbidden, patient.ErrScopeDenied.Error())
	case errors.Is(err, ErrTemplateNotFound), errors.Is(err, ErrInstanceNotFound),
		errors.Is(err, ErrItemNotFound), errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrTemplateInactive), errors.Is(err, ErrEmptyTemplate),
		errors.Is(err, ErrNoOperationType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrValueRequired), errors.Is(err, ErrFileRequired),
		errors.Is(err, ErrEvidenceMissing), errors.Is(err, ErrEvidenceImplausible):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

type generateRequest struct {
	TemplateID *uuid.UUID `json:"template_id,omitempty"`
}

func (h *Handler) Generate(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req generateRequest
	_ = c.Bind(&req)
	inst, err := h.svc.Generate(c.Request().Context(), actor, patientID, req.TemplateID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, inst)
}

func (h *Handler) Latest(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inst, err := h.svc.LatestForPatient(c.Request().Context(), actor, patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, inst)
}

type itemResponse struct {
	Item     *Item     `json:"item"`
	Progress *Progress `json:"progress"`
}

func (h *Handler) UpdateItem(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	instanceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	var patch ItemPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, prog, err := h.svc.UpdateItem(c.Request().Context(), actor, instanceID, itemID, patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, itemResponse{Item: item, Progress: prog})
}

func (h *Handler) Progress(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	instanceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	prog, err := h.svc.ProgressFor(c.Request().Context(), actor, instanceID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, prog)
}

func (h *Handler) CreateTemplate(c echo.Context) error {
	var t Template
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateTemplate(c.Request().Context(), &t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.GetTemplate(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTemplates(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) SetTemplateActive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req activeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.SetTemplateActive(c.Request().Context(), id, req.Active)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}
