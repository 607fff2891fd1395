package oplog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/k1maruuu/eyes/internal/platform/auth"
	"github.com/k1maruuu/eyes/pkg/pagination"
)

type Handler struct {
	applier *Applier
}

func NewHandler(applier *Applier) *Handler {
	return &Handler{applier: applier}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Any authenticated staff member may submit a batch; per-action role
	// checks happen inside the applier so each op gets its own verdict.
	staff := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleFeldsher, auth.RoleSurgeon))
	staff.POST("/sync/batch", h.Batch)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/sync/operations", h.List)
}

type batchRequest struct {
	Ops []Operation `json:"ops"`
}

func (h *Handler) Batch(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res := h.applier.ApplyBatch(c.Request().Context(), actor, req.Ops)
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	recs, total, err := h.applier.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(recs, total, pg.Limit, pg.Offset))
}
