package files

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/k1maruuu/eyes/internal/domain/patient"
	"github.com/k1maruuu/eyes/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	edit := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleFeldsher))
	edit.POST("/patients/:id/files", h.Upload)

	read := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleFeldsher, auth.RoleSurgeon))
	read.GET("/patients/:id/files", h.List)
	read.GET("/files/:id/download", h.Download)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, patient.ErrScopeDenied):
		return echo.NewHTTPError(http.StatusForbidden, patient.ErrScopeDenied.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrBadItemLink):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func (h *Handler) Upload(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read upload")
	}
	defer src.Close()

	meta := &FileAsset{
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get("Content-Type"),
	}
	if raw := c.FormValue("checklist_item_id"); raw != "" {
		itemID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid checklist_item_id")
		}
		meta.ChecklistItemID = &itemID
	}
	if kind := c.FormValue("kind"); kind != "" {
		meta.Kind = &kind
	}
	if desc := c.FormValue("description"); desc != "" {
		meta.Description = &desc
	}
	out, err := h.svc.Upload(c.Request().Context(), actor, patientID, meta, src)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) List(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	assets, err := h.svc.List(c.Request().Context(), actor, patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, assets)
}

func (h *Handler) Download(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	f, path, err := h.svc.Open(c.Request().Context(), actor, fileID)
	if err != nil {
		return httpError(err)
	}
	return c.Attachment(path, f.OriginalName)
}
