package iol

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
	staff := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleFeldsher, auth.RoleSurgeon))
	staff.POST("/patients/:id/iol/calculate", h.Calculate)
	staff.GET("/patients/:id/iol", h.History)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, patient.ErrScopeDenied):
		return echo.NewHTTPError(http.StatusForbidden, patient.ErrScopeDenied.Error())
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAConstantRequired), errors.Is(err, ErrHaigisUnderspec),
		errors.Is(err, ErrUnknownFormula), errors.Is(err, ErrBadBiometry):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func (h *Handler) Calculate(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	calc, err := h.svc.Calculate(c.Request().Context(), actor, patientID, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, calc)
}

func (h *Handler) History(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	calcs, err := h.svc.History(c.Request().Context(), actor, patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, calcs)
}
