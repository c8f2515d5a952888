package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nestegg-labs/nestegg/internal/store"
	"github.com/nestegg-labs/nestegg/models"
)

type ProfilesHandler struct {
	Store *store.Store
}

func (h *ProfilesHandler) Register(g *echo.Group) {
	g.GET("", h.get)
	g.PUT("", h.put)
	g.PATCH("", h.patch)
}

func (h *ProfilesHandler) get(c echo.Context) error {
	userID := requestUserID(c)
	profile, err := h.Store.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *ProfilesHandler) put(c echo.Context) error {
	userID := requestUserID(c)
	var profile models.Profile
	if err := c.Bind(&profile); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.Store.SaveProfile(c.Request().Context(), userID, profile); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ProfilesHandler) patch(c echo.Context) error {
	userID := requestUserID(c)
	var patch models.Patch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(patch) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "empty patch")
	}
	if err := h.Store.ApplyProfilePatch(c.Request().Context(), userID, patch); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	profile, err := h.Store.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, profile)
}
