package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nestegg-labs/nestegg/internal/analysis"
	"github.com/nestegg-labs/nestegg/internal/store"
)

type AnalyzeHandler struct {
	Store    *store.Store
	Analyzer *analysis.Analyzer
}

func (h *AnalyzeHandler) Register(g *echo.Group) {
	g.POST("/analyze", h.analyze)
}

func (h *AnalyzeHandler) analyze(c echo.Context) error {
	userID := requestUserID(c)
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	profile, err := h.Store.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	result := h.Analyzer.Analyze(c.Request().Context(), profile, req.SimulationResults)
	return c.JSON(http.StatusOK, result)
}
