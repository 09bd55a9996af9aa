package handlers

import (
	"net/http"
	"waitlist/internal/services"

	"github.com/pocketbase/pocketbase/core"
)

type AnalyticsHandler struct {
	queryService *services.QueryService
}

func NewAnalyticsHandler(queryService *services.QueryService) *AnalyticsHandler {
	return &AnalyticsHandler{queryService: queryService}
}

// GetStats - Served counts, averages and hourly distribution over a date range
func (h *AnalyticsHandler) GetStats(e *core.RequestEvent) error {
	query := e.Request.URL.Query()

	r, err := h.queryService.ParseStatsRange(query.Get("startDate"), query.Get("endDate"))
	if err != nil {
		return toApiError(err, "Invalid date range")
	}

	stats, err := h.queryService.GetHistoricalStats(e.Request.Context(), r)
	if err != nil {
		return toApiError(err, "Failed to get stats")
	}

	return e.JSON(http.StatusOK, stats)
}

// GetSeated - Seated parties for the analytics view
func (h *AnalyticsHandler) GetSeated(e *core.RequestEvent) error {
	seated := h.queryService.GetSeated()
	return e.JSON(http.StatusOK, map[string]any{
		"seated": seated,
		"count":  len(seated),
	})
}
