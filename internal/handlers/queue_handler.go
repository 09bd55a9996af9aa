package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"waitlist/internal/hub"
	"waitlist/internal/services"
	"waitlist/security"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

var observerViews = map[string]bool{
	"customer":  true,
	"staff":     true,
	"analytics": true,
	"display":   true,
}

// QueueHandler serves the customer side of the waitlist.
type QueueHandler struct {
	queueService *services.QueueService
	queryService *services.QueryService
	hub          *hub.Hub
	staffAuth    *security.StaffAuth
}

func NewQueueHandler(queueService *services.QueueService, queryService *services.QueryService, h *hub.Hub, staffAuth *security.StaffAuth) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
		queryService: queryService,
		hub:          h,
		staffAuth:    staffAuth,
	}
}

// JoinQueue - Add a party to the end of the waitlist
func (h *QueueHandler) JoinQueue(e *core.RequestEvent) error {
	var req services.JoinRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	party, err := h.queueService.Join(e.Request.Context(), req)
	if err != nil {
		return toApiError(err, "Failed to join queue")
	}

	return e.JSON(http.StatusCreated, map[string]any{
		"party":    party,
		"position": party.Position,
	})
}

// LeaveQueue - Cancel a waiting party
func (h *QueueHandler) LeaveQueue(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Party ID required", nil)
	}

	if err := h.queueService.Cancel(e.Request.Context(), id); err != nil {
		return toApiError(err, "Failed to leave queue")
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Left the queue", "id": id})
}

// GetParty - A party's own status, position and estimated wait
func (h *QueueHandler) GetParty(e *core.RequestEvent) error {
	party, err := h.queueService.Lookup(e.Request.PathValue("id"))
	if err != nil {
		return toApiError(err, "Failed to get party")
	}
	return e.JSON(http.StatusOK, party)
}

// GetQueueStatus - Current ordered waitlist, without contact details
func (h *QueueHandler) GetQueueStatus(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, h.queryService.GetSnapshot().Public())
}

// Subscribe - Upgrade to a websocket that streams change events
func (h *QueueHandler) Subscribe(e *core.RequestEvent) error {
	query := e.Request.URL.Query()

	view := strings.ToLower(query.Get("view"))
	if view == "" {
		view = "customer"
	}
	if !observerViews[view] {
		return apis.NewBadRequestError("Unknown view", nil)
	}
	if hub.PrivateView(view) {
		ok, err := h.staffAuth.Valid(e.Request.Context(), security.RequestToken(e.Request))
		if err != nil {
			slog.Error("h.staffAuth.Valid()", "error", err)
			return apis.NewInternalServerError("Failed to verify staff token", nil)
		}
		if !ok {
			return apis.NewUnauthorizedError("Staff authorization required", nil)
		}
	}

	observerID := query.Get("observer")
	if observerID == "" {
		observerID = uuid.NewString()
	}

	err := hub.ServeWS(h.hub, e.Response, e.Request, observerID, view)
	switch {
	case errors.Is(err, hub.ErrObserverExists):
		return apis.NewApiError(http.StatusConflict, "Observer already connected", nil)
	case errors.Is(err, hub.ErrHubClosed):
		return apis.NewApiError(http.StatusServiceUnavailable, "Server is shutting down", nil)
	case err != nil:
		return apis.NewInternalServerError("Failed to subscribe", err)
	}
	return nil
}

// DisconnectObserver - Drop a websocket observer by id, freeing the id for a reconnect
func (h *QueueHandler) DisconnectObserver(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Observer ID required", nil)
	}

	if err := h.hub.Unsubscribe(id); err != nil {
		if errors.Is(err, hub.ErrObserverNotFound) {
			return apis.NewNotFoundError("Observer not found", nil)
		}
		return apis.NewInternalServerError("Failed to disconnect observer", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Observer disconnected", "id": id})
}
