package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"waitlist/internal/services"
	"waitlist/security"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type StaffHandler struct {
	queueService *services.QueueService
	queryService *services.QueryService
	auth         *security.StaffAuth
}

func NewStaffHandler(queueService *services.QueueService, queryService *services.QueryService, auth *security.StaffAuth) *StaffHandler {
	return &StaffHandler{
		queueService: queueService,
		queryService: queryService,
		auth:         auth,
	}
}

// Login - Exchange the staff password for a bearer token
func (h *StaffHandler) Login(e *core.RequestEvent) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	session, err := h.auth.Login(e.Request.Context(), req.Password)
	if errors.Is(err, security.ErrInvalidCredentials) {
		return apis.NewUnauthorizedError("Invalid credentials", nil)
	}
	if err != nil {
		slog.Error("h.auth.Login()", "error", err)
		return apis.NewInternalServerError("Failed to log in", nil)
	}

	return e.JSON(http.StatusOK, session)
}

// Logout - Revoke the caller's bearer token
func (h *StaffHandler) Logout(e *core.RequestEvent) error {
	token := security.BearerToken(e.Request.Header.Get("Authorization"))
	if err := h.auth.Logout(e.Request.Context(), token); err != nil {
		slog.Error("h.auth.Logout()", "error", err)
		return apis.NewInternalServerError("Failed to log out", nil)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Logged out"})
}

// GetNext - The party that would be admitted next
func (h *StaffHandler) GetNext(e *core.RequestEvent) error {
	party, ok := h.queueService.Peek()
	if !ok {
		return e.JSON(http.StatusOK, map[string]any{"empty": true})
	}
	return e.JSON(http.StatusOK, map[string]any{"party": party})
}

// AdmitNext - Seat the earliest waiting party
func (h *StaffHandler) AdmitNext(e *core.RequestEvent) error {
	party, ok := h.queueService.SeatNext(e.Request.Context())
	if !ok {
		return e.JSON(http.StatusOK, map[string]any{"empty": true})
	}
	return e.JSON(http.StatusOK, map[string]any{"party": party})
}

// SkipParty - Remove a waiting party without seating it
func (h *StaffHandler) SkipParty(e *core.RequestEvent) error {
	var req struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.ID == "" {
		return apis.NewBadRequestError("Party ID required", nil)
	}

	if err := h.queueService.Skip(e.Request.Context(), req.ID, req.Reason); err != nil {
		return toApiError(err, "Failed to skip party")
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Party skipped", "id": req.ID})
}

// FinishParty - Clear a seated party's table
func (h *StaffHandler) FinishParty(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Party ID required", nil)
	}

	if err := h.queueService.Finish(e.Request.Context(), id); err != nil {
		return toApiError(err, "Failed to finish party")
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Table cleared", "id": id})
}

// GetSeated - Parties currently at a table
func (h *StaffHandler) GetSeated(e *core.RequestEvent) error {
	seated := h.queryService.GetSeated()
	return e.JSON(http.StatusOK, map[string]any{
		"seated": seated,
		"count":  len(seated),
	})
}

// SetServiceTime - Change the minutes allotted per party ahead
func (h *StaffHandler) SetServiceTime(e *core.RequestEvent) error {
	var req struct {
		Minutes int `json:"minutes"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.queueService.SetServiceMinutes(req.Minutes); err != nil {
		return toApiError(err, "Failed to set service time")
	}

	return e.JSON(http.StatusOK, map[string]any{"service_minutes": req.Minutes})
}
