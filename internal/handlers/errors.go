package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"waitlist/internal/status"

	"github.com/pocketbase/pocketbase/apis"
)

// toApiError maps the queue sentinels onto HTTP errors.
func toApiError(err error, fallback string) error {
	switch {
	case errors.Is(err, status.ErrValidation):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError(err.Error(), nil)
	case errors.Is(err, status.ErrDuplicateIdentity):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)
	default:
		slog.Error(fallback, "error", err)
		return apis.NewInternalServerError(fallback, nil)
	}
}
