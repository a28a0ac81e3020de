package utils

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"wayfarer/models"
)

// StatusFor maps a service error onto its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrGenerationFailed):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithServiceError writes err with its mapped status. Server-side
// failures are logged and their detail is withheld from the client.
func RespondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		msg = "internal server error"
	} else if code == http.StatusBadGateway {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("upstream generation failed")
	}
	RespondWithError(w, code, msg)
}
