package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/financr/internal/api/middleware"
	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/logger"
)

// writeServiceError maps a service error onto a status code. Validation
// messages are returned to the caller; other failures are logged and
// reported with the generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	log := logger.FromContext(r.Context())

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.WriteError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrValidation):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrCalculation):
		log.Error().Err(err).Msg(message)
		middleware.WriteError(w, http.StatusBadGateway, message)
	default:
		log.Error().Err(err).Msg(message)
		middleware.WriteError(w, http.StatusInternalServerError, message)
	}
}

// userID returns the authenticated user or writes a 401.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.UserIDFromContext(r.Context())
	if id == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "Missing "+middleware.UserIDHeader+" header")
		return "", false
	}
	return id, true
}
