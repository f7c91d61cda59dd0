package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/marmos91/corevisor/internal/controlplane/api/problem"
	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

// MapError writes the problem response matching err.
func MapError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	var configErr *models.ConfigInvalidError

	switch {
	case errors.As(err, &validationErr):
		problem.Write(w, &problem.Problem{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: validationErr.Reason,
			Field:  validationErr.Field,
		})
	case errors.Is(err, models.ErrValidation):
		problem.BadRequest(w, err.Error())
	case errors.Is(err, models.ErrUnknownService):
		problem.NotFound(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		problem.NotFound(w, "Not found")
	case errors.Is(err, models.ErrMigrationInProgress),
		errors.Is(err, models.ErrOperationInProgress):
		problem.Conflict(w, err.Error())
	case errors.As(err, &configErr):
		problem.UnprocessableEntity(w, configErr.Details)
	case errors.Is(err, models.ErrStatsUnavailable):
		problem.ServiceUnavailable(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The operation keeps running; the caller stopped waiting for it.
		problem.WriteProblem(w, http.StatusGatewayTimeout, "Gateway Timeout", "Stopped waiting for the operation, it continues in the background")
	default:
		logger.Error("API request failed", logger.Err(err))
		problem.InternalServerError(w, err.Error())
	}
}
