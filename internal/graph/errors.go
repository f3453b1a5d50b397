package graph

import (
	"errors"
	"net/http"

	"feedql/internal/models"

	"github.com/graphql-go/graphql/gqlerrors"
)

// FormattedError is the client-facing shape of a GraphQL error.
type FormattedError struct {
	Message string              `json:"message"`
	Status  int                 `json:"status"`
	Data    []models.FieldError `json:"data,omitempty"`
}

// FormatError maps an execution error to {message, status, data}. Errors
// raised by resolvers keep their AppError status; anything else without an
// application cause is a request error (400).
func FormatError(fe gqlerrors.FormattedError) FormattedError {
	orig := fe.OriginalError()
	var located *gqlerrors.Error
	if errors.As(orig, &located) {
		orig = located.OriginalError
	}
	if orig == nil {
		return FormattedError{Message: fe.Message, Status: http.StatusBadRequest}
	}
	if appErr, ok := models.AsAppError(orig); ok {
		return FormattedError{
			Message: appErr.Message,
			Status:  appErr.HTTPStatus(),
			Data:    appErr.Data,
		}
	}
	return FormattedError{Message: fe.Message, Status: http.StatusInternalServerError}
}

// FormatErrors formats every error of a result.
func FormatErrors(errs []gqlerrors.FormattedError) []FormattedError {
	out := make([]FormattedError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, FormatError(fe))
	}
	return out
}
