package api

import (
	"errors"
	"net/http"

	"github.com/cura-ai/cura/internal/core"
)

// httpStatusForError maps domain error categories onto HTTP statuses.
func httpStatusForError(err error) int {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return http.StatusInternalServerError
	}

	switch domErr.Category {
	case core.ErrCatValidation:
		return http.StatusUnprocessableEntity
	case core.ErrCatNotFound:
		return http.StatusNotFound
	case core.ErrCatNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
