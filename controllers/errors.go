package controllers

import (
	"errors"
	"net/http"

	"github.com/dquevedo/aportaciones-go/finance"
)

// statusForEngineError maps the allocation engine's error taxonomy onto HTTP
// statuses: bad caller input 400, business-rule rejection 409, missing
// entity 404.
func statusForEngineError(err error) int {
	switch {
	case errors.Is(err, finance.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, finance.ErrExceedsPending):
		return http.StatusConflict
	case errors.Is(err, finance.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
