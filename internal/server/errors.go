// Package server provides the HTTP REST API for the content pipeline.
package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/gracebase/content-pipeline/internal/types"
)

// HTTPStatus returns the appropriate HTTP status code for a pipeline error.
// Tenant-isolation violations surface as NotFound upstream, so they map to
// 404 like any other missing resource.
func HTTPStatus(err error) int {
	var (
		invalidContentType *types.ErrInvalidContentType
		disabled           *types.ErrGenerationDisabled
		notFound           *types.ErrNotFound
		alreadyTerminal    *types.ErrAlreadyTerminal
		notCompleted       *types.ErrNotCompleted
		invalidTransition  *types.ErrInvalidTransition
		sessionActive      *types.ErrSessionAlreadyActive
		validation         *types.ErrValidation
		provider           *types.ErrProvider
		fieldErrors        validator.ValidationErrors
	)

	switch {
	case errors.As(err, &invalidContentType), errors.As(err, &validation), errors.As(err, &fieldErrors):
		return http.StatusBadRequest
	case errors.As(err, &disabled):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &alreadyTerminal), errors.As(err, &notCompleted),
		errors.As(err, &invalidTransition), errors.As(err, &sessionActive):
		return http.StatusConflict
	case errors.As(err, &provider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
