package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/sakif/teamboard/internal/apperror"
)

// ErrorResponse is the JSON error body of every API endpoint:
//
//	{"error": "validation_error", "message": "...", "fields": {"name": ["..."]}}
type ErrorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Fields  apperror.FieldErrors `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

// writeError maps an apperror sentinel to a status code. Errors that are not
// *apperror.AppError become a generic 500; their text is never sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, r, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := statusOf(err)
	writeJSON(w, r, status, ErrorResponse{
		Error:   kind,
		Message: appErr.Message,
		Fields:  appErr.Fields,
	})
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
