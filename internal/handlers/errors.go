package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/validation"
	"github.com/danielgtaylor/huma/v2"
)

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError is the body of every failed response: {success:false, error, details?}.
type APIError struct {
	Status  int           `json:"-"`
	Success bool          `json:"success"`
	Message string        `json:"error"`
	Details []ErrorDetail `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) GetStatus() int {
	return e.Status
}

func newAPIError(status int, message string, errs ...error) huma.StatusError {
	// Schema violations (wrong JSON types, malformed params) are reported
	// like any other validation failure.
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
		message = "Validation failed"
	}

	apiErr := &APIError{Status: status, Message: message}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var fieldErr validation.FieldError
		var humaDetail *huma.ErrorDetail
		switch {
		case errors.As(err, &fieldErr):
			apiErr.Details = append(apiErr.Details, ErrorDetail{Field: fieldErr.Field, Message: fieldErr.Message, Code: fieldErr.Code})
		case errors.As(err, &humaDetail):
			apiErr.Details = append(apiErr.Details, ErrorDetail{
				Field:   strings.TrimPrefix(humaDetail.Location, "body."),
				Message: humaDetail.Message,
				Code:    validation.CodeFormat,
			})
		default:
			apiErr.Details = append(apiErr.Details, ErrorDetail{Message: err.Error()})
		}
	}
	return apiErr
}

func init() {
	huma.NewError = newAPIError
}
