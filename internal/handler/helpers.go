package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/tapeo-pos/server/internal/auth"
	"github.com/tapeo-pos/server/internal/invoice"
	"github.com/tapeo-pos/server/internal/order"
	"github.com/tapeo-pos/server/internal/product"
	"github.com/tapeo-pos/server/internal/sales"
	"github.com/tapeo-pos/server/internal/scan"
	"github.com/tapeo-pos/server/internal/settings"
)

type ValidationErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// respondWithError sends a JSON error body.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondWithValidationError renders validator errors as field-level
// details, or a plain 400 for malformed payloads.
func respondWithValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]FieldError, 0, len(validationErrors))
		for _, fe := range validationErrors {
			details = append(details, FieldError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed on the %q rule", fe.Tag()),
			})
		}
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "validation failed",
			Details: details,
		})
		return
	}
	respondWithError(w, http.StatusBadRequest, err.Error())
}

// respondWithServiceError maps a domain error to an HTTP status. 5xx
// responses get a generic body; the real error is in the log.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := mapErrorToStatusCode(err)

	evt := log.Warn()
	if code >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")

	if code >= http.StatusInternalServerError {
		respondWithError(w, code, "internal server error")
		return
	}
	respondWithError(w, code, err.Error())
}

func mapErrorToStatusCode(err error) int {
	var ruleErr *order.RuleError

	switch {
	case errors.As(err, &ruleErr),
		errors.Is(err, order.ErrInvalidStatusTransition),
		errors.Is(err, sales.ErrUnknownPeriod):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, product.ErrCategoryNotFound),
		errors.Is(err, sales.ErrSaleNotFound),
		errors.Is(err, invoice.ErrInvoiceNotFound),
		errors.Is(err, settings.ErrSettingNotFound):
		return http.StatusNotFound
	case errors.Is(err, product.ErrNameExists),
		errors.Is(err, product.ErrCategoryNotEmpty):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, scan.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
