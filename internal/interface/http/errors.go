package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/command"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeError maps domain and validation errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *command.ValidationError
	if errors.As(err, &verr) {
		writeAPIError(w, r, http.StatusBadRequest, &APIError{
			Code:    "validation_failed",
			Message: "request failed validation",
			Fields:  verr.Fields,
		})
		return
	}

	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			logger.Err(err),
		)
		writeJSONError(w, r, status, code, http.StatusText(status))
		return
	}
	writeJSONError(w, r, status, code, publicMessage(err))
}

func classify(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, "conflict"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case shared.IsRetryable(err):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// publicMessage prefers the domain message over the wrapped chain.
func publicMessage(err error) string {
	var derr *shared.DomainError
	if errors.As(err, &derr) && derr.Message != "" {
		return derr.Message
	}
	return err.Error()
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

var errBadBody = shared.NewDomainError("http", "Decode", shared.ErrInvalidInput, "malformed JSON body")

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return shared.NewDomainError("http", "Decode", shared.ErrInvalidInput, "request body is empty")
		}
		return shared.WrapError("http", "Decode", shared.ErrInvalidInput, "malformed JSON body: "+err.Error(), err)
	}
	if dec.More() {
		return errBadBody
	}
	return nil
}

// intParam parses an optional integer query parameter. Missing means 0.
func intParam(r *http.Request, key string) (int, error) {
	v, err := optionalIntParam(r, key)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}

// optionalIntParam returns nil when the parameter is absent.
func optionalIntParam(r *http.Request, key string) (*int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, shared.NewDomainError("http", "Query", shared.ErrInvalidInput, fmt.Sprintf("%s must be an integer", key))
	}
	return &v, nil
}
