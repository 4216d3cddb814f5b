/*
errors.go - Uniform error envelope and request-body decoding

PURPOSE:
  Every failure leaves the API in one shape:

    {"status_code": 400, "errors": ["title: is required"]}

  Domain errors carry their kind (generic.Kind) and caller-facing messages;
  statusFor maps the kind to an HTTP status. Anything without a kind is an
  infrastructure failure: it is logged with the chi request id and the caller
  gets a generic 500 message.

STATUS MAPPING:
  validation          400
  conflict            400 (double-booking, duplicate claim number)
  permission          403
  invalid_transition  403
  not_found           404
  (no kind)           500

BODY VALIDATION:
  decodeBody unmarshals JSON and runs go-playground/validator over the struct
  tags. validator.ValidationErrors are flattened into one string per field,
  named by the json tag: "title: is required".

SEE ALSO:
  - generic/errors.go: Error kinds and aggregation
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/sarahuu/EGBIN-SSP/generic"
)

// ErrorResponse is the envelope of every failed call.
type ErrorResponse struct {
	StatusCode int      `json:"status_code"`
	Errors     []string `json:"errors"`
}

const internalErrorMessage = "an internal error occurred"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeMessages(w http.ResponseWriter, status int, messages ...string) {
	writeJSON(w, status, ErrorResponse{StatusCode: status, Errors: messages})
}

func statusFor(err error) int {
	switch generic.KindOf(err) {
	case generic.KindValidation, generic.KindConflict:
		return http.StatusBadRequest
	case generic.KindPermission, generic.KindInvalidTransition:
		return http.StatusForbidden
	case generic.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError converts err to the envelope. Errors without a kind are logged
// and hidden from the caller.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	messages := generic.Messages(err)
	if status == http.StatusInternalServerError || len(messages) == 0 {
		h.Log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Error("request failed")
		status = http.StatusInternalServerError
		messages = []string{internalErrorMessage}
	}
	writeMessages(w, status, messages...)
}

// =============================================================================
// BODY DECODING
// =============================================================================

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// readBody reads the capped request body.
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, generic.ValidationError("invalid request body")
	}
	if len(data) > maxBodyBytes {
		return nil, generic.ValidationError("request body is too large")
	}
	return data, nil
}

// decodeBody unmarshals the body into dst and validates its tags.
func (h *Handler) decodeBody(r *http.Request, dst any) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	return h.decodeJSON(data, dst, "")
}

// decodeJSON unmarshals data into dst and validates it. prefix is prepended
// to every field message ("line 2: ").
func (h *Handler) decodeJSON(data []byte, dst any, prefix string) error {
	if err := json.Unmarshal(data, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return generic.ValidationError("%s%s: must be a %s", prefix, typeErr.Field, typeErr.Type.Kind())
		}
		return generic.ValidationError("%sinvalid request body", prefix)
	}
	return h.validateStruct(dst, prefix)
}

func (h *Handler) validateStruct(v any, prefix string) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return generic.ValidationError("%sinvalid request body", prefix)
	}
	var errs generic.Errors
	for _, fe := range ve {
		errs.Add(generic.ValidationError("%s%s: %s", prefix, fieldName(fe), fieldMessage(fe)))
	}
	return errs.Err()
}

// fieldName is the json path without the root struct name.
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return "is invalid"
	}
}
