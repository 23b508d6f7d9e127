package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/contractledger/pkg/apperror"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors is raised by handlers for malformed input, before any
// service is called.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// kindStatus maps service error kinds onto HTTP statuses. Unclassified errors
// are internal.
var kindStatus = map[apperror.Kind]int{
	apperror.KindValidation:  http.StatusBadRequest,
	apperror.KindNotFound:    http.StatusNotFound,
	apperror.KindConflict:    http.StatusConflict,
	apperror.KindDomain:      http.StatusUnprocessableEntity,
	apperror.KindPersistence: http.StatusInternalServerError,
}

// ErrorHandlingMiddleware renders the last handler error as the JSON error
// envelope unless the handler already wrote a body.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		status, payload := mapError(last.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

func mapError(err error) (int, errorPayload) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    string(apperror.KindValidation),
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	kind := apperror.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}

	code := apperror.CodeOf(err)
	payload := errorPayload{Type: string(kind), Code: code}
	switch kind {
	case apperror.KindValidation:
		payload.Message = "validation error"
		payload.Errors = []ValidationError{{
			Field:   fieldFromCode(code),
			Code:    code,
			Message: detailOr(err, "invalid value"),
		}}
	case apperror.KindDomain:
		payload.Message = detailOr(err, strings.ReplaceAll(code, "_", " "))
	case apperror.KindPersistence:
		payload.Code = ""
		payload.Message = "internal server error"
	default:
		payload.Message = detailOr(err, strings.ReplaceAll(string(kind), "_", " "))
	}
	return status, payload
}

// classifyErrorForLog reports the response type and machine code of err for
// the request log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if payload.Code == "" && len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Code
}

// fieldFromCode derives the offending field from codes such as
// invalid_start_date or client_id_required.
func fieldFromCode(code string) string {
	if field, ok := strings.CutPrefix(code, "invalid_"); ok {
		return field
	}
	if field, ok := strings.CutSuffix(code, "_required"); ok {
		return field
	}
	return ""
}

// detailOr returns the text attached with apperror.Detail, or fallback for a
// bare sentinel.
func detailOr(err error, fallback string) string {
	msg := err.Error()
	marker := apperror.CodeOf(err) + ": "
	if idx := strings.Index(msg, marker); idx >= 0 {
		if detail := strings.TrimSpace(msg[idx+len(marker):]); detail != "" {
			return detail
		}
	}
	return fallback
}
