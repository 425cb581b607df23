package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-service/internal/domain"
	"github.com/pot-code/learning-service/internal/infrastructure/validate"
)

// RESTStandardError response error
type RESTStandardError struct {
	Type    string `json:"type,omitempty"`
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func NewRESTStandardError(code int, detail string) *RESTStandardError {
	return &RESTStandardError{
		Code:   code,
		Title:  http.StatusText(code),
		Detail: detail,
	}
}

func (re RESTStandardError) Error() string {
	return re.Detail
}

func (re RESTStandardError) SetTraceID(traceID string) RESTStandardError {
	re.TraceID = traceID
	return re
}

// RESTValidationError standard validation error
type RESTValidationError struct {
	RESTStandardError
	InvalidParams []*validate.FieldError `json:"invalid_params"`
}

func NewRESTValidationError(code int, detail string, internal []*validate.FieldError) *RESTValidationError {
	return &RESTValidationError{
		RESTStandardError: RESTStandardError{
			Code:   code,
			Title:  http.StatusText(code),
			Detail: detail,
		},
		InvalidParams: internal,
	}
}

func (rve RESTValidationError) Error() string {
	return rve.Detail
}

func (rve RESTValidationError) SetTraceID(traceID string) RESTValidationError {
	rve.RESTStandardError.TraceID = traceID
	return rve
}

// StatusOf http status for an error returned by a use case
func StatusOf(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDependency):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// NewErrorResponse build the response body for err, internal failures keep their
// detail out of the response
func NewErrorResponse(err error, traceID string) (int, interface{}) {
	code := StatusOf(err)
	detail := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail = http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			detail = msg
		}
	}
	if code == http.StatusInternalServerError {
		detail = http.StatusText(code)
	}
	return code, NewRESTStandardError(code, detail).SetTraceID(traceID)
}

func validationFailed(c echo.Context, fields []*validate.FieldError) error {
	traceID := c.Response().Header().Get(echo.HeaderXRequestID)
	return c.JSON(http.StatusBadRequest,
		NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", fields).SetTraceID(traceID))
}
