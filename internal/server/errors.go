package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/project"
)

// Error codes shared by HTTP responses and the CLI's --json errors.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeDanglingDependency = "DANGLING_DEPENDENCY"
	CodeDependencyCycle    = "DEPENDENCY_CYCLE"
	CodeDuplicateTask      = "DUPLICATE_TASK"
	CodeStaleCandidate     = "STALE_CANDIDATE"
	CodeUnknownTask        = "UNKNOWN_TASK"
	CodeInternal           = "INTERNAL"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Classify maps an error to an HTTP status and error code.
func Classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, graph.ErrDanglingDependency):
		return http.StatusUnprocessableEntity, CodeDanglingDependency
	case errors.Is(err, graph.ErrDependencyCycle):
		return http.StatusUnprocessableEntity, CodeDependencyCycle
	case errors.Is(err, graph.ErrDuplicateTask):
		return http.StatusUnprocessableEntity, CodeDuplicateTask
	case errors.Is(err, project.ErrStale):
		return http.StatusConflict, CodeStaleCandidate
	case errors.Is(err, project.ErrUnknownTask):
		return http.StatusNotFound, CodeUnknownTask
	case errors.Is(err, project.ErrEmptyName), errors.As(err, &verrs),
		errors.Is(err, graph.ErrInvalidDuration), errors.Is(err, cpm.ErrSpanTooLong):
		return http.StatusBadRequest, CodeInvalidInput
	}
	return http.StatusInternalServerError, CodeInternal
}

// NewErrorResponse builds the response body for err.
func NewErrorResponse(err error) ErrorResponse {
	_, code := Classify(err)
	return ErrorResponse{Error: err.Error(), Code: code}
}
