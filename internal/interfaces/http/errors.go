package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
)

// Error codes carried in the response envelope
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeEvaluationRequired = "EVALUATION_REQUIRED"
	CodeForbidden          = "FORBIDDEN"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeNotFound           = "NOT_FOUND"
	CodeStaleState         = "STALE_STATE"
	CodeDuplicate          = "DUPLICATE_SUBMISSION"
	CodeInternal           = "INTERNAL_ERROR"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// classify maps an application error to its HTTP status and envelope code
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, approval.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, approval.ErrEvaluationRequired):
		return http.StatusBadRequest, CodeEvaluationRequired
	case errors.Is(err, approval.ErrUnauthorized):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, approval.ErrRequestNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, approval.ErrStaleState):
		return http.StatusConflict, CodeStaleState
	case errors.Is(err, approval.ErrDuplicateSubmission):
		return http.StatusConflict, CodeDuplicate
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (h *Handlers) fail(c *gin.Context, op string, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "path", c.Request.URL.Path, "error", err)
		msg = "internal server error"
	}
	c.JSON(status, Response{Success: false, Error: msg, Code: code})
}

// bindFailed answers a malformed or invalid request body
func (h *Handlers) bindFailed(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: describeBindError(err), Code: CodeValidation})
}

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body: " + err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
