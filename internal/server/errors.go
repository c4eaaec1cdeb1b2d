package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/heraerp/hera/internal/audit/domain"
	dynamicdomain "github.com/heraerp/hera/internal/dynamicdata/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/internal/export"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/guardrail"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	relationshipdomain "github.com/heraerp/hera/internal/relationship/domain"
	transactiondomain "github.com/heraerp/hera/internal/transaction/domain"
	"github.com/heraerp/hera/internal/universal"
	"github.com/heraerp/hera/pkg/db"
	"github.com/heraerp/hera/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type       string            `json:"type"`
	Message    string            `json:"message"`
	Errors     []ValidationError `json:"errors,omitempty"`
	Validation *guardrail.Result `json:"validation,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrOrgRequired        = errors.New("organization_required")
	ErrInvalidOrgHeader   = errors.New("invalid_organization_id")
	ErrOrgInactive        = errors.New("organization_inactive")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// validationSentinels map to 400 with the sentinel text as the error code.
var validationSentinels = []error{
	ErrInvalidRequest,
	ErrOrgRequired,
	ErrInvalidOrgHeader,
	pagination.ErrInvalidPageToken,
	guardrail.ErrInvalidSmartCode,
	universal.ErrUnsupportedOperation,
	universal.ErrInvalidPayload,
	universal.ErrOrganizationMismatch,
	universal.ErrInvalidOrganization,
	export.ErrUnsupportedFormat,
	organizationdomain.ErrInvalidName,
	organizationdomain.ErrInvalidCode,
	organizationdomain.ErrInvalidStatus,
	organizationdomain.ErrInvalidOrganization,
	entitydomain.ErrInvalidOrganization,
	entitydomain.ErrInvalidID,
	entitydomain.ErrInvalidType,
	entitydomain.ErrInvalidName,
	entitydomain.ErrInvalidStatus,
	entitydomain.ErrInvalidSmartCode,
	dynamicdomain.ErrInvalidOrganization,
	dynamicdomain.ErrInvalidEntity,
	dynamicdomain.ErrInvalidFieldName,
	dynamicdomain.ErrInvalidFieldType,
	dynamicdomain.ErrInvalidFieldValue,
	dynamicdomain.ErrInvalidSmartCode,
	relationshipdomain.ErrInvalidOrganization,
	relationshipdomain.ErrInvalidID,
	relationshipdomain.ErrInvalidFromEntity,
	relationshipdomain.ErrInvalidToEntity,
	relationshipdomain.ErrInvalidDirection,
	relationshipdomain.ErrSelfRelationship,
	transactiondomain.ErrInvalidOrganization,
	transactiondomain.ErrInvalidID,
	transactiondomain.ErrInvalidType,
	transactiondomain.ErrInvalidSmartCode,
	transactiondomain.ErrInvalidEntity,
	transactiondomain.ErrInvalidLineNumber,
	transactiondomain.ErrInvalidAmount,
	transactiondomain.ErrInvalidDateRange,
	auditdomain.ErrInvalidOrganization,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
}

var notFoundSentinels = []error{
	ErrNotFound,
	export.ErrNotFound,
	organizationdomain.ErrNotFound,
	entitydomain.ErrNotFound,
	dynamicdomain.ErrNotFound,
	dynamicdomain.ErrEntityNotFound,
	relationshipdomain.ErrNotFound,
	relationshipdomain.ErrEntityNotFound,
	transactiondomain.ErrNotFound,
	transactiondomain.ErrEntityNotFound,
	gorm.ErrRecordNotFound,
}

var conflictSentinels = []error{
	ErrConflict,
	organizationdomain.ErrDuplicateCode,
	transactiondomain.ErrDuplicateCode,
	transactiondomain.ErrDuplicateLine,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
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
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// bindingError converts binding failures into field level validation errors.
func bindingError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}
	out := &ValidationErrors{}
	for _, fe := range fieldErrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fe.Field(),
			Code:    fe.Tag(),
			Message: validationMessage(fe),
		})
	}
	return out
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var rejected *guard.RejectedError
	if errors.As(err, &rejected) {
		result := rejected.Result
		issues := result.Errors
		if len(issues) == 0 {
			issues = result.Warnings
		}
		out := make([]ValidationError, 0, len(issues))
		for _, issue := range issues {
			out = append(out, ValidationError{Field: issue.Field, Code: issue.Code, Message: issue.Message})
		}
		return http.StatusUnprocessableEntity, errorPayload{
			Type:       "guardrail_rejected",
			Message:    "request violates the six-table convention",
			Errors:     out,
			Validation: &result,
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if sentinel := matchSentinel(err, validationSentinels); sentinel != nil {
		code := sentinel.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrOrgInactive), errors.Is(err, universal.ErrOrganizationInactive):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: forbiddenMessage(err),
		}
	case matchSentinel(err, conflictSentinels) != nil, db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case matchSentinel(err, notFoundSentinels) != nil:
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded by the
// request logger.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError {
		return "server_error", code
	}
	return payload.Type, code
}

func matchSentinel(err error, sentinels []error) error {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "organization_required", "organization_mismatch":
		return "organization_id"
	case "unsupported_operation":
		return "operation"
	case "unsupported_export_format":
		return "format"
	case "self_relationship":
		return "to_entity_id"
	case "invalid_payload":
		return "payload"
	}
	return strings.TrimPrefix(code, "invalid_")
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "organization_required":
		return "X-Organization-Id header is required"
	case "organization_mismatch":
		return "payload organization_id differs from the request tenant"
	case "unsupported_operation":
		return "operation is not supported for this table"
	case "unsupported_export_format":
		return "format must be one of " + strings.Join(export.Formats(), ", ")
	case "self_relationship":
		return "an entity cannot be related to itself"
	default:
		return "invalid value"
	}
}

func forbiddenMessage(err error) string {
	if errors.Is(err, ErrOrgInactive) || errors.Is(err, universal.ErrOrganizationInactive) {
		return "organization is not active"
	}
	return "forbidden"
}

func conflictMessage(err error) string {
	if sentinel := matchSentinel(err, conflictSentinels); sentinel != nil && sentinel != ErrConflict {
		return strings.ReplaceAll(sentinel.Error(), "_", " ")
	}
	return "conflict"
}
