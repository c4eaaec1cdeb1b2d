package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/guardrail"
	obscontext "github.com/heraerp/hera/internal/observability/context"
	"github.com/heraerp/hera/internal/orgcontext"
	"github.com/heraerp/hera/internal/universal"
)

type validateRequest struct {
	Table     string            `json:"table" binding:"required"`
	Operation string            `json:"operation" binding:"required"`
	Payload   guardrail.Payload `json:"payload"`
	AutoFix   bool              `json:"auto_fix"`
}

type validateResponse struct {
	guardrail.Result
	FixedRequest *guardrail.Request `json:"fixed_request,omitempty"`
}

// ValidateRequest runs the convention validator without touching storage. An
// invalid request is still a 200: the findings are the response.
func (s *Server) ValidateRequest(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	greq := guardrail.Request{
		Table:     strings.TrimSpace(req.Table),
		Operation: req.Operation,
		Payload:   req.Payload,
	}
	operation := guardrail.NormalizeOperation(greq.Operation)
	c.Set(obscontext.KeyGuardrailTable, greq.Table)
	c.Set(obscontext.KeyGuardrailOperation, operation)

	var resp validateResponse
	if req.AutoFix {
		fixed, res, applied := guardrail.FixAndValidate(greq)
		resp.Result = res
		if applied {
			resp.FixedRequest = &fixed
		}
	} else {
		resp.Result = guardrail.Validate(greq)
	}

	outcome := validateOutcome(resp.Result)
	c.Set(obscontext.KeyGuardrailOutcome, outcome)
	s.metrics.RecordGuardrailCheck(c.Request.Context(), greq.Table, operation, outcome)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ExecuteUniversal validates and runs a {table, operation, payload} request.
func (s *Server) ExecuteUniversal(c *gin.Context) {
	var req universal.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}
	c.Set(obscontext.KeyGuardrailTable, strings.TrimSpace(req.Table))
	c.Set(obscontext.KeyGuardrailOperation, guardrail.NormalizeOperation(req.Operation))

	if s.limiter.Enabled() {
		if orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context()); !ok || orgID == 0 {
			if !s.allowWrite(c, payloadRateLimitKey(req.Payload)) {
				return
			}
		}
	}

	resp, err := s.universal.Execute(c.Request.Context(), req)
	if err != nil {
		var rejected *guard.RejectedError
		if errors.As(err, &rejected) {
			c.Set(obscontext.KeyGuardrailOutcome, guard.DecisionReject)
		}
		AbortWithError(c, err)
		return
	}
	c.Set(obscontext.KeyGuardrailOutcome, resp.Decision)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func validateOutcome(res guardrail.Result) string {
	switch {
	case !res.Valid:
		return "invalid"
	case len(res.Warnings) > 0:
		return "warning"
	default:
		return "valid"
	}
}
