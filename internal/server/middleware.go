package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/heraerp/hera/internal/audit/domain"
	"github.com/heraerp/hera/internal/auditcontext"
	"github.com/heraerp/hera/internal/cache"
	"github.com/heraerp/hera/internal/guardrail"
	"github.com/heraerp/hera/internal/observability/logger"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	"github.com/heraerp/hera/internal/orgcontext"
	"go.uber.org/zap"
)

const (
	HeaderOrg          = "X-Organization-Id"
	universalRoute     = "/api/v1/universal"
	serviceTokenActor  = "service-token"
	rateLimitAnonymous = "anonymous"
)

// ServiceTokenRequired checks the bearer token against the configured service
// token. Without a configured token, requests pass outside production and are
// refused in production.
func (s *Server) ServiceTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(s.cfg.ServiceToken)
		if expected == "" {
			if s.cfg.IsProduction() {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			c.Next()
			return
		}

		parts := strings.Fields(strings.TrimSpace(c.GetHeader("Authorization")))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expected)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := auditcontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeService), serviceTokenActor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// OrgContext resolves X-Organization-Id, verifies the organization is active
// and puts it on the request context. Requests without the header pass through.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		if raw == "" {
			c.Next()
			return
		}

		orgID, err := snowflake.ParseString(raw)
		if err != nil || orgID <= 0 {
			AbortWithError(c, ErrInvalidOrgHeader)
			return
		}

		status, err := s.organizationStatus(c, orgID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if status.Status != organizationdomain.StatusActive {
			AbortWithError(c, ErrOrgInactive)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), int64(orgID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) organizationStatus(c *gin.Context, orgID snowflake.ID) (cache.OrganizationStatus, error) {
	if s.orgCache != nil {
		if status, ok := s.orgCache.Get(orgID); ok {
			return status, nil
		}
	}

	org, err := s.organizationSvc.GetByID(c.Request.Context(), orgID.String())
	if err != nil {
		return cache.OrganizationStatus{}, err
	}
	status := cache.OrganizationStatus{ID: org.ID, Status: org.Status}
	if s.orgCache != nil {
		s.orgCache.Set(status)
	}
	return status, nil
}

// RequireOrg fails requests that carry no tenant.
func RequireOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		if orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context()); !ok || orgID == 0 {
			AbortWithError(c, ErrOrgRequired)
			return
		}
		c.Next()
	}
}

// WriteRateLimit meters mutating requests per organization. A universal
// request without a tenant header names its tenant in the payload, so
// ExecuteUniversal meters it once the body is bound.
func (s *Server) WriteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() || !isWrite(c.Request.Method) {
			c.Next()
			return
		}

		orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
		scoped := ok && orgID != 0
		if !scoped && c.FullPath() == universalRoute {
			c.Next()
			return
		}

		key := rateLimitAnonymous
		if scoped {
			key = orgID.String()
		}
		if !s.allowWrite(c, key) {
			return
		}
		c.Next()
	}
}

// allowWrite takes one token for key and aborts the request when none is
// left or the limiter cannot be reached.
func (s *Server) allowWrite(c *gin.Context, key string) bool {
	ctx := c.Request.Context()
	endpoint := normalizeRateLimitEndpoint(c)

	res, err := s.limiter.AllowOrg(ctx, key)
	if err != nil {
		logger.FromContext(ctx).Warn("write rate limit check failed", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return false
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.Allowed {
		logger.FromContext(ctx).Warn("write rate limit exceeded", zap.String("endpoint", endpoint))
		s.metrics.RecordRateLimitDenied(ctx, key, endpoint, "org-write-rate")
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(res.RetryAfter)))
		AbortWithError(c, ErrRateLimited)
		return false
	}

	s.metrics.RecordRateLimitAllowed(ctx, key, endpoint)
	return true
}

// payloadRateLimitKey is the tenant named by a universal payload, or the
// anonymous key when it names none.
func payloadRateLimitKey(payload guardrail.Payload) string {
	var raw string
	switch v := payload[guardrail.FieldOrganizationID].(type) {
	case string:
		raw = v
	case json.Number:
		raw = v.String()
	}
	if id, err := snowflake.ParseString(strings.TrimSpace(raw)); err == nil && id > 0 {
		return id.String()
	}
	return rateLimitAnonymous
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
