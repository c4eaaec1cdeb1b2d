package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	relationshipdomain "github.com/heraerp/hera/internal/relationship/domain"
	"github.com/heraerp/hera/pkg/db/pagination"
)

type createRelationshipRequest struct {
	FromEntityID string         `json:"from_entity_id" binding:"omitempty,snowflake_id"`
	ToEntityID   string         `json:"to_entity_id" binding:"omitempty,snowflake_id"`
	Type         string         `json:"relationship_type"`
	SmartCode    string         `json:"smart_code"`
	Direction    string         `json:"relationship_direction"`
	Strength     *float64       `json:"relationship_strength"`
	Metadata     map[string]any `json:"metadata"`
}

func (s *Server) CreateRelationship(c *gin.Context) {
	var req createRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.relationshipSvc.Create(c.Request.Context(), relationshipdomain.CreateRelationshipRequest{
		FromEntityID: strings.TrimSpace(req.FromEntityID),
		ToEntityID:   strings.TrimSpace(req.ToEntityID),
		Type:         strings.TrimSpace(req.Type),
		SmartCode:    strings.TrimSpace(req.SmartCode),
		Direction:    strings.TrimSpace(req.Direction),
		Strength:     req.Strength,
		Metadata:     req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRelationships(c *gin.Context) {
	var query struct {
		pagination.Pagination
		FromEntityID string `form:"from_entity_id" binding:"omitempty,snowflake_id"`
		ToEntityID   string `form:"to_entity_id" binding:"omitempty,snowflake_id"`
		EntityID     string `form:"entity_id" binding:"omitempty,snowflake_id"`
		Type         string `form:"relationship_type"`
		IsActive     string `form:"is_active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	active, err := parseOptionalBool(query.IsActive)
	if err != nil {
		AbortWithError(c, newValidationError("is_active", "invalid_is_active", "invalid is_active"))
		return
	}

	resp, err := s.relationshipSvc.List(c.Request.Context(), relationshipdomain.ListRelationshipRequest{
		PageToken:    query.PageToken,
		PageSize:     int32(query.PageSize),
		FromEntityID: strings.TrimSpace(query.FromEntityID),
		ToEntityID:   strings.TrimSpace(query.ToEntityID),
		EntityID:     strings.TrimSpace(query.EntityID),
		Type:         strings.TrimSpace(query.Type),
		Active:       active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRelationshipByID(c *gin.Context) {
	resp, err := s.relationshipSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateRelationship(c *gin.Context) {
	resp, err := s.relationshipSvc.Deactivate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
