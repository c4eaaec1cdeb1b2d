package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/pkg/db/pagination"
)

type createEntityRequest struct {
	EntityType string         `json:"entity_type"`
	EntityName string         `json:"entity_name"`
	EntityCode string         `json:"entity_code"`
	SmartCode  string         `json:"smart_code"`
	Status     string         `json:"status"`
	Metadata   map[string]any `json:"metadata"`
}

type updateEntityRequest struct {
	EntityName *string        `json:"entity_name"`
	EntityCode *string        `json:"entity_code"`
	SmartCode  *string        `json:"smart_code"`
	Status     *string        `json:"status"`
	Metadata   map[string]any `json:"metadata"`
}

func (s *Server) CreateEntity(c *gin.Context) {
	var req createEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.entitySvc.Create(c.Request.Context(), entitydomain.CreateEntityRequest{
		EntityType: strings.TrimSpace(req.EntityType),
		EntityName: strings.TrimSpace(req.EntityName),
		EntityCode: strings.TrimSpace(req.EntityCode),
		SmartCode:  strings.TrimSpace(req.SmartCode),
		Status:     strings.TrimSpace(req.Status),
		Metadata:   req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListEntities(c *gin.Context) {
	var query struct {
		pagination.Pagination
		EntityType     string `form:"entity_type"`
		Status         string `form:"status"`
		SmartCode      string `form:"smart_code"`
		Name           string `form:"entity_name"`
		IncludeDeleted string `form:"include_deleted"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	includeDeleted, err := parseOptionalBool(query.IncludeDeleted)
	if err != nil {
		AbortWithError(c, newValidationError("include_deleted", "invalid_include_deleted", "invalid include_deleted"))
		return
	}

	resp, err := s.entitySvc.List(c.Request.Context(), entitydomain.ListEntityRequest{
		PageToken:      query.PageToken,
		PageSize:       int32(query.PageSize),
		EntityType:     strings.TrimSpace(query.EntityType),
		Status:         strings.TrimSpace(query.Status),
		SmartCode:      strings.TrimSpace(query.SmartCode),
		Name:           strings.TrimSpace(query.Name),
		IncludeDeleted: includeDeleted != nil && *includeDeleted,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEntityByID(c *gin.Context) {
	resp, err := s.entitySvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateEntity(c *gin.Context) {
	var req updateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.entitySvc.Update(c.Request.Context(), entitydomain.UpdateEntityRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		EntityName: req.EntityName,
		EntityCode: req.EntityCode,
		SmartCode:  req.SmartCode,
		Status:     req.Status,
		Metadata:   req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteEntity(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.entitySvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "status": entitydomain.StatusDeleted}})
}
