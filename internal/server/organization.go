package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	"github.com/heraerp/hera/internal/orgcontext"
	"github.com/heraerp/hera/pkg/db/pagination"
)

type createOrganizationRequest struct {
	Name     string         `json:"organization_name"`
	Code     string         `json:"organization_code"`
	Type     string         `json:"organization_type"`
	Metadata map[string]any `json:"metadata"`
}

type updateOrganizationStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active suspended archived"`
}

func (s *Server) CreateOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.organizationSvc.Create(c.Request.Context(), organizationdomain.CreateOrganizationRequest{
		Name:     strings.TrimSpace(req.Name),
		Code:     strings.TrimSpace(req.Code),
		Type:     strings.TrimSpace(req.Type),
		Metadata: req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrganizations(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
		Type   string `form:"organization_type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.organizationSvc.List(c.Request.Context(), organizationdomain.ListOrganizationRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Status:    strings.TrimSpace(query.Status),
		Type:      strings.TrimSpace(query.Type),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrganizationByID(c *gin.Context) {
	resp, err := s.organizationSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateOrganizationStatus(c *gin.Context) {
	var req updateOrganizationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.organizationSvc.UpdateStatus(c.Request.Context(), organizationdomain.UpdateStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ExportOrganization streams the organization's rows as an attachment.
func (s *Server) ExportOrganization(c *gin.Context) {
	orgID, err := parseOptionalSnowflakeID(c.Param("id"))
	if err != nil || orgID == nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var query struct {
		Format string `form:"format" binding:"omitempty,export_format"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = "csv"
	}

	ctx := c.Request.Context()
	if current, ok := orgcontext.OrgIDFromContext(ctx); ok && current != *orgID {
		AbortWithError(c, ErrForbidden)
		return
	}
	ctx = orgcontext.WithOrgID(ctx, int64(*orgID))

	artifact, err := s.exporter.Export(ctx, *orgID, format)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Body)
}
