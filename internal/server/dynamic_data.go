package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	dynamicdomain "github.com/heraerp/hera/internal/dynamicdata/domain"
)

type setDynamicFieldRequest struct {
	FieldName string `json:"field_name"`
	FieldType string `json:"field_type" binding:"omitempty,oneof=text number boolean date json"`
	Value     any    `json:"field_value"`
	SmartCode string `json:"smart_code"`
}

func (s *Server) ListDynamicFields(c *gin.Context) {
	resp, err := s.dynamicDataSvc.List(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetDynamicField(c *gin.Context) {
	var req setDynamicFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.dynamicDataSvc.Set(c.Request.Context(), dynamicdomain.SetFieldRequest{
		EntityID:  strings.TrimSpace(c.Param("id")),
		FieldName: strings.TrimSpace(req.FieldName),
		FieldType: strings.TrimSpace(req.FieldType),
		Value:     req.Value,
		SmartCode: strings.TrimSpace(req.SmartCode),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDynamicField(c *gin.Context) {
	resp, err := s.dynamicDataSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(c.Param("field")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDynamicField(c *gin.Context) {
	entityID := strings.TrimSpace(c.Param("id"))
	field := strings.TrimSpace(c.Param("field"))
	if err := s.dynamicDataSvc.Delete(c.Request.Context(), entityID, field); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
