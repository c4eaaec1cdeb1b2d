package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	transactiondomain "github.com/heraerp/hera/internal/transaction/domain"
	"github.com/heraerp/hera/pkg/db/pagination"
)

// CreateTransaction writes a header and its lines. Amounts accept JSON numbers
// or decimal strings.
func (s *Server) CreateTransaction(c *gin.Context) {
	var req transactiondomain.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.transactionSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTransactions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		TransactionType string `form:"transaction_type"`
		Status          string `form:"transaction_status"`
		SmartCode       string `form:"smart_code"`
		EntityID        string `form:"entity_id" binding:"omitempty,snowflake_id"`
		DateFrom        string `form:"date_from"`
		DateTo          string `form:"date_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	dateFrom, err := parseOptionalTime(query.DateFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("date_from", "invalid_date_from", "invalid date_from"))
		return
	}
	dateTo, err := parseOptionalTime(query.DateTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("date_to", "invalid_date_to", "invalid date_to"))
		return
	}

	resp, err := s.transactionSvc.List(c.Request.Context(), transactiondomain.ListTransactionRequest{
		PageToken:       query.PageToken,
		PageSize:        int32(query.PageSize),
		TransactionType: strings.TrimSpace(query.TransactionType),
		Status:          strings.TrimSpace(query.Status),
		SmartCode:       strings.TrimSpace(query.SmartCode),
		EntityID:        strings.TrimSpace(query.EntityID),
		DateFrom:        dateFrom,
		DateTo:          dateTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTransactionByID(c *gin.Context) {
	resp, err := s.transactionSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReconcileTransaction(c *gin.Context) {
	resp, err := s.transactionSvc.Reconcile(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
