package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/report"
	"github.com/reconcileai/reconcileai/internal/repository"
)

type createReportBody struct {
	ReportName      string               `json:"reportName"`
	ReportType      string               `json:"reportType" binding:"required"`
	Transactions    []entity.Transaction `json:"transactions"`
	BankStatementID *uuid.UUID           `json:"bankStatementId"`
	SessionID       *uuid.UUID           `json:"reconciliationSessionId"`
	Provider        string               `json:"provider"`
	BankName        string               `json:"bankName"`
	AccountNumber   string               `json:"accountNumber"`
	Scope           string               `json:"scope"`
	Category        string               `json:"category"`
	ProcessingTime  float64              `json:"processingTime"`
	Filters         json.RawMessage      `json:"filters"`
	GeneratedBy     string               `json:"generatedBy"`
}

type updateReportBody struct {
	ReportName string   `json:"reportName" binding:"required"`
	IsFavorite bool     `json:"isFavorite"`
	Tags       []string `json:"tags"`
}

func (s *Server) handleListReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	favoritesOnly, _ := strconv.ParseBool(c.Query("favorites"))

	reports, err := s.reports.List(c.Request.Context(), repository.ReportQuery{
		Limit:         limit,
		Offset:        offset,
		ReportType:    c.Query("report_type"),
		Search:        c.Query("search"),
		FavoritesOnly: favoritesOnly,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (s *Server) handleCreateReport(c *gin.Context) {
	var body createReportBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reportType is required"})
		return
	}

	rep, err := s.reports.Generate(c.Request.Context(), report.GenerateRequest{
		ReportName:      body.ReportName,
		ReportType:      body.ReportType,
		Transactions:    body.Transactions,
		BankStatementID: body.BankStatementID,
		SessionID:       body.SessionID,
		Provider:        body.Provider,
		BankName:        body.BankName,
		AccountNumber:   body.AccountNumber,
		Scope:           body.Scope,
		Category:        body.Category,
		ProcessingTime:  body.ProcessingTime,
		Filters:         body.Filters,
		GeneratedBy:     body.GeneratedBy,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": rep})
}

func (s *Server) handleGetReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report id must be a UUID"})
		return
	}

	rep, err := s.reports.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": rep})
}

func (s *Server) handleUpdateReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report id must be a UUID"})
		return
	}

	var body updateReportBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reportName is required"})
		return
	}

	rep, err := s.reports.Rename(c.Request.Context(), id, body.ReportName, body.IsFavorite, body.Tags)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": rep})
}

func (s *Server) handleDeleteReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report id must be a UUID"})
		return
	}

	if err := s.reports.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
