package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/extract"
	"github.com/reconcileai/reconcileai/internal/recon"
	"github.com/reconcileai/reconcileai/internal/report"
)

// readUpload materializes one multipart file as an extraction document.
func readUpload(fh *multipart.FileHeader) (extract.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return extract.Document{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return extract.Document{}, err
	}

	mime := constants.MimeForExt(filepath.Ext(fh.Filename))
	if mime == "" {
		mime = fh.Header.Get("Content-Type")
	}
	return extract.Document{
		Data:     data,
		Name:     fh.Filename,
		MimeType: mime,
	}, nil
}

// handleReconcile accepts a bank statement plus an optional secondary
// document, runs the engine, persists the outcome, and returns the full
// result. Set save_report=true to also freeze a snapshot.
func (s *Server) handleReconcile(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()

	bankHeader, err := c.FormFile("bank_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bank_file is required"})
		return
	}
	bankDoc, err := readUpload(bankHeader)
	if err != nil {
		s.writeError(c, err)
		return
	}

	req := recon.Request{
		Bank:  bankDoc,
		Scope: constants.Scope(c.DefaultPostForm("scope", string(constants.ScopeComplete))),
	}
	if raw := c.PostForm("category"); raw != "" {
		req.Category, _ = constants.ParseCategory(raw)
	}
	if secHeader, err := c.FormFile("secondary_file"); err == nil {
		secDoc, err := readUpload(secHeader)
		if err != nil {
			s.writeError(c, err)
			return
		}
		req.Secondary = &secDoc
	} else if provider := c.PostForm("provider"); provider != "" && s.secondary != nil {
		rows, err := s.secondary.Transactions(ctx, provider)
		if err != nil {
			s.writeError(c, err)
			return
		}
		req.SecondaryRows = rows
	}

	result, err := s.reconciler.Run(ctx, req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	elapsed := time.Since(start).Seconds()

	statement, session, err := s.persistRun(c, bankHeader, bankDoc, result, elapsed)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{
		"statement": statement,
		"session":   session,
		"result":    result,
	}

	if saveReport, _ := strconv.ParseBool(c.PostForm("save_report")); saveReport {
		rep, err := s.reports.Generate(ctx, report.GenerateRequest{
			ReportName:      c.PostForm("report_name"),
			ReportType:      constants.ReportAISync,
			Transactions:    result.BankTransactions,
			BankStatementID: &statement.ID,
			SessionID:       &session.ID,
			Provider:        c.PostForm("provider"),
			BankName:        c.PostForm("bank_name"),
			AccountNumber:   c.PostForm("account_number"),
			Scope:           string(req.Scope),
			Category:        string(req.Category),
			ProcessingTime:  elapsed,
			OriginalName:    bankHeader.Filename,
			FileSize:        bankHeader.Size,
		})
		if err != nil {
			s.writeError(c, err)
			return
		}
		resp["report"] = rep
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) persistRun(c *gin.Context, bankHeader *multipart.FileHeader, bankDoc extract.Document, result entity.ReconciliationResult, elapsed float64) (*entity.BankStatement, *entity.ReconciliationSession, error) {
	ctx := c.Request.Context()

	storageKey, err := s.files.Save(ctx, "statement", bankHeader.Filename, bankDoc.Data)
	if err != nil {
		return nil, nil, err
	}

	matched := 0
	for _, tx := range result.BankTransactions {
		if tx.IsMatched {
			matched++
		}
	}

	statement := &entity.BankStatement{
		Filename:              bankHeader.Filename,
		FileType:              bankDoc.MimeType,
		StorageKey:            storageKey,
		Status:                "processed",
		TotalTransactions:     len(result.BankTransactions),
		MatchedTransactions:   matched,
		UnmatchedTransactions: len(result.BankTransactions) - matched,
		ConfidenceScore:       result.AverageConfidence,
		BankName:              c.PostForm("bank_name"),
		AccountNumber:         c.PostForm("account_number"),
	}
	if err := s.statements.CreateStatement(ctx, statement); err != nil {
		return nil, nil, err
	}

	session := &entity.ReconciliationSession{
		BankStatementID: statement.ID,
		Status:          "completed",
		TotalMatches:    matched,
		TotalUnmatched:  len(result.BankTransactions) - matched,
		ProcessingTime:  elapsed,
	}
	if err := s.statements.CreateSession(ctx, session); err != nil {
		return nil, nil, err
	}
	if err := s.statements.SaveTransactions(ctx, statement.ID, session.ID, result.BankTransactions); err != nil {
		return nil, nil, err
	}
	if err := s.statements.CompleteSession(ctx, session); err != nil {
		return nil, nil, err
	}
	return statement, session, nil
}
