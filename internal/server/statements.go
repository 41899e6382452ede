package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/entity"
)

// Concurrent extractions per upload batch.
const uploadParallelism = 4

type uploadOutcome struct {
	Statement *entity.BankStatement `json:"statement,omitempty"`
	Filename  string                `json:"filename"`
	Count     int                   `json:"transactionCount"`
	Error     string                `json:"error,omitempty"`
}

// handleUploadStatements ingests a batch of statement files. Files are
// extracted in parallel; a bad file fails its own slot without sinking the
// batch.
func (s *Server) handleUploadStatements(c *gin.Context) {
	ctx := c.Request.Context()

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one file is required"})
		return
	}

	outcomes := make([]uploadOutcome, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadParallelism)
	for i, fh := range files {
		g.Go(func() error {
			outcome := uploadOutcome{Filename: fh.Filename}

			doc, err := readUpload(fh)
			if err == nil {
				doc.IDPrefix = "bank"
				var txs []entity.Transaction
				txs, err = s.parser.Parse(gctx, doc)
				if err == nil {
					var st *entity.BankStatement
					st, err = s.storeStatement(gctx, fh.Filename, doc.MimeType, fh.Size, doc.Data, txs)
					if err == nil {
						outcome.Statement = st
						outcome.Count = len(txs)
					}
				}
			}
			if err != nil {
				outcome.Error = err.Error()
			}

			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	for _, o := range outcomes {
		if o.Error != "" {
			status = http.StatusMultiStatus
			break
		}
	}
	c.JSON(status, gin.H{"results": outcomes})
}

func (s *Server) storeStatement(ctx context.Context, filename, mimeType string, size int64, data []byte, txs []entity.Transaction) (*entity.BankStatement, error) {
	storageKey, err := s.files.Save(ctx, "statement", filename, data)
	if err != nil {
		return nil, err
	}

	statement := &entity.BankStatement{
		Filename:          filename,
		FileType:          mimeType,
		StorageKey:        storageKey,
		Status:            "processed",
		TotalTransactions: len(txs),
	}
	if err := s.statements.CreateStatement(ctx, statement); err != nil {
		return nil, err
	}

	session := &entity.ReconciliationSession{
		BankStatementID: statement.ID,
		Status:          "completed",
		TotalUnmatched:  len(txs),
	}
	if err := s.statements.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	if err := s.statements.SaveTransactions(ctx, statement.ID, session.ID, txs); err != nil {
		return nil, err
	}
	if err := s.statements.CompleteSession(ctx, session); err != nil {
		return nil, err
	}

	statement.UnmatchedTransactions = len(txs)
	if err := s.statements.UpdateStatementSummary(ctx, statement); err != nil {
		return nil, err
	}
	return statement, nil
}

func (s *Server) handleListStatements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 {
		limit = 50
	}

	statements, err := s.statements.ListStatements(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statements": statements})
}

func (s *Server) handleStatementTransactions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "statement id must be a UUID"})
		return
	}

	var status constants.TxStatus
	if raw := c.Query("status"); raw != "" {
		status = constants.TxStatus(raw)
	}

	txs, err := s.txs.List(c.Request.Context(), id, status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
