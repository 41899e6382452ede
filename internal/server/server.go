// Package server exposes the reconciliation engine over HTTP.
package server

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/extract"
	"github.com/reconcileai/reconcileai/internal/recon"
	"github.com/reconcileai/reconcileai/internal/report"
	"github.com/reconcileai/reconcileai/internal/repository"
	"github.com/reconcileai/reconcileai/internal/storage"
	"github.com/reconcileai/reconcileai/internal/syncq"
)

// Reconciler runs one reconciliation request end to end.
type Reconciler interface {
	Run(ctx context.Context, req recon.Request) (entity.ReconciliationResult, error)
}

// Parser extracts transactions from one uploaded document.
type Parser interface {
	Parse(ctx context.Context, doc extract.Document) ([]entity.Transaction, error)
}

// SecondarySource supplies live accounting records, keyed by provider name,
// for reconciliation runs that upload no secondary document.
type SecondarySource interface {
	Transactions(ctx context.Context, provider string) ([]entity.Transaction, error)
}

// StatementStore persists statements, sessions, and their transactions.
type StatementStore interface {
	CreateStatement(ctx context.Context, st *entity.BankStatement) error
	UpdateStatementSummary(ctx context.Context, st *entity.BankStatement) error
	GetStatement(ctx context.Context, id uuid.UUID) (*entity.BankStatement, error)
	ListStatements(ctx context.Context, limit int) ([]entity.BankStatement, error)
	CreateSession(ctx context.Context, s *entity.ReconciliationSession) error
	CompleteSession(ctx context.Context, s *entity.ReconciliationSession) error
	SaveTransactions(ctx context.Context, statementID, sessionID uuid.UUID, txs []entity.Transaction) error
}

// TransactionStore reads transactions and applies review actions.
type TransactionStore interface {
	Get(ctx context.Context, id string) (*entity.Transaction, error)
	List(ctx context.Context, statementID uuid.UUID, status constants.TxStatus) ([]entity.Transaction, error)
	ApplyAction(ctx context.Context, req repository.ActionRequest) (*entity.Transaction, *entity.TransactionAction, error)
	Actions(ctx context.Context, transactionID string) ([]entity.TransactionAction, error)
}

// SyncService manages the provider sync queue.
type SyncService interface {
	Add(ctx context.Context, req syncq.AddRequest) (*entity.SyncItem, error)
	EnqueueEligible(ctx context.Context, provider string) ([]entity.SyncItem, error)
	List(ctx context.Context, status constants.SyncStatus) ([]entity.SyncItem, error)
	Process(ctx context.Context, id uuid.UUID) (*entity.SyncItem, error)
}

// ReportService manages report snapshots.
type ReportService interface {
	Generate(ctx context.Context, req report.GenerateRequest) (*entity.ReconciliationReport, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.ReconciliationReport, error)
	List(ctx context.Context, q repository.ReportQuery) ([]entity.ReconciliationReport, error)
	Rename(ctx context.Context, id uuid.UUID, name string, isFavorite bool, tags []string) (*entity.ReconciliationReport, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Server wires the HTTP surface to the core services.
type Server struct {
	cfg        common.ServerConfig
	reconciler Reconciler
	parser     Parser
	secondary  SecondarySource
	statements StatementStore
	txs        TransactionStore
	syncs      SyncService
	reports    ReportService
	files      storage.FileStore
	health     func(ctx context.Context) error
	log        *slog.Logger
}

// Deps bundles everything the server needs.
type Deps struct {
	Reconciler Reconciler
	Parser     Parser
	Secondary  SecondarySource
	Statements StatementStore
	Txs        TransactionStore
	Syncs      SyncService
	Reports    ReportService
	Files      storage.FileStore
	Health     func(ctx context.Context) error
	Logger     *slog.Logger
}

func New(cfg common.ServerConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = func(context.Context) error { return nil }
	}
	return &Server{
		cfg:        cfg,
		reconciler: deps.Reconciler,
		parser:     deps.Parser,
		secondary:  deps.Secondary,
		statements: deps.Statements,
		txs:        deps.Txs,
		syncs:      deps.Syncs,
		reports:    deps.Reports,
		files:      deps.Files,
		health:     deps.Health,
		log:        deps.Logger,
	}
}

// Router builds the gin engine with middleware and all routes mounted.
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.log))
	r.Use(corsMiddleware(s.cfg.AllowedOrigins))

	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/reconcile", s.handleReconcile)

		v1.POST("/statements", s.handleUploadStatements)
		v1.GET("/statements", s.handleListStatements)
		v1.GET("/statements/:id/transactions", s.handleStatementTransactions)

		v1.GET("/transactions/:id", s.handleGetTransaction)
		v1.POST("/transactions/:id/actions", s.handleTransactionAction)
		v1.GET("/transactions/:id/actions", s.handleTransactionActions)

		v1.GET("/sync-queue", s.handleListSyncQueue)
		v1.POST("/sync-queue", s.handleAddSyncQueue)
		v1.POST("/sync-queue/:id/sync", s.handleProcessSyncItem)

		v1.GET("/reports", s.handleListReports)
		v1.POST("/reports", s.handleCreateReport)
		v1.GET("/reports/:id", s.handleGetReport)
		v1.PATCH("/reports/:id", s.handleUpdateReport)
		v1.DELETE("/reports/:id", s.handleDeleteReport)
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.health(c.Request.Context()); err != nil {
		c.JSON(503, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}
