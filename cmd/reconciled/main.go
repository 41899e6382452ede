package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/extract"
	"github.com/reconcileai/reconcileai/internal/llm/openai"
	"github.com/reconcileai/reconcileai/internal/ocr"
	"github.com/reconcileai/reconcileai/internal/prompt"
	"github.com/reconcileai/reconcileai/internal/providers"
	"github.com/reconcileai/reconcileai/internal/providers/xero"
	"github.com/reconcileai/reconcileai/internal/providers/zoho"
	"github.com/reconcileai/reconcileai/internal/recon"
	"github.com/reconcileai/reconcileai/internal/report"
	"github.com/reconcileai/reconcileai/internal/repository"
	"github.com/reconcileai/reconcileai/internal/server"
	"github.com/reconcileai/reconcileai/internal/storage"
	"github.com/reconcileai/reconcileai/internal/syncq"
)

func main() {
	cfg := common.LoadConfig()

	logLevel := slog.LevelDebug
	if cfg.Server.IsProduction {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 3*time.Second); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	files, err := storage.NewDiskStore(cfg.Storage.UploadDir, logger)
	if err != nil {
		logger.Error("upload storage init failed", "error", err)
		os.Exit(1)
	}

	chat := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	analyzer, err := ocr.NewTextractAnalyzer(ctx, ocr.Config{
		Region:  cfg.OCR.AWSRegion,
		Timeout: cfg.OCR.Timeout,
	}, logger)
	if err != nil {
		logger.Error("textract init failed", "error", err)
		os.Exit(1)
	}

	prompts := prompt.NewBuilder(cfg.Policy.MaxPromptBytes)
	extractor := extract.NewExtractor(extract.Config{
		StructuredRowFloor: cfg.Policy.StructuredRowFloor,
		NegligibleAmount:   cfg.Policy.NegligibleDecimal(),
	}, analyzer, chat, prompts, logger)

	policy := recon.Policy{
		AcceptEligible:     cfg.Policy.AcceptEligible,
		AlreadySynced:      cfg.Policy.AlreadySynced,
		FallbackConfidence: cfg.Policy.FallbackConfidence,
	}
	interpreter := recon.NewInterpreter(policy, logger)
	orchestrator := recon.NewOrchestrator(extractor, chat, prompts, interpreter, logger)

	statementRepo := repository.NewStatementRepository(pool)
	txRepo := repository.NewTransactionRepository(pool)
	syncRepo := repository.NewSyncQueueRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)

	provs := []providers.Provider{
		xero.NewClient(xero.Config{
			ClientID:     cfg.Xero.ClientID,
			ClientSecret: cfg.Xero.ClientSecret,
		}, tokenRepo, logger),
		zoho.NewClient(zoho.Config{
			ClientID:       cfg.Zoho.ClientID,
			ClientSecret:   cfg.Zoho.ClientSecret,
			OrganizationID: cfg.Zoho.OrganizationID,
		}, tokenRepo, logger),
	}

	registry := providers.NewRegistry(provs...)
	syncService := syncq.NewService(syncq.Config{
		AlreadySynced: cfg.Policy.AlreadySynced,
	}, syncRepo, txRepo, provs, logger)
	reportService := report.NewService(reportRepo, cfg.LLM.Model, cfg.Policy.AcceptEligible, logger)

	srv := server.New(cfg.Server, server.Deps{
		Reconciler: orchestrator,
		Parser:     extractor,
		Secondary:  registry,
		Statements: statementRepo,
		Txs:        txRepo,
		Syncs:      syncService,
		Reports:    reportService,
		Files:      files,
		Health: func(ctx context.Context) error {
			return repository.HealthCheck(ctx, pool, 3*time.Second)
		},
		Logger: logger,
	})

	worker := syncq.NewWorker(syncService, 30*time.Second, logger)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sync worker exited", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening",
			"addr", cfg.Server.Addr,
			"providers", []string{constants.ProviderXero, constants.ProviderZoho})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
