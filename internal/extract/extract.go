// Package extract turns uploaded statement and secondary documents into
// normalized transactions. Structured formats (CSV, XLSX) are parsed with
// column heuristics; PDFs go through OCR; irregular category documents go
// through an AI extraction prompt.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/llm"
	"github.com/reconcileai/reconcileai/internal/ocr"
	"github.com/reconcileai/reconcileai/internal/prompt"
)

type Config struct {
	// StructuredRowFloor is the row count at or below which structured
	// parsing of a category document is considered too thin and the AI
	// path runs instead.
	StructuredRowFloor int
	// NegligibleAmount filters rows whose magnitude is at or below this
	// value (header echoes, zero-balance lines).
	NegligibleAmount decimal.Decimal
	// MinTextLen guards the AI path against empty or near-empty documents.
	MinTextLen int
}

// Document is one uploaded file plus the prefix used for generated
// transaction IDs ("bank", or the category name).
type Document struct {
	Data     []byte
	Name     string
	MimeType string
	IDPrefix string
}

type Extractor struct {
	cfg      Config
	analyzer ocr.DocumentAnalyzer
	chat     llm.ChatClient
	prompts  *prompt.Builder
	logger   *slog.Logger
}

func NewExtractor(cfg Config, analyzer ocr.DocumentAnalyzer, chat llm.ChatClient, prompts *prompt.Builder, logger *slog.Logger) *Extractor {
	if cfg.StructuredRowFloor <= 0 {
		cfg.StructuredRowFloor = 3
	}
	if cfg.NegligibleAmount.IsZero() {
		cfg.NegligibleAmount = decimal.RequireFromString("0.01")
	}
	if cfg.MinTextLen <= 0 {
		cfg.MinTextLen = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		cfg:      cfg,
		analyzer: analyzer,
		chat:     chat,
		prompts:  prompts,
		logger:   logger,
	}
}

// Parse runs structured extraction based on MIME type. Unsupported types are
// an input error; a supported file with no usable rows yields an empty slice.
func (e *Extractor) Parse(ctx context.Context, doc Document) ([]entity.Transaction, error) {
	start := time.Now()

	var (
		txs []entity.Transaction
		err error
	)
	switch doc.MimeType {
	case constants.MimeCSV:
		txs, err = e.parseCSV(doc)
	case constants.MimeXLSX, constants.MimeXLS:
		txs, err = e.parseXLSX(doc)
	case constants.MimePDF:
		txs, err = e.parsePDF(ctx, doc)
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFile, doc.MimeType)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("extract.parse.ok",
		"file", doc.Name,
		"mime", doc.MimeType,
		"rows", len(txs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return txs, nil
}

// ParseCategory extracts a secondary document with category routing:
// irregular categories always use the AI path, the rest try structured
// parsing first and fall back to AI when the result is too thin. Failures
// degrade to whatever rows were recovered, never abort the run.
func (e *Extractor) ParseCategory(ctx context.Context, doc Document, category constants.Category) []entity.Transaction {
	if category.AIOnly() {
		e.logger.Info("extract.category.ai_only", "file", doc.Name, "category", category)
		txs, err := e.parseWithAI(ctx, doc, category, nil)
		if err != nil {
			e.logger.Error("extract.category.ai_failed", "file", doc.Name, "category", category, "error", err)
			return nil
		}
		return txs
	}

	structured, err := e.Parse(ctx, doc)
	if err != nil {
		e.logger.Warn("extract.category.structured_failed", "file", doc.Name, "category", category, "error", err)
		structured = nil
	}
	if len(structured) > e.cfg.StructuredRowFloor {
		e.logger.Info("extract.category.structured", "file", doc.Name, "category", category, "rows", len(structured))
		return structured
	}

	e.logger.Info("extract.category.ai_fallback", "file", doc.Name, "category", category, "structured_rows", len(structured))
	txs, err := e.parseWithAI(ctx, doc, category, structured)
	if err != nil {
		e.logger.Error("extract.category.ai_failed", "file", doc.Name, "category", category, "error", err)
		return structured
	}
	return txs
}

// negligible reports whether a row should be dropped as noise.
func (e *Extractor) negligible(amount decimal.Decimal) bool {
	return amount.Abs().Cmp(e.cfg.NegligibleAmount) <= 0
}
