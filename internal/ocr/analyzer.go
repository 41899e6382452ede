package ocr

import (
	"context"
	"time"
)

// AnalysisResult is the text layer recovered from a scanned document.
type AnalysisResult struct {
	Lines      []string
	Pages      int
	Duration   time.Duration
	Confidence float32 // mean block confidence, 0..1
}

// DocumentAnalyzer recovers line-oriented text from a document image or PDF.
// Implementations must be safe for concurrent use.
type DocumentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, data []byte) (AnalysisResult, error)
}
