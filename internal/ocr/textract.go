package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

type Config struct {
	Region  string // default us-east-1
	Timeout time.Duration
}

// textractAPI is the slice of the Textract client we call.
type textractAPI interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

type textractAnalyzer struct {
	cfg    Config
	api    textractAPI
	logger *slog.Logger
}

// NewTextractAnalyzer builds a DocumentAnalyzer backed by AWS Textract.
func NewTextractAnalyzer(ctx context.Context, cfg Config, logger *slog.Logger) (DocumentAnalyzer, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &textractAnalyzer{
		cfg:    cfg,
		api:    textract.NewFromConfig(awsCfg),
		logger: logger,
	}, nil
}

func (a *textractAnalyzer) AnalyzeDocument(ctx context.Context, data []byte) (AnalysisResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	a.logger.Info("ocr.analyze.start", "bytes", len(data))

	out, err := a.api.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document: &types.Document{Bytes: data},
		FeatureTypes: []types.FeatureType{
			types.FeatureTypeTables,
			types.FeatureTypeForms,
		},
	})
	if err != nil {
		a.logger.Error("ocr.analyze.error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return AnalysisResult{}, fmt.Errorf("textract analyze: %w", err)
	}

	res := collectLines(out.Blocks)
	res.Duration = time.Since(start)

	a.logger.Info("ocr.analyze.ok",
		"lines", len(res.Lines),
		"pages", res.Pages,
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func collectLines(blocks []types.Block) AnalysisResult {
	var res AnalysisResult
	var confSum float64
	var confN int
	for _, b := range blocks {
		switch b.BlockType {
		case types.BlockTypePage:
			res.Pages++
		case types.BlockTypeLine:
			if b.Text != nil && *b.Text != "" {
				res.Lines = append(res.Lines, *b.Text)
			}
			if b.Confidence != nil {
				confSum += float64(*b.Confidence)
				confN++
			}
		}
	}
	if confN > 0 {
		// Textract reports 0..100.
		res.Confidence = float32(confSum / float64(confN) / 100)
	}
	if res.Pages == 0 && len(res.Lines) > 0 {
		res.Pages = 1
	}
	return res
}
