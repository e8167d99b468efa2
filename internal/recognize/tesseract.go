package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/expenseflow/ocr-service/internal/common"
)

// TesseractEngine runs recognition through a gosseract client. A fresh
// client is created per call and closed before the call returns; the engine
// itself holds no native state between calls.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
	tessdataDir   string
	logger        *slog.Logger
}

// NewTesseractEngine constructs a Tesseract-backed recognition engine.
// tessdataDir may be empty to use the system default traineddata location.
func NewTesseractEngine(tessdataDir string, logger *slog.Logger) *TesseractEngine {
	return &TesseractEngine{
		clientFactory: gosseract.NewClient,
		tessdataDir:   tessdataDir,
		logger:        logger,
	}
}

func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, lang Language, onProgress ProgressFunc) (Result, error) {
	report := func(frac float64) {
		if onProgress != nil {
			onProgress(frac)
		}
	}
	report(0)

	c := e.clientFactory()
	defer c.Close()

	if e.tessdataDir != "" {
		if err := c.SetTessdataPrefix(e.tessdataDir); err != nil {
			return Result{}, common.NewAppError("RECOGNITION_ERROR", "failed to set tessdata prefix", common.ErrRecognition)
		}
	}
	if err := c.SetLanguage(lang.Tags()...); err != nil {
		return Result{}, common.NewAppError("RECOGNITION_ERROR", "failed to load language data", common.ErrRecognition)
	}
	if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return Result{}, common.NewAppError("RECOGNITION_ERROR", "failed to set page segmentation mode", common.ErrRecognition)
	}
	// Column whitespace carries meaning on receipts (quantity, unit price
	// and row totals line up), so keep it in the output.
	if err := c.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), "1"); err != nil {
		return Result{}, common.NewAppError("RECOGNITION_ERROR", "failed to set recognizer variable", common.ErrRecognition)
	}
	report(0.2)

	if err := c.SetImageFromBytes(image); err != nil {
		return Result{}, common.NewAppError("RECOGNITION_ERROR", "failed to load image into recognizer", common.ErrRecognition)
	}
	report(0.4)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	text, err := c.Text()
	if err != nil {
		e.logger.Error("recognition pass failed", "language", lang, "error", err)
		return Result{}, common.NewAppError("RECOGNITION_ERROR", fmt.Sprintf("text recognition failed: %v", err), common.ErrRecognition)
	}
	report(1)

	e.logger.Debug("recognition pass finished", "language", lang, "chars", len(text))
	return Result{Text: strings.TrimSpace(text)}, nil
}
