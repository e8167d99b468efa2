package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/expenseflow/ocr-service/constants"
	"github.com/expenseflow/ocr-service/internal/common"
	"github.com/expenseflow/ocr-service/internal/entity"
	"github.com/expenseflow/ocr-service/internal/fields"
	"github.com/expenseflow/ocr-service/internal/raster"
	"github.com/expenseflow/ocr-service/internal/recognize"
)

// Input is one uploaded document.
type Input struct {
	Filename string
	Data     []byte
}

// State is a snapshot of the processor. Exactly one of Err and Result is
// set once Processing turns false after a run; both are nil while idle.
type State struct {
	Processing bool
	Progress   int // 0-100
	Err        error
	Result     *entity.ExtractionResult
}

// Callbacks receive processing milestones. Any field may be nil. Callbacks
// run on the calling goroutine with no processor lock held.
type Callbacks struct {
	OnProgress func(percent int)
	OnComplete func(result entity.ExtractionResult)
	OnError    func(err error)
}

// Processor drives one document at a time through rasterization,
// recognition, field extraction and scoring.
//
// Results and callbacks are guarded by a generation token: Reset and each
// new run advance the generation, and any still-running older call commits
// nothing when it finishes. The direct caller of ProcessImage or ProcessPDF
// always receives its own return value either way.
type Processor struct {
	engine     recognize.Engine
	rasterizer raster.Rasterizer
	language   recognize.Language
	cb         Callbacks
	logger     *slog.Logger

	mu         sync.Mutex
	generation uint64
	state      State
}

func NewProcessor(engine recognize.Engine, rasterizer raster.Rasterizer, language recognize.Language, cb Callbacks, logger *slog.Logger) *Processor {
	return &Processor{
		engine:     engine,
		rasterizer: rasterizer,
		language:   language,
		cb:         cb,
		logger:     logger,
	}
}

// band maps a stage-local 0-100 subprogress onto a slice of the overall
// progress range.
type band struct {
	offset int
	span   int
}

func (b band) at(sub int) int {
	return b.offset + sub*b.span/100
}

// State returns a copy of the current snapshot.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reset clears the snapshot and invalidates any in-flight run. A run that
// was already started keeps executing but its result is discarded.
func (p *Processor) Reset() {
	p.mu.Lock()
	p.generation++
	p.state = State{}
	p.mu.Unlock()
}

// ProcessImage validates and recognizes one photographed document.
// Validation failures reject the input before any recognition work starts.
func (p *Processor) ProcessImage(ctx context.Context, in Input) (*entity.ExtractionResult, error) {
	if err := validateImage(in); err != nil {
		return nil, p.failImmediate(in, err)
	}

	gen := p.begin()
	return p.recognizeAndExtract(ctx, gen, in, in.Data, band{offset: 0, span: 100})
}

// ProcessPDF validates a PDF upload, rasterizes its first page and runs the
// image path on the raster. Rasterization occupies the first half of the
// progress range.
func (p *Processor) ProcessPDF(ctx context.Context, in Input) (*entity.ExtractionResult, error) {
	if err := validatePDF(in); err != nil {
		return nil, p.failImmediate(in, err)
	}

	gen := p.begin()
	p.report(gen, 5)

	page, err := p.rasterizer.RasterizeFirstPage(in.Data)
	if err != nil {
		return nil, p.fail(gen, in, err)
	}
	p.report(gen, 50)

	return p.recognizeAndExtract(ctx, gen, in, page, band{offset: 50, span: 50})
}

func (p *Processor) recognizeAndExtract(ctx context.Context, gen uint64, in Input, imageData []byte, b band) (*entity.ExtractionResult, error) {
	p.report(gen, b.at(0))

	pngData, err := raster.ToPNG(imageData)
	if err != nil {
		return nil, p.fail(gen, in, err)
	}

	// The engine owns the 10-80 slice of the band; milestones below and
	// above it belong to the surrounding stages.
	rec, err := p.engine.Recognize(ctx, pngData, p.language, func(frac float64) {
		p.report(gen, b.at(10+int(frac*70)))
	})
	if err != nil {
		return nil, p.fail(gen, in, err)
	}

	text := strings.TrimSpace(rec.Text)
	if text == "" {
		return nil, p.fail(gen, in, common.ErrEmptyText)
	}
	p.report(gen, b.at(80))

	extracted := fields.Extract(text)
	score := fields.Score(extracted)
	p.report(gen, b.at(95))

	result := entity.ExtractionResult{
		ExtractedFields: extracted,
		RawText:         text,
		OCRConfidence:   score,
	}
	p.report(gen, b.at(100))
	p.succeed(gen, in, result)
	return &result, nil
}

// begin starts a new run: it invalidates any older in-flight run and
// flips the snapshot to Processing.
func (p *Processor) begin() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.state = State{Processing: true}
	return p.generation
}

// report records progress and fires OnProgress unless the run is stale.
// Progress never moves backwards within a run.
func (p *Processor) report(gen uint64, percent int) {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return
	}
	if percent < p.state.Progress {
		percent = p.state.Progress
	}
	if percent > 100 {
		percent = 100
	}
	p.state.Progress = percent
	cb := p.cb.OnProgress
	p.mu.Unlock()

	if cb != nil {
		cb(percent)
	}
}

func (p *Processor) succeed(gen uint64, in Input, result entity.ExtractionResult) {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.logger.Debug("discarding stale result", "filename", in.Filename)
		return
	}
	p.state.Processing = false
	p.state.Result = &result
	cb := p.cb.OnComplete
	p.mu.Unlock()

	p.logger.Info("document processed",
		"filename", in.Filename,
		"confidence", result.OCRConfidence,
		"chars", len(result.RawText))
	if cb != nil {
		cb(result)
	}
}

func (p *Processor) fail(gen uint64, in Input, err error) error {
	err = common.ClassifyError(err)

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.logger.Debug("discarding stale failure", "filename", in.Filename, "error", err)
		return err
	}
	p.state.Processing = false
	p.state.Err = err
	cb := p.cb.OnError
	p.mu.Unlock()

	p.logger.Error("document processing failed", "filename", in.Filename, "error", err)
	if cb != nil {
		cb(err)
	}
	return err
}

// failImmediate handles rejection before a run starts: the snapshot records
// the error without ever entering Processing, and no generation is spent.
func (p *Processor) failImmediate(in Input, err error) error {
	p.mu.Lock()
	p.state = State{Err: err}
	cb := p.cb.OnError
	p.mu.Unlock()

	p.logger.Warn("document rejected", "filename", in.Filename, "error", err)
	if cb != nil {
		cb(err)
	}
	return err
}

func validateImage(in Input) error {
	if len(in.Data) == 0 {
		return common.NewAppError("VALIDATION_ERROR", "empty upload", common.ErrValidation)
	}
	if len(in.Data) > constants.MaxUploadBytes {
		return common.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("file exceeds %d byte limit", constants.MaxUploadBytes), common.ErrValidation)
	}
	mime := http.DetectContentType(in.Data)
	if _, ok := constants.AllowedImageMIMETypes[mime]; !ok {
		return common.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("unsupported image type: %s", mime), common.ErrValidation)
	}
	return nil
}

func validatePDF(in Input) error {
	if len(in.Data) == 0 {
		return common.NewAppError("VALIDATION_ERROR", "empty upload", common.ErrValidation)
	}
	if len(in.Data) > constants.MaxUploadBytes {
		return common.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("file exceeds %d byte limit", constants.MaxUploadBytes), common.ErrValidation)
	}
	if http.DetectContentType(in.Data) != constants.PDFMIMEType {
		return common.NewAppError("VALIDATION_ERROR", "not a pdf document", common.ErrValidation)
	}
	return nil
}
