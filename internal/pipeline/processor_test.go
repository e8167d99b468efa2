package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expenseflow/ocr-service/constants"
	"github.com/expenseflow/ocr-service/internal/common"
	"github.com/expenseflow/ocr-service/internal/entity"
	"github.com/expenseflow/ocr-service/internal/recognize"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline Suite")
}

const invoiceText = "RUC: 20123456789\nTOTAL S/ 150.00\nFACTURA F001-0000123"

type fakeEngine struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
	block chan struct{}
}

func (e *fakeEngine) Recognize(ctx context.Context, img []byte, lang recognize.Language, onProgress recognize.ProgressFunc) (recognize.Result, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.block != nil {
		<-e.block
	}
	if onProgress != nil {
		onProgress(0)
		onProgress(0.5)
		onProgress(1)
	}
	if e.err != nil {
		return recognize.Result{}, e.err
	}
	return recognize.Result{Text: e.text}, nil
}

func (e *fakeEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeRasterizer struct {
	calls int
	out   []byte
	err   error
}

func (r *fakeRasterizer) RasterizeFirstPage(pdf []byte) ([]byte, error) {
	r.calls++
	return r.out, r.err
}

type recorder struct {
	mu       sync.Mutex
	progress []int
	results  []entity.ExtractionResult
	errs     []error
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnProgress: func(p int) {
			r.mu.Lock()
			r.progress = append(r.progress, p)
			r.mu.Unlock()
		},
		OnComplete: func(res entity.ExtractionResult) {
			r.mu.Lock()
			r.results = append(r.results, res)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() ([]int, []entity.ExtractionResult, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress...),
		append([]entity.ExtractionResult(nil), r.results...),
		append([]error(nil), r.errs...)
}

func pngBytes() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)))).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Processor", func() {
	var (
		engine     *fakeEngine
		rasterizer *fakeRasterizer
		rec        *recorder
		p          *Processor
		ctx        context.Context
	)

	newProcessor := func() *Processor {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		return NewProcessor(engine, rasterizer, recognize.LangBoth, rec.callbacks(), logger)
	}

	BeforeEach(func() {
		engine = &fakeEngine{text: invoiceText}
		rasterizer = &fakeRasterizer{out: pngBytes()}
		rec = &recorder{}
		ctx = context.Background()
		p = newProcessor()
	})

	Describe("ProcessImage", func() {
		It("extracts fields and scores a usable invoice photo", func() {
			result, err := p.ProcessImage(ctx, Input{Filename: "invoice.png", Data: pngBytes()})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.IssuerRUC).To(Equal("20123456789"))
			Expect(result.Total).To(HaveValue(Equal(150.00)))
			Expect(result.DocumentType).To(Equal(constants.DocFactura))
			Expect(result.DocumentNumber).To(Equal("F001-0000123"))
			Expect(result.RawText).To(Equal(invoiceText))
			Expect(result.OCRConfidence).To(BeNumerically(">=", 75))
		})

		It("reports monotone progress ending at 100", func() {
			_, err := p.ProcessImage(ctx, Input{Filename: "invoice.png", Data: pngBytes()})
			Expect(err).NotTo(HaveOccurred())

			progress, results, errs := rec.snapshot()
			Expect(progress).NotTo(BeEmpty())
			for i := 1; i < len(progress); i++ {
				Expect(progress[i]).To(BeNumerically(">=", progress[i-1]))
			}
			Expect(progress[len(progress)-1]).To(Equal(100))
			Expect(results).To(HaveLen(1))
			Expect(errs).To(BeEmpty())
		})

		It("keeps engine progress inside the 10-80 slice", func() {
			_, err := p.ProcessImage(ctx, Input{Filename: "invoice.png", Data: pngBytes()})
			Expect(err).NotTo(HaveOccurred())

			// The fake emits fractions 0, 0.5 and 1, which land on 10,
			// 45 and 80.
			progress, _, _ := rec.snapshot()
			Expect(progress).To(ContainElements(10, 45, 80))
		})

		It("leaves a terminal snapshot", func() {
			result, err := p.ProcessImage(ctx, Input{Filename: "invoice.png", Data: pngBytes()})
			Expect(err).NotTo(HaveOccurred())

			state := p.State()
			Expect(state.Processing).To(BeFalse())
			Expect(state.Progress).To(Equal(100))
			Expect(state.Err).To(BeNil())
			Expect(state.Result).To(Equal(result))
		})

		It("rejects non-image bytes before invoking the engine", func() {
			_, err := p.ProcessImage(ctx, Input{Filename: "notes.txt", Data: []byte("plain text, not pixels")})
			Expect(err).To(MatchError(common.ErrValidation))
			Expect(engine.callCount()).To(Equal(0))

			state := p.State()
			Expect(state.Processing).To(BeFalse())
			Expect(state.Progress).To(Equal(0))
			Expect(state.Err).To(MatchError(common.ErrValidation))
		})

		It("rejects an oversized upload before invoking the engine", func() {
			big := make([]byte, constants.MaxUploadBytes+1)
			copy(big, pngBytes())

			_, err := p.ProcessImage(ctx, Input{Filename: "huge.png", Data: big})
			Expect(err).To(MatchError(common.ErrValidation))
			Expect(engine.callCount()).To(Equal(0))
		})

		It("fails with the empty-text error when recognition finds nothing", func() {
			engine.text = "   \n  "

			_, err := p.ProcessImage(ctx, Input{Filename: "blank.png", Data: pngBytes()})
			Expect(err).To(MatchError(common.ErrEmptyText))

			_, _, errs := rec.snapshot()
			Expect(errs).To(HaveLen(1))
			Expect(errs[0]).To(MatchError(common.ErrEmptyText))
		})

		It("passes recognition failures through the taxonomy", func() {
			engine.err = common.NewAppError("RECOGNITION_ERROR", "boom", common.ErrRecognition)

			_, err := p.ProcessImage(ctx, Input{Filename: "invoice.png", Data: pngBytes()})
			Expect(err).To(MatchError(common.ErrRecognition))
		})

		It("wraps unclassified failures as unknown", func() {
			engine.err = errors.New("segfault in native layer")

			_, err := p.ProcessImage(ctx, Input{Filename: "invoice.png", Data: pngBytes()})
			var appErr *common.AppError
			Expect(errors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.Code).To(Equal("UNKNOWN"))
		})
	})

	Describe("ProcessPDF", func() {
		pdfInput := func() Input {
			return Input{Filename: "invoice.pdf", Data: []byte("%PDF-1.4 minimal body")}
		}

		It("rasterizes the first page and recognizes it", func() {
			result, err := p.ProcessPDF(ctx, pdfInput())
			Expect(err).NotTo(HaveOccurred())
			Expect(rasterizer.calls).To(Equal(1))
			Expect(engine.callCount()).To(Equal(1))
			Expect(result.IssuerRUC).To(Equal("20123456789"))
		})

		It("spends the first half of progress on rendering", func() {
			_, err := p.ProcessPDF(ctx, pdfInput())
			Expect(err).NotTo(HaveOccurred())

			progress, _, _ := rec.snapshot()
			Expect(progress[0]).To(Equal(5))
			Expect(progress).To(ContainElement(50))
			Expect(progress[len(progress)-1]).To(Equal(100))
			for i := 1; i < len(progress); i++ {
				Expect(progress[i]).To(BeNumerically(">=", progress[i-1]))
			}
		})

		It("rejects bytes without a PDF signature before rendering", func() {
			_, err := p.ProcessPDF(ctx, Input{Filename: "fake.pdf", Data: []byte("plain text")})
			Expect(err).To(MatchError(common.ErrValidation))
			Expect(rasterizer.calls).To(Equal(0))
			Expect(engine.callCount()).To(Equal(0))
		})

		It("surfaces render failures", func() {
			rasterizer.out = nil
			rasterizer.err = common.NewAppError("PDF_RENDER_ERROR", "no pages", common.ErrPdfRender)

			_, err := p.ProcessPDF(ctx, pdfInput())
			Expect(err).To(MatchError(common.ErrPdfRender))
			Expect(engine.callCount()).To(Equal(0))
		})
	})

	Describe("Reset", func() {
		It("returns the snapshot to idle", func() {
			_, err := p.ProcessImage(ctx, Input{Filename: "invoice.png", Data: pngBytes()})
			Expect(err).NotTo(HaveOccurred())

			p.Reset()
			Expect(p.State()).To(Equal(State{}))
		})

		It("discards the outcome of a run it interrupted", func() {
			engine.block = make(chan struct{})
			done := make(chan *entity.ExtractionResult, 1)

			go func() {
				defer GinkgoRecover()
				result, err := p.ProcessImage(ctx, Input{Filename: "slow.png", Data: pngBytes()})
				Expect(err).NotTo(HaveOccurred())
				done <- result
			}()

			Eventually(engine.callCount).Should(Equal(1))
			p.Reset()
			close(engine.block)

			// The caller still gets its own result back.
			var result *entity.ExtractionResult
			Eventually(done).Should(Receive(&result))
			Expect(result.IssuerRUC).To(Equal("20123456789"))

			// But nothing from the stale run reaches the snapshot or the
			// completion callback.
			Expect(p.State()).To(Equal(State{}))
			_, results, _ := rec.snapshot()
			Expect(results).To(BeEmpty())
		})
	})
})
