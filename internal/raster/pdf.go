package raster

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"

	"github.com/gen2brain/go-fitz"

	"github.com/expenseflow/ocr-service/internal/common"
)

// rasterDPI renders at twice the 72 DPI PDF user space, enough for the
// recognizer to resolve receipt-sized type without ballooning memory.
const rasterDPI = 144

// Rasterizer renders the first page of a PDF to a PNG raster.
type Rasterizer interface {
	RasterizeFirstPage(pdf []byte) ([]byte, error)
}

// FitzRasterizer renders PDFs with MuPDF via go-fitz. The document handle
// lives only for the duration of one call.
type FitzRasterizer struct {
	logger *slog.Logger
}

func NewFitzRasterizer(logger *slog.Logger) *FitzRasterizer {
	return &FitzRasterizer{logger: logger}
}

func (r *FitzRasterizer) RasterizeFirstPage(pdf []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, common.NewAppError("PDF_RENDER_ERROR", fmt.Sprintf("failed to open pdf: %v", err), common.ErrPdfRender)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, common.NewAppError("PDF_RENDER_ERROR", "pdf has no pages", common.ErrPdfRender)
	}

	img, err := doc.ImageDPI(0, rasterDPI)
	if err != nil {
		return nil, common.NewAppError("PDF_RENDER_ERROR", fmt.Sprintf("failed to render first page: %v", err), common.ErrPdfRender)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, common.NewAppError("PDF_RENDER_ERROR", fmt.Sprintf("failed to encode raster: %v", err), common.ErrPdfRender)
	}

	r.logger.Debug("rasterized first page",
		"pages", doc.NumPage(),
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"bytes", buf.Len())
	return buf.Bytes(), nil
}
