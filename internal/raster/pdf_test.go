package raster

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expenseflow/ocr-service/internal/common"
)

// buildPDF assembles a syntactically complete PDF around the given body
// objects, computing the cross-reference table offsets.
func buildPDF(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, 0, len(objects))
	for _, obj := range objects {
		offsets = append(offsets, buf.Len())
		buf.WriteString(obj)
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d/Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefPos)
	return buf.Bytes()
}

func onePagePDF() []byte {
	return buildPDF([]string{
		"1 0 obj\n<</Type/Catalog/Pages 2 0 R>>\nendobj\n",
		"2 0 obj\n<</Type/Pages/Kids[3 0 R]/Count 1>>\nendobj\n",
		"3 0 obj\n<</Type/Page/Parent 2 0 R/MediaBox[0 0 200 100]>>\nendobj\n",
	})
}

func zeroPagePDF() []byte {
	return buildPDF([]string{
		"1 0 obj\n<</Type/Catalog/Pages 2 0 R>>\nendobj\n",
		"2 0 obj\n<</Type/Pages/Kids[]/Count 0>>\nendobj\n",
	})
}

var _ = Describe("FitzRasterizer", func() {
	var r *FitzRasterizer

	BeforeEach(func() {
		r = NewFitzRasterizer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("renders the first page of a one-page document as PNG", func() {
		out, err := r.RasterizeFirstPage(onePagePDF())
		Expect(err).NotTo(HaveOccurred())

		img, format, err := image.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("png"))
		Expect(img.Bounds().Dx()).To(BeNumerically(">", 0))
		Expect(img.Bounds().Dy()).To(BeNumerically(">", 0))
	})

	It("doubles the page dimensions at render time", func() {
		out, err := r.RasterizeFirstPage(onePagePDF())
		Expect(err).NotTo(HaveOccurred())

		img, _, err := image.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		// 200x100pt page at twice the 72 DPI user space.
		Expect(img.Bounds().Dx()).To(BeNumerically("~", 400, 2))
		Expect(img.Bounds().Dy()).To(BeNumerically("~", 200, 2))
	})

	It("rejects a document with no pages", func() {
		_, err := r.RasterizeFirstPage(zeroPagePDF())
		Expect(err).To(MatchError(common.ErrPdfRender))
	})

	It("rejects bytes that are not a PDF", func() {
		_, err := r.RasterizeFirstPage([]byte("not a pdf"))
		Expect(err).To(MatchError(common.ErrPdfRender))
	})
})
