package raster

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	"image/png"

	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/expenseflow/ocr-service/internal/common"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// ToPNG normalizes an uploaded photo to PNG for the recognition engine.
// PNG input passes through untouched; JPEG and WebP are re-encoded.
func ToPNG(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, pngMagic) {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("failed to decode image: %v", err), common.ErrValidation)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("failed to encode png: %v", err), common.ErrValidation)
	}
	return buf.Bytes(), nil
}
