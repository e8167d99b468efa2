package recognize

import (
	"context"
	"fmt"
	"strings"

	"github.com/expenseflow/ocr-service/internal/common"
)

// Language selects the trained data the recognition engine loads.
type Language string

const (
	LangSpanish Language = "spa"
	LangEnglish Language = "eng"
	LangBoth    Language = "spa+eng"
)

// Tags returns the individual traineddata names, splitting combined
// languages on "+".
func (l Language) Tags() []string {
	return strings.Split(string(l), "+")
}

// ParseLanguage validates a language string from configuration or a request.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LangSpanish, LangEnglish, LangBoth:
		return Language(s), nil
	case "":
		return LangBoth, nil
	}
	return "", common.NewAppError("INVALID_LANGUAGE",
		fmt.Sprintf("unsupported recognition language: %q", s), common.ErrValidation)
}

// ProgressFunc receives recognition progress as a fraction in [0, 1].
// Implementations must tolerate a nil callback.
type ProgressFunc func(fraction float64)

// Result is the raw output of one recognition pass.
type Result struct {
	Text string
}

// Engine recognizes text in a rendered image. Implementations acquire
// whatever native resources they need for the duration of the call and
// release them before returning, so a crash or cancellation never leaks a
// recognizer instance.
type Engine interface {
	Recognize(ctx context.Context, image []byte, lang Language, onProgress ProgressFunc) (Result, error)
}
