package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScanJob represents one document-recognition job for data transfer
// between layers.
type ScanJob struct {
	ID            uuid.UUID       `json:"id"`
	Filename      string          `json:"filename"`
	Format        string          `json:"format"` // constants.PDF | constants.IMAGE
	Status        string          `json:"status"`
	RawText       *string         `json:"texto_raw,omitempty"`
	ExtractedJSON json.RawMessage `json:"extraccion,omitempty"`
	Confidence    *int            `json:"confianza_ocr,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
}
