package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/expenseflow/ocr-service/constants"
	"github.com/expenseflow/ocr-service/internal/entity"
	"github.com/expenseflow/ocr-service/internal/repository"
)

// Service is a tiny façade over the job repository that produces XLSX bytes
// for exports.
type Service struct {
	jobs   repository.ScanJobRepository
	logger *slog.Logger
}

func NewService(jobs repository.ScanJobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobsXLSX returns an XLSX workbook (as bytes) listing scan jobs,
// optionally filtered by status. Extraction columns stay empty for jobs that
// never produced a payload.
func (s *Service) ExportJobsXLSX(ctx context.Context, status constants.JobStatus, limit int) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "ScanJobs"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Scanned At",
		"Filename",
		"Status",
		"Document Type",
		"Document Number",
		"Issuer RUC",
		"Issue Date",
		"Total",
		"Currency",
		"Confidence",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, job := range jobs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, job.StartedAt.Format("2006-01-02 15:04"))
		write(2, job.Filename)
		write(3, job.Status)

		var extracted entity.ExtractionResult
		if len(job.ExtractedJSON) > 0 {
			if err := json.Unmarshal(job.ExtractedJSON, &extracted); err != nil {
				s.logger.Warn("skipping malformed extraction payload", "job_id", job.ID, "error", err)
			}
		}
		write(4, string(extracted.DocumentType))
		write(5, extracted.DocumentNumber)
		write(6, extracted.IssuerRUC)
		write(7, extracted.IssueDate)
		if extracted.Total != nil {
			write(8, *extracted.Total)
		}
		write(9, string(extracted.Currency))
		if job.Confidence != nil {
			write(10, *job.Confidence)
		}
		if job.ErrorMessage != nil {
			write(11, *job.ErrorMessage)
		}

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	_ = f.SetColWidth(sheet, "C", "C", 12)
	_ = f.SetColWidth(sheet, "D", "E", 16)
	_ = f.SetColWidth(sheet, "F", "G", 14)
	_ = f.SetColWidth(sheet, "H", "J", 12)
	_ = f.SetColWidth(sheet, "K", "K", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(jobs),
		"status", string(status),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
