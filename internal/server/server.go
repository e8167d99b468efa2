package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/expenseflow/ocr-service/constants"
	"github.com/expenseflow/ocr-service/internal/common"
	"github.com/expenseflow/ocr-service/internal/entity"
	"github.com/expenseflow/ocr-service/internal/export"
	"github.com/expenseflow/ocr-service/internal/pipeline"
	"github.com/expenseflow/ocr-service/internal/recognize"
	"github.com/expenseflow/ocr-service/internal/repository"
	"github.com/expenseflow/ocr-service/internal/schema"
)

// DocumentScanner is the slice of the pipeline the HTTP layer drives.
type DocumentScanner interface {
	ProcessImage(ctx context.Context, in pipeline.Input) (*entity.ExtractionResult, error)
	ProcessPDF(ctx context.Context, in pipeline.Input) (*entity.ExtractionResult, error)
}

// ScannerFactory builds a scanner for one request. The pipeline processes a
// single document per run, so every request gets its own instance.
type ScannerFactory func(lang recognize.Language) DocumentScanner

// Server exposes the scanning pipeline, the job store and exports over HTTP.
type Server struct {
	app        *fiber.App
	newScanner ScannerFactory
	jobs       repository.ScanJobRepository
	exporter   *export.Service
	logger     *slog.Logger
}

func New(newScanner ScannerFactory, jobs repository.ScanJobRepository, exporter *export.Service, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             constants.MaxUploadBytes + 1024*1024,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:        app,
		newScanner: newScanner,
		jobs:       jobs,
		exporter:   exporter,
		logger:     logger,
	}

	app.Get("/healthz", s.handleHealth)

	v1 := app.Group("/api/v1")
	v1.Post("/documents/scan", s.handleScan)
	v1.Get("/jobs/export", s.handleExport)
	v1.Get("/jobs/:id", s.handleGetJob)
	v1.Get("/jobs", s.handleListJobs)

	return s
}

// App returns the underlying fiber app, used by Listen and by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleScan(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}
	if fileHeader.Size > constants.MaxUploadBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("file exceeds %d byte limit", constants.MaxUploadBytes),
		})
	}

	// An empty language picks the server-configured default.
	var lang recognize.Language
	if v := c.FormValue("language"); v != "" {
		lang, err = recognize.ParseLanguage(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	fh, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read upload",
		})
	}
	defer fh.Close()
	data, err := io.ReadAll(fh)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read upload",
		})
	}

	// Type is decided by content, not by the upload headers.
	format := constants.MapMIMEToFormat(http.DetectContentType(data))
	if format == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unsupported file type: accepted are jpeg, png, webp and pdf",
		})
	}

	job, err := s.jobs.Start(c.Context(), fileHeader.Filename, format)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create scan job",
		})
	}

	scanner := s.newScanner(lang)
	in := pipeline.Input{Filename: fileHeader.Filename, Data: data}

	var result *entity.ExtractionResult
	if format == constants.PDF {
		result, err = scanner.ProcessPDF(c.Context(), in)
	} else {
		result, err = scanner.ProcessImage(c.Context(), in)
	}
	if err != nil {
		if ferr := s.jobs.FinishFailure(c.Context(), job.ID, err.Error()); ferr != nil {
			s.logger.Error("failed to record job failure", "job_id", job.ID, "error", ferr)
		}
		return s.processingError(c, job.ID, err)
	}

	payload, err := json.Marshal(result)
	if err == nil {
		err = schema.ValidateExtraction(payload)
	}
	if err != nil {
		s.logger.Error("extraction payload rejected", "job_id", job.ID, "error", err)
		if ferr := s.jobs.FinishFailure(c.Context(), job.ID, err.Error()); ferr != nil {
			s.logger.Error("failed to record job failure", "job_id", job.ID, "error", ferr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "extraction payload failed validation",
			"job_id": job.ID,
		})
	}

	if err := s.jobs.FinishSuccess(c.Context(), job.ID, *result); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "failed to persist extraction",
			"job_id": job.ID,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"job_id":     job.ID,
		"status":     string(constants.JobStatusSucceeded),
		"extraccion": result,
	})
}

// processingError maps the error taxonomy onto HTTP statuses: bad input is
// the client's fault, unreadable-but-valid input is unprocessable, and the
// rest is ours.
func (s *Server) processingError(c *fiber.Ctx, jobID uuid.UUID, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, common.ErrEmptyText), errors.Is(err, common.ErrPdfRender):
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{
		"error":  err.Error(),
		"job_id": jobID,
	})
}

func (s *Server) handleGetJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job id",
		})
	}
	job, err := s.jobs.GetByID(c.Context(), id)
	if errors.Is(err, repository.ErrJobNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "job not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load job",
		})
	}
	return c.JSON(job)
}

func (s *Server) handleListJobs(c *fiber.Ctx) error {
	status := constants.JobStatus(c.Query("status"))
	switch status {
	case "", constants.JobStatusRunning, constants.JobStatusSucceeded, constants.JobStatusFailed:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid status filter",
		})
	}

	limit := c.QueryInt("limit", 100)
	if limit > 500 {
		limit = 500
	}

	jobs, err := s.jobs.List(c.Context(), status, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list jobs",
		})
	}
	return c.JSON(fiber.Map{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	status := constants.JobStatus(c.Query("status"))
	out, err := s.exporter.ExportJobsXLSX(c.Context(), status, c.QueryInt("limit", 0))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "export failed",
		})
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="scan-jobs.xlsx"`)
	return c.Send(out)
}
