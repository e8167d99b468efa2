package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/expenseflow/ocr-service/constants"
	"github.com/expenseflow/ocr-service/internal/common"
	"github.com/expenseflow/ocr-service/internal/entity"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("scan job not found")

type ScanJobRepository interface {
	Start(ctx context.Context, filename, format string) (*entity.ScanJob, error)
	FinishSuccess(ctx context.Context, jobID uuid.UUID, result entity.ExtractionResult) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ScanJob, error)
	List(ctx context.Context, status constants.JobStatus, limit int) ([]*entity.ScanJob, error)
}

type scanJobRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewScanJobRepository(db *sql.DB, log *slog.Logger) ScanJobRepository {
	return &scanJobRepo{db: db, log: log}
}

func (r *scanJobRepo) Start(ctx context.Context, filename, format string) (*entity.ScanJob, error) {
	job := &entity.ScanJob{
		ID:        uuid.New(),
		Filename:  filename,
		Format:    format,
		Status:    string(constants.JobStatusRunning),
		StartedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scan_jobs (id, filename, format, status, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.Filename, job.Format, job.Status, job.StartedAt)
	if err != nil {
		r.log.Error("scan_job start failed", "filename", filename, "err", err)
		return nil, err
	}
	r.log.Info("scan_job started", "job_id", job.ID, "filename", filename, "format", format)
	return job, nil
}

func (r *scanJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, result entity.ExtractionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return common.NewAppError("PERSIST_ERROR", "failed to serialize extraction", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE scan_jobs
		 SET status = $1, raw_text = $2, extracted_json = $3, confidence = $4, finished_at = $5
		 WHERE id = $6`,
		string(constants.JobStatusSucceeded), result.RawText, string(payload), result.OCRConfidence, time.Now().UTC(), jobID)
	if err != nil {
		r.log.Error("scan_job finish(SUCCEEDED) failed", "job_id", jobID, "err", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}
	r.log.Info("scan_job finished (SUCCEEDED)", "job_id", jobID, "confidence", result.OCRConfidence)
	return nil
}

func (r *scanJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scan_jobs
		 SET status = $1, error_message = $2, finished_at = $3
		 WHERE id = $4`,
		string(constants.JobStatusFailed), message, time.Now().UTC(), jobID)
	if err != nil {
		r.log.Error("scan_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}
	r.log.Warn("scan_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

const jobColumns = `id, filename, format, status, raw_text, extracted_json, confidence, error_message, started_at, finished_at`

func (r *scanJobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ScanJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM scan_jobs WHERE id = $1`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		r.log.Error("scan_job get failed", "job_id", jobID, "err", err)
		return nil, err
	}
	return job, nil
}

func (r *scanJobRepo) List(ctx context.Context, status constants.JobStatus, limit int) ([]*entity.ScanJob, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + jobColumns + ` FROM scan_jobs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY started_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("scan_job list failed", "err", err)
		return nil, err
	}
	defer rows.Close()

	var jobs []*entity.ScanJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.ScanJob, error) {
	var (
		job        entity.ScanJob
		rawText    sql.NullString
		extracted  sql.NullString
		confidence sql.NullInt64
		errMsg     sql.NullString
		finishedAt sql.NullTime
	)
	err := row.Scan(&job.ID, &job.Filename, &job.Format, &job.Status,
		&rawText, &extracted, &confidence, &errMsg, &job.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if rawText.Valid {
		job.RawText = &rawText.String
	}
	if extracted.Valid {
		job.ExtractedJSON = json.RawMessage(extracted.String)
	}
	if confidence.Valid {
		c := int(confidence.Int64)
		job.Confidence = &c
	}
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	return &job, nil
}
