package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/expenseflow/ocr-service/constants"
	"github.com/expenseflow/ocr-service/internal/entity"
	"github.com/expenseflow/ocr-service/internal/pipeline"
	"github.com/expenseflow/ocr-service/internal/raster"
	"github.com/expenseflow/ocr-service/internal/recognize"
	repo "github.com/expenseflow/ocr-service/internal/repository"
)

// scanfile runs one document through the recognition pipeline from the
// command line and prints the extraction as JSON.
func main() {
	fs := ff.NewFlagSet("scanfile")
	var (
		file     = fs.StringLong("file", "", "Path to the image or PDF to scan")
		lang     = fs.StringLong("lang", "spa+eng", "Recognition language: spa, eng or spa+eng")
		tessdata = fs.StringLong("tessdata", "", "Tesseract traineddata directory (optional)")
		dbPath   = fs.StringLong("db", "", "Record the job in this sqlite database (optional)")
		timeout  = fs.DurationLong("timeout", 2*time.Minute, "Overall processing timeout")
		progress = fs.BoolLong("progress", "Print progress milestones to stderr")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SCANFILE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *file == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --file is required")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	language, err := recognize.ParseLanguage(*lang)
	if err != nil {
		fatal(err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fatal(err)
	}

	format := constants.MapMIMEToFormat(http.DetectContentType(data))
	if format == "" {
		fmt.Fprintln(os.Stderr, "error: unsupported file type: accepted are jpeg, png, webp and pdf")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cb := pipeline.Callbacks{}
	if *progress {
		cb.OnProgress = func(percent int) {
			fmt.Fprintf(os.Stderr, "progress: %d%%\n", percent)
		}
	}

	engine := recognize.NewTesseractEngine(*tessdata, logger)
	rasterizer := raster.NewFitzRasterizer(logger)
	processor := pipeline.NewProcessor(engine, rasterizer, language, cb, logger)

	jobs := openJobStore(ctx, *dbPath, logger)
	in := pipeline.Input{Filename: filepath.Base(*file), Data: data}

	var job *entity.ScanJob
	if jobs != nil {
		if job, err = jobs.Start(ctx, in.Filename, format); err != nil {
			fatal(err)
		}
	}

	var result *entity.ExtractionResult
	if format == constants.PDF {
		result, err = processor.ProcessPDF(ctx, in)
	} else {
		result, err = processor.ProcessImage(ctx, in)
	}

	if jobs != nil && job != nil {
		if err != nil {
			if ferr := jobs.FinishFailure(ctx, job.ID, err.Error()); ferr != nil {
				logger.Error("failed to record job failure", "error", ferr)
			}
		} else if ferr := jobs.FinishSuccess(ctx, job.ID, *result); ferr != nil {
			logger.Error("failed to record job success", "error", ferr)
		}
	}
	if err != nil {
		fatal(err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(out))
}

// openJobStore opens the optional sqlite job log. Returns nil when --db is
// not given.
func openJobStore(ctx context.Context, path string, logger *slog.Logger) repo.ScanJobRepository {
	if path == "" {
		return nil
	}
	db, err := repo.OpenSQLite(path, logger)
	if err != nil {
		fatal(err)
	}
	if err := repo.Migrate(ctx, db, logger); err != nil {
		fatal(err)
	}
	return repo.NewScanJobRepository(db, logger)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
