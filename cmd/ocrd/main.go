package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/expenseflow/ocr-service/internal/common"
	"github.com/expenseflow/ocr-service/internal/export"
	"github.com/expenseflow/ocr-service/internal/pipeline"
	"github.com/expenseflow/ocr-service/internal/raster"
	"github.com/expenseflow/ocr-service/internal/recognize"
	repo "github.com/expenseflow/ocr-service/internal/repository"
	"github.com/expenseflow/ocr-service/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	language, err := recognize.ParseLanguage(cfg.OCR.Language)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, pool, err := repo.Open(ctx, repo.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		SQLitePath:       cfg.Database.SQLitePath,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close(db, pool, logger)

	if err := repo.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := repo.Migrate(ctx, db, logger); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	jobsRepo := repo.NewScanJobRepository(db, logger)
	exporter := export.NewService(jobsRepo, logger)

	engine := recognize.NewTesseractEngine(cfg.OCR.TessdataDir, logger)
	rasterizer := raster.NewFitzRasterizer(logger)
	newScanner := func(lang recognize.Language) server.DocumentScanner {
		if lang == "" {
			lang = language
		}
		return pipeline.NewProcessor(engine, rasterizer, lang, pipeline.Callbacks{}, logger)
	}

	srv := server.New(newScanner, jobsRepo, exporter, logger)
	go func() {
		if err := srv.Listen(cfg.Server.HTTPAddr); err != nil {
			logger.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
}
