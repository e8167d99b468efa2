package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expenseflow/ocr-service/constants"
	"github.com/expenseflow/ocr-service/internal/entity"
)

func TestRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Repository Suite")
}

var _ = Describe("ScanJobRepository", func() {
	var (
		db   *sql.DB
		repo ScanJobRepository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		db, err = OpenSQLite(":memory:", logger)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(db.Close()).To(Succeed()) })

		ctx = context.Background()
		Expect(Migrate(ctx, db, logger)).To(Succeed())
		repo = NewScanJobRepository(db, logger)
	})

	sampleResult := func() entity.ExtractionResult {
		total := 150.0
		return entity.ExtractionResult{
			ExtractedFields: entity.ExtractedFields{
				DocumentType:   constants.DocFactura,
				DocumentNumber: "F001-0000123",
				IssuerRUC:      "20123456789",
				Currency:       constants.CurrencyPEN,
				Total:          &total,
			},
			RawText:       "RUC: 20123456789\nTOTAL S/ 150.00\nFACTURA F001-0000123",
			OCRConfidence: 75,
		}
	}

	It("starts a job in the running state", func() {
		job, err := repo.Start(ctx, "invoice.png", constants.IMAGE)
		Expect(err).NotTo(HaveOccurred())
		Expect(job.ID).NotTo(Equal(uuid.Nil))
		Expect(job.Status).To(Equal(string(constants.JobStatusRunning)))

		loaded, err := repo.GetByID(ctx, job.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Filename).To(Equal("invoice.png"))
		Expect(loaded.Format).To(Equal(constants.IMAGE))
		Expect(loaded.FinishedAt).To(BeNil())
		Expect(loaded.Confidence).To(BeNil())
	})

	It("records a successful extraction", func() {
		job, err := repo.Start(ctx, "invoice.png", constants.IMAGE)
		Expect(err).NotTo(HaveOccurred())

		result := sampleResult()
		Expect(repo.FinishSuccess(ctx, job.ID, result)).To(Succeed())

		loaded, err := repo.GetByID(ctx, job.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Status).To(Equal(string(constants.JobStatusSucceeded)))
		Expect(loaded.RawText).To(HaveValue(Equal(result.RawText)))
		Expect(loaded.Confidence).To(HaveValue(Equal(75)))
		Expect(loaded.FinishedAt).NotTo(BeNil())

		var stored entity.ExtractionResult
		Expect(json.Unmarshal(loaded.ExtractedJSON, &stored)).To(Succeed())
		Expect(stored.IssuerRUC).To(Equal("20123456789"))
		Expect(stored.Total).To(HaveValue(Equal(150.0)))
	})

	It("records a failure with its message", func() {
		job, err := repo.Start(ctx, "blurry.jpg", constants.IMAGE)
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.FinishFailure(ctx, job.ID, "no extractable text")).To(Succeed())

		loaded, err := repo.GetByID(ctx, job.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Status).To(Equal(string(constants.JobStatusFailed)))
		Expect(loaded.ErrorMessage).To(HaveValue(Equal("no extractable text")))
		Expect(loaded.RawText).To(BeNil())
	})

	It("returns not-found for unknown job ids", func() {
		_, err := repo.GetByID(ctx, uuid.New())
		Expect(err).To(MatchError(ErrJobNotFound))

		Expect(repo.FinishFailure(ctx, uuid.New(), "x")).To(MatchError(ErrJobNotFound))
		Expect(repo.FinishSuccess(ctx, uuid.New(), sampleResult())).To(MatchError(ErrJobNotFound))
	})

	It("lists jobs filtered by status", func() {
		a, err := repo.Start(ctx, "a.png", constants.IMAGE)
		Expect(err).NotTo(HaveOccurred())
		b, err := repo.Start(ctx, "b.pdf", constants.PDF)
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.FinishSuccess(ctx, b.ID, sampleResult())).To(Succeed())

		all, err := repo.List(ctx, "", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(2))

		running, err := repo.List(ctx, constants.JobStatusRunning, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(running).To(HaveLen(1))
		Expect(running[0].ID).To(Equal(a.ID))

		succeeded, err := repo.List(ctx, constants.JobStatusSucceeded, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(succeeded).To(HaveLen(1))
		Expect(succeeded[0].ID).To(Equal(b.ID))
	})
})
