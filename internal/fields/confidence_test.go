package fields

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expenseflow/ocr-service/constants"
	"github.com/expenseflow/ocr-service/internal/entity"
)

var _ = Describe("Score", func() {
	It("scores an empty extraction at the floor", func() {
		Expect(Score(entity.ExtractedFields{})).To(Equal(0))
	})

	It("scores a fully populated extraction at the ceiling", func() {
		Expect(Score(Extract(sampleInvoice))).To(Equal(100))
	})

	It("scores a usable invoice header at the review threshold", func() {
		f := Extract("RUC: 20123456789\nTOTAL S/ 150.00\nFACTURA F001-0000123")
		Expect(Score(f)).To(BeNumerically(">=", 75))
	})

	It("weighs the total heaviest", func() {
		total := 150.0
		Expect(Score(entity.ExtractedFields{Total: &total})).To(Equal(25))
	})

	It("gives contact-grade fields only a nudge", func() {
		Expect(Score(entity.ExtractedFields{PaymentMethod: constants.PayEfectivo})).To(Equal(2))
	})

	It("never decreases when another field is populated", func() {
		f := entity.ExtractedFields{}
		prev := Score(f)

		mutations := []func(*entity.ExtractedFields){
			func(f *entity.ExtractedFields) { f.QRPayload = "20123456789|01|F001|1|1.00|1.00|01/01/2025" },
			func(f *entity.ExtractedFields) { f.Currency = constants.CurrencyPEN },
			func(f *entity.ExtractedFields) { f.IssuerRUC = "20123456789" },
			func(f *entity.ExtractedFields) { v := 150.0; f.Total = &v },
			func(f *entity.ExtractedFields) { f.DocumentNumber = "F001-0000123" },
			func(f *entity.ExtractedFields) { f.IssueDate = "2025-08-15" },
			func(f *entity.ExtractedFields) { f.DocumentType = constants.DocFactura },
			func(f *entity.ExtractedFields) { f.Items = []entity.LineItem{{Description: "x", Quantity: 1, UnitPrice: 1, Subtotal: 1}} },
		}
		for _, mutate := range mutations {
			mutate(&f)
			next := Score(f)
			Expect(next).To(BeNumerically(">=", prev))
			prev = next
		}
	})

	It("is deterministic for the same extraction", func() {
		f := Extract(sampleInvoice)
		first := Score(f)
		for i := 0; i < 5; i++ {
			Expect(Score(f)).To(Equal(first))
		}
	})
})
