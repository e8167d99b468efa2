package fields

import "github.com/expenseflow/ocr-service/internal/entity"

// Field weights for the 0-100 extraction confidence score. High-signal
// fiscal fields dominate: a document with its total, issuer RUC and
// series-correlative number identified is already trustworthy enough for
// review, while contact details only nudge the score.
const (
	weightTotal          = 25
	weightIssuerRUC      = 20
	weightDocumentNumber = 15
	weightIssueDate      = 10
	weightDocumentType   = 10
	weightCurrency       = 5
	weightSubtotal       = 3
	weightTax            = 3
	weightIssuerName     = 3
	weightItems          = 2
	weightQRPayload      = 2
	weightPaymentMethod  = 2
)

// Score rates how complete an extraction is, from 0 (nothing detected) to
// 100 (every weighted field detected). Scoring is purely additive over
// field presence, so it is deterministic and monotone: populating another
// weighted field never lowers the score.
func Score(f entity.ExtractedFields) int {
	score := 0
	if f.Total != nil {
		score += weightTotal
	}
	if f.IssuerRUC != "" {
		score += weightIssuerRUC
	}
	if f.DocumentNumber != "" {
		score += weightDocumentNumber
	}
	if f.IssueDate != "" {
		score += weightIssueDate
	}
	if f.DocumentType != "" {
		score += weightDocumentType
	}
	if f.Currency != "" {
		score += weightCurrency
	}
	if f.Subtotal != nil {
		score += weightSubtotal
	}
	if f.Tax != nil {
		score += weightTax
	}
	if f.IssuerName != "" {
		score += weightIssuerName
	}
	if len(f.Items) > 0 {
		score += weightItems
	}
	if f.QRPayload != "" {
		score += weightQRPayload
	}
	if f.PaymentMethod != "" {
		score += weightPaymentMethod
	}
	if score > 100 {
		score = 100
	}
	return score
}
