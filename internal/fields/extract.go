package fields

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/expenseflow/ocr-service/constants"
	"github.com/expenseflow/ocr-service/internal/entity"
)

// maxItems caps how many detail rows one document may contribute.
const maxItems = 50

// Extract parses recognized text into structured fiscal fields.
//
// It is pure and deterministic: the same input always yields the same
// output. Each rule is best-effort; a rule that finds nothing leaves its
// field unset and never fails the call. When a rule has several candidate
// matches, the first match in document order wins. Keyword tables
// (document type, payment method) are ordered by specificity and scanned
// in that fixed order.
func Extract(rawText string) entity.ExtractedFields {
	text := normalize(rawText)
	lines := strings.Split(text, "\n")

	var f entity.ExtractedFields

	f.DocumentType = detectDocumentType(text)
	f.DocumentNumber = firstGroup(reDocNumber, text)
	f.Currency = detectCurrency(text)
	detectDates(&f, text)
	detectParties(&f, text, lines)

	f.Subtotal = findAmount(reSubtotal, text)
	f.Tax = findAmount(reTax, text)
	f.Total = findAmount(reTotal, text)
	f.ExchangeRate = findAmount(reExchange, text)
	f.Discount = findAmount(reDiscount, text)

	f.Items = detectItems(lines)
	f.QRPayload = reQR.FindString(text)
	f.PaymentMethod = detectPayment(text)

	return f
}

// normalize unifies line endings and strips characters that trip up the
// line-oriented rules. Recognition output often carries stray \r and
// non-breaking spaces.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, " ", " ")
	return s
}

func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func detectDocumentType(text string) constants.DocumentType {
	for _, rule := range docTypeRules {
		if rule.re.MatchString(text) {
			return rule.dt
		}
	}
	return ""
}

func detectCurrency(text string) constants.Currency {
	best := -1
	var found constants.Currency
	for _, rule := range currencyRules {
		loc := rule.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < best {
			best = loc[0]
			found = rule.cur
		}
	}
	return found
}

func detectPayment(text string) constants.PaymentMethod {
	for _, rule := range paymentRules {
		if rule.re.MatchString(text) {
			return rule.pm
		}
	}
	return ""
}

func detectDates(f *entity.ExtractedFields, text string) {
	if m := reDueDate.FindStringSubmatch(text); m != nil {
		f.DueDate = normalizeDate(m[1])
	}
	if m := reIssueDate.FindStringSubmatch(text); m != nil {
		f.IssueDate = normalizeDate(m[1])
		return
	}
	// No labeled issue date: fall back to the first date in the document
	// that is not the labeled due date.
	for _, raw := range reDateAny.FindAllString(text, 4) {
		d := normalizeDate(raw)
		if d != "" && d != f.DueDate {
			f.IssueDate = d
			return
		}
	}
}

var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2006-01-02",
}

// normalizeDate converts a regional date string to YYYY-MM-DD, or returns ""
// when no layout applies. Day-first layouts come first (regional convention).
func normalizeDate(s string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

func detectParties(f *entity.ExtractedFields, text string, lines []string) {
	// Issuer RUC: the labeled form wins, else the first bare 11-digit RUC.
	if m := reRUCLabeled.FindStringSubmatch(text); m != nil {
		f.IssuerRUC = m[1]
	} else if m := reRUCBare.FindString(text); m != "" {
		f.IssuerRUC = m
	}

	// Recipient document: a labeled DNI, else a second distinct RUC.
	if m := reDNI.FindStringSubmatch(text); m != nil {
		f.RecipientDocID = m[1]
	} else {
		for _, ruc := range reRUCBare.FindAllString(text, 4) {
			if ruc != f.IssuerRUC {
				f.RecipientDocID = ruc
				break
			}
		}
	}

	// Issuer legal name: the first line ending in a corporate suffix
	// (issuers head the document).
	for _, line := range lines {
		if m := reCompanyLine.FindStringSubmatch(line); m != nil {
			f.IssuerName = strings.TrimSpace(m[1])
			break
		}
	}

	if m := reRecipientName.FindStringSubmatch(text); m != nil {
		f.RecipientName = strings.TrimSpace(m[1])
	}
	if m := reRecipientAddr.FindStringSubmatch(text); m != nil {
		f.RecipientAddress = strings.TrimSpace(m[1])
	}
	if m := reAddress.FindStringSubmatch(text); m != nil {
		addr := strings.TrimSpace(m[1])
		if f.RecipientAddress == "" || addr != f.RecipientAddress {
			f.IssuerAddress = addr
		}
	}
	if m := rePhone.FindStringSubmatch(text); m != nil {
		f.IssuerPhone = strings.TrimSpace(m[1])
	}
	f.IssuerEmail = reEmail.FindString(text)
}

func detectItems(lines []string) []entity.LineItem {
	var items []entity.LineItem
	for _, line := range lines {
		m := reItem.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, err1 := parseAmount(m[1])
		unit, err2 := parseAmount(m[3])
		sub, err3 := parseAmount(m[4])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		items = append(items, entity.LineItem{
			Description: strings.TrimSpace(m[2]),
			Quantity:    qty,
			UnitPrice:   unit,
			Subtotal:    sub,
		})
		if len(items) == maxItems {
			break
		}
	}
	return items
}

func findAmount(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := parseAmount(m[1])
	if err != nil {
		return nil
	}
	return &v
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
