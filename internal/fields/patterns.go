package fields

import (
	"regexp"

	"github.com/expenseflow/ocr-service/constants"
)

// amt matches monetary values as printed on Peruvian receipts:
// thousands separated by commas, up to two decimals.
const amt = `(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`

// cur is the optional currency marker between a label and its amount.
const cur = `(?:S/\.?|US\$|\$|€|PEN|USD|EUR)?`

var (
	// Tax identifiers. Peruvian RUC is 11 digits and starts with a known
	// taxpayer-class prefix; DNI is 8 digits.
	reRUCLabeled = regexp.MustCompile(`(?i)\bR\.?U\.?C\.?\s*(?:N[°º.]?\s*)?[:\-]?\s*((?:10|15|16|17|20)\d{9})\b`)
	reRUCBare    = regexp.MustCompile(`\b(?:10|15|16|17|20)\d{9}\b`)
	reDNI        = regexp.MustCompile(`(?i)\bDNI\s*[:\-]?\s*(\d{8})\b`)

	// Series-correlative document numbers (F001-0000123, B001-45, E001-1).
	reDocNumber = regexp.MustCompile(`\b([A-Z]{1,2}\d{3}-\d{1,8})\b`)

	// Labeled monetary amounts.
	reTotal    = regexp.MustCompile(`(?i)\b(?:importe\s+total|total\s+a\s+pagar|monto\s+total|total\s+general|total)\b\s*:?\s*` + cur + `\s*` + amt)
	reSubtotal = regexp.MustCompile(`(?i)\b(?:sub\s*-?\s*total|valor\s+venta|op\.?\s*gravadas?)\b\s*:?\s*` + cur + `\s*` + amt)
	reTax      = regexp.MustCompile(`(?i)\bI\.?G\.?V\.?\b(?:\s*\(?\s*18\s*%\s*\)?)?\s*:?\s*` + cur + `\s*` + amt)
	reDiscount = regexp.MustCompile(`(?i)\bdescuentos?\b\s*:?\s*` + cur + `\s*` + amt)
	reExchange = regexp.MustCompile(`(?i)\b(?:tipo\s+de\s+cambio|t/c|t\.c\.)\s*:?\s*(\d+(?:\.\d{1,4})?)`)

	// Dates in regional formats.
	reDateAny     = regexp.MustCompile(`\b(?:\d{1,2}[/\-.]\d{1,2}[/\-.]\d{4}|\d{4}-\d{2}-\d{2})\b`)
	reIssueDate   = regexp.MustCompile(`(?i)\bfecha(?:\s+de)?(?:\s+emisi[oó]n)?\s*:?\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{4}|\d{4}-\d{2}-\d{2})`)
	reDueDate     = regexp.MustCompile(`(?i)\b(?:fecha\s+(?:de\s+)?vencimiento|vence(?:\s+el)?|vcto\.?)\s*:?\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{4}|\d{4}-\d{2}-\d{2})`)

	// Issuer legal names end with a corporate suffix.
	reCompanyLine = regexp.MustCompile(`(?i)^\s*([A-ZÁÉÍÓÚÑ0-9][^\r\n]{1,70}?\s(?:S\.?\s?A\.?\s?C|S\.?\s?A\.?\s?A|S\.?\s?R\.?\s?L|E\.?\s?I\.?\s?R\.?\s?L|S\.?\s?A)\.?)\s*$`)

	// Recipient identity labels.
	reRecipientName = regexp.MustCompile(`(?i)\b(?:cliente|se[ñn]or(?:es)?|adquiriente)\s*:\s*([^\r\n:]{3,70})`)
	reRecipientAddr = regexp.MustCompile(`(?i)\bdirecci[oó]n\s+(?:del?\s+)?cliente\s*:?\s*([^\r\n]{5,100})`)

	// Issuer contact details.
	reAddress = regexp.MustCompile(`(?i)\b(?:direcci[oó]n|domicilio)\s*:?\s*([^\r\n]{5,100})`)
	rePhone   = regexp.MustCompile(`(?i)\b(?:tel[eé]fono|telf?|cel(?:ular)?|fono)\b\s*\.?\s*:?\s*(\+?\d[\d\s().\-]{5,14}\d)`)
	reEmail   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// SUNAT QR payloads: an 11-digit RUC followed by at least five
	// pipe-delimited segments.
	reQR = regexp.MustCompile(`\d{11}(?:\|[^|\s]*){5,}`)

	// Line items: quantity, description, unit price, row subtotal,
	// separated by column whitespace.
	reItem = regexp.MustCompile(`^\s*(\d{1,4}(?:\.\d{1,3})?)\s+(\S(?:.{0,58}?\S)?)\s{2,}(\d{1,3}(?:,\d{3})*\.\d{2})\s+(\d{1,3}(?:,\d{3})*\.\d{2})\s*$`)
)

// docTypeRules is scanned in order; the first keyword hit wins, so
// multi-word and more specific document kinds come first.
var docTypeRules = []struct {
	re *regexp.Regexp
	dt constants.DocumentType
}{
	{regexp.MustCompile(`(?i)\borden\s+de\s+compra\b`), constants.DocOrdenCompra},
	{regexp.MustCompile(`(?i)\bfactura\b`), constants.DocFactura},
	{regexp.MustCompile(`(?i)\bboleta(?:\s+de\s+venta)?\b`), constants.DocBoleta},
	{regexp.MustCompile(`(?i)\bcontrato\b`), constants.DocContrato},
	{regexp.MustCompile(`(?i)\bvoucher\b`), constants.DocVoucher},
	{regexp.MustCompile(`(?i)\bti(?:c|q)ke?t\b`), constants.DocTicket},
}

// currencyRules are compared by position of the first occurrence in the
// text; the earliest marker wins, with rule order breaking ties.
var currencyRules = []struct {
	re  *regexp.Regexp
	cur constants.Currency
}{
	{regexp.MustCompile(`(?i)S/\.?|\bsoles\b|\bPEN\b`), constants.CurrencyPEN},
	{regexp.MustCompile(`(?i)US\$|\bUSD\b|\bd[oó]lares\b|\$`), constants.CurrencyUSD},
	{regexp.MustCompile(`(?i)€|\bEUR\b|\beuros?\b`), constants.CurrencyEUR},
}

// paymentRules are scanned in order; the first keyword hit wins.
var paymentRules = []struct {
	re *regexp.Regexp
	pm constants.PaymentMethod
}{
	{regexp.MustCompile(`(?i)\btransferencia\b|\bdep[oó]sito\b|\byape\b|\bplin\b`), constants.PayTransferencia},
	{regexp.MustCompile(`(?i)\btarjeta\b|\bvisa\b|\bmastercard\b|\bamex\b`), constants.PayTarjeta},
	{regexp.MustCompile(`(?i)\befectivo\b|\bcontado\b`), constants.PayEfectivo},
	{regexp.MustCompile(`(?i)\bcheque\b`), constants.PayCheque},
	{regexp.MustCompile(`(?i)\bcr[eé]dito\b`), constants.PayCredito},
}
