package constants

import "strings"

// DocumentType is the canonical fiscal document classification.
type DocumentType string

// Stable values (these exact strings go into extracted payloads and the DB).
const (
	DocFactura     DocumentType = "factura"
	DocBoleta      DocumentType = "boleta"
	DocVoucher     DocumentType = "voucher"
	DocTicket      DocumentType = "ticket"
	DocOrdenCompra DocumentType = "orden_compra"
	DocContrato    DocumentType = "contrato"
	DocOtro        DocumentType = "otro"
)

var allDocumentTypes = []DocumentType{
	DocFactura,
	DocBoleta,
	DocVoucher,
	DocTicket,
	DocOrdenCompra,
	DocContrato,
	DocOtro,
}

func DocumentTypesAsStringSlice() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// PaymentMethod is the canonical payment classification.
type PaymentMethod string

const (
	PayEfectivo      PaymentMethod = "efectivo"
	PayTarjeta       PaymentMethod = "tarjeta"
	PayTransferencia PaymentMethod = "transferencia"
	PayCheque        PaymentMethod = "cheque"
	PayCredito       PaymentMethod = "credito"
	PayOtro          PaymentMethod = "otro"
)

var allPaymentMethods = []PaymentMethod{
	PayEfectivo,
	PayTarjeta,
	PayTransferencia,
	PayCheque,
	PayCredito,
	PayOtro,
}

func PaymentMethodsAsStringSlice() []string {
	result := make([]string, len(allPaymentMethods))
	for i, pm := range allPaymentMethods {
		result[i] = string(pm)
	}
	return result
}

// CanonicalizePayment maps free-form payment labels found on receipts
// (card brands, bank transfer wording) onto the closed PaymentMethod set.
func CanonicalizePayment(input string) (PaymentMethod, bool) {
	if input == "" {
		return PayOtro, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]PaymentMethod{
		"visa":       PayTarjeta,
		"mastercard": PayTarjeta,
		"amex":       PayTarjeta,
		"debito":     PayTarjeta,
		"débito":     PayTarjeta,
		"contado":    PayEfectivo,
		"cash":       PayEfectivo,
		"deposito":   PayTransferencia,
		"depósito":   PayTransferencia,
		"transf":     PayTransferencia,
		"yape":       PayTransferencia,
		"plin":       PayTransferencia,
		"al credito": PayCredito,
		"al crédito": PayCredito,
	}

	if pm, ok := synonyms[normalized]; ok {
		return pm, true
	}

	for _, pm := range allPaymentMethods {
		if normalized == string(pm) {
			return pm, true
		}
	}

	return PayOtro, false
}

// Currency is an ISO 4217 code from the supported set.
type Currency string

const (
	CurrencyPEN Currency = "PEN"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

func CurrenciesAsStringSlice() []string {
	return []string{string(CurrencyPEN), string(CurrencyUSD), string(CurrencyEUR)}
}
