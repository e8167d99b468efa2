package entity

import (
	"github.com/expenseflow/ocr-service/constants"
)

// LineItem is one detail row recognized on a receipt or invoice.
type LineItem struct {
	Description string  `json:"descripcion"`
	Quantity    float64 `json:"cantidad"`
	UnitPrice   float64 `json:"precio_unitario"`
	Subtotal    float64 `json:"subtotal"`
}

// ExtractedFields is the structured, partially-populated record produced by
// the field extractor. Every field is optional: a zero value means
// "not detected", never "detected as empty". Instances are built once per
// recognition call and not mutated afterwards.
type ExtractedFields struct {
	// Document identity
	DocumentType   constants.DocumentType `json:"tipo_documento,omitempty"`
	DocumentNumber string                 `json:"numero_documento,omitempty"`
	IssueDate      string                 `json:"fecha_emision,omitempty"` // YYYY-MM-DD
	DueDate        string                 `json:"fecha_vencimiento,omitempty"`
	Currency       constants.Currency     `json:"moneda,omitempty"`

	// Issuer identity
	IssuerRUC     string `json:"emisor_ruc,omitempty"`
	IssuerName    string `json:"emisor_razon_social,omitempty"`
	IssuerAddress string `json:"emisor_direccion,omitempty"`
	IssuerPhone   string `json:"emisor_telefono,omitempty"`
	IssuerEmail   string `json:"emisor_email,omitempty"`

	// Recipient identity
	RecipientDocID   string `json:"receptor_documento,omitempty"`
	RecipientName    string `json:"receptor_nombre,omitempty"`
	RecipientAddress string `json:"receptor_direccion,omitempty"`

	// Monetary
	Subtotal     *float64 `json:"subtotal,omitempty"`
	Tax          *float64 `json:"igv,omitempty"`
	Total        *float64 `json:"total,omitempty"`
	ExchangeRate *float64 `json:"tipo_cambio,omitempty"`
	Discount     *float64 `json:"descuento,omitempty"`

	// Line items
	Items []LineItem `json:"items,omitempty"`

	// Fiscal validation
	QRPayload string `json:"codigo_qr,omitempty"`

	// Payment
	PaymentMethod constants.PaymentMethod `json:"metodo_pago,omitempty"`
}

// ExtractionResult is the terminal artifact of one recognition call:
// the extracted fields plus the full recognized text (kept for audit and
// manual correction) and the 0-100 confidence score.
type ExtractionResult struct {
	ExtractedFields

	RawText       string `json:"texto_raw"`
	OCRConfidence int    `json:"confianza_ocr"`
}
