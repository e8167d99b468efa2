package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/expenseflow/ocr-service/constants"
	"github.com/expenseflow/ocr-service/internal/common"
)

// BuildExtractionSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map describing the extraction payload persisted per scan job.
// Closed vocabularies come straight from the canonical constants, so the
// schema and the extractor can never drift apart.
func BuildExtractionSchema() map[string]any {
	props := map[string]any{
		"texto_raw":           map[string]any{"type": "string", "minLength": 1},
		"confianza_ocr":       map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		"tipo_documento":      map[string]any{"type": "string", "enum": constants.DocumentTypesAsStringSlice()},
		"numero_documento":    map[string]any{"type": "string", "pattern": `^[A-Z]{1,2}\d{3}-\d{1,8}$`},
		"fecha_emision":       dateProp(),
		"fecha_vencimiento":   dateProp(),
		"moneda":              map[string]any{"type": "string", "enum": constants.CurrenciesAsStringSlice()},
		"emisor_ruc":          map[string]any{"type": "string", "pattern": `^(10|15|16|17|20)\d{9}$`},
		"emisor_razon_social": map[string]any{"type": "string"},
		"emisor_direccion":    map[string]any{"type": "string"},
		"emisor_telefono":     map[string]any{"type": "string"},
		"emisor_email":        map[string]any{"type": "string"},
		"receptor_documento":  map[string]any{"type": "string"},
		"receptor_nombre":     map[string]any{"type": "string"},
		"receptor_direccion":  map[string]any{"type": "string"},
		"subtotal":            amountProp(),
		"igv":                 amountProp(),
		"total":               amountProp(),
		"tipo_cambio":         map[string]any{"type": "number", "exclusiveMinimum": 0.0},
		"descuento":           amountProp(),
		"items": map[string]any{
			"type":  "array",
			"items": lineItemProp(),
		},
		"codigo_qr":   map[string]any{"type": "string"},
		"metodo_pago": map[string]any{"type": "string", "enum": constants.PaymentMethodsAsStringSlice()},
	}
	required := []string{"texto_raw", "confianza_ocr"}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func dateProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
}

func amountProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0.0}
}

func lineItemProp() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"descripcion":     map[string]any{"type": "string", "minLength": 1},
			"cantidad":        map[string]any{"type": "number", "minimum": 0.0},
			"precio_unitario": amountProp(),
			"subtotal":        amountProp(),
		},
		"required": []string{"descripcion", "cantidad", "precio_unitario", "subtotal"},
	}
}

// ValidateExtraction validates a serialized extraction payload against the
// canonical schema before it is persisted.
func ValidateExtraction(data []byte) error {
	b, err := json.Marshal(BuildExtractionSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extraction.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile("extraction.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return common.NewAppError("SCHEMA_ERROR", fmt.Sprintf("extraction payload is not valid json: %v", err), common.ErrValidation)
	}
	if err := s.Validate(v); err != nil {
		return common.NewAppError("SCHEMA_ERROR", fmt.Sprintf("extraction payload does not match schema: %v", err), common.ErrValidation)
	}
	return nil
}
