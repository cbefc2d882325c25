package dto

import "time"

// SubmitDocumentRequest entrada para radicar un documento electrónico.
// El XML UBL viene en base64 estándar; los montos como string decimal
// para no perder precisión en el JSON.
type SubmitDocumentRequest struct {
	DocType   string `json:"doc_type" validate:"required,oneof=01 02 03 04 05 91 92 95"`
	Prefix    string `json:"prefix" validate:"required,max=10"`
	Number    string `json:"number" validate:"omitempty,max=30"` // vacío = asignar del rango
	XMLBase64 string `json:"xml_base64" validate:"required"`

	IssueDate string `json:"issue_date" validate:"required"` // yyyy-MM-dd
	IssueTime string `json:"issue_time" validate:"required"` // HH:mm:ss±HH:mm

	Subtotal string `json:"subtotal" validate:"required"`
	TaxIVA   string `json:"tax_iva"`
	TaxINC   string `json:"tax_inc"`
	TaxICA   string `json:"tax_ica"`
	Total    string `json:"total" validate:"required"`

	CustomerIDType string `json:"customer_id_type" validate:"required"` // "31" NIT, "13" CC, ...
	CustomerID     string `json:"customer_id" validate:"required"`      // con DV si es NIT
}

// SubmissionResponse salida de un envío radicado o consultado.
type SubmissionResponse struct {
	ID                string    `json:"id"`
	DocType           string    `json:"doc_type"`
	Prefix            string    `json:"prefix"`
	Number            string    `json:"number"`
	UUID              string    `json:"uuid"`
	UUIDScheme        string    `json:"uuid_scheme"`
	IssueDate         string    `json:"issue_date"`
	ZipKey            string    `json:"zip_key,omitempty"`
	Status            string    `json:"status"`
	IsValid           *bool     `json:"is_valid,omitempty"`
	StatusCode        string    `json:"status_code,omitempty"`
	StatusDescription string    `json:"status_description,omitempty"`
	ErrorMessages     []string  `json:"error_messages,omitempty"`
	QRData            string    `json:"qr_data,omitempty"` // NumFac|FecFac|...|Cufe|UrlValidacionDIAN
	Total             string    `json:"total"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NumberingRangeRequest entrada para registrar una resolución de numeración.
type NumberingRangeRequest struct {
	ResolutionNumber string `json:"resolution_number" validate:"required"`
	Prefix           string `json:"prefix" validate:"required,max=10"`
	TechnicalKey     string `json:"technical_key"`
	RangeFrom        int64  `json:"range_from" validate:"required,min=1"`
	RangeTo          int64  `json:"range_to" validate:"required,gtfield=RangeFrom"`
	DateFrom         string `json:"date_from" validate:"required"` // yyyy-MM-dd
	DateTo           string `json:"date_to" validate:"required"`
}

// NumberingRangeResponse salida de una resolución de numeración.
type NumberingRangeResponse struct {
	ID               string `json:"id"`
	ResolutionNumber string `json:"resolution_number"`
	Prefix           string `json:"prefix"`
	RangeFrom        int64  `json:"range_from"`
	RangeTo          int64  `json:"range_to"`
	CurrentNumber    int64  `json:"current_number"`
	DateFrom         string `json:"date_from"`
	DateTo           string `json:"date_to"`
	IsActive         bool   `json:"is_active"`
}
