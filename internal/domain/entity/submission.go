package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de un envío ante la DIAN.
// El documento queda "Sent" al entregarse el ZIP al servicio web; tras el polling
// de GetStatusZip pasa a "Accepted", "Rejected" o permanece "Pending" si la DIAN
// aún no emite veredicto (Pending NO es un error: se consulta de nuevo más tarde).
const (
	SubmissionStatusSent     = "SENT"
	SubmissionStatusPending  = "PENDING"
	SubmissionStatusAccepted = "ACCEPTED"
	SubmissionStatusRejected = "REJECTED"
)

// Submission representa un documento electrónico enviado a la DIAN:
// factura de venta, nota crédito/débito o documento soporte.
type Submission struct {
	ID         string
	DocType    string // Código de tipo de documento ("01", "91", "92", "05", ...)
	Prefix     string // Prefijo autorizado (ej: "SETP")
	Number     string // Consecutivo completo (ej: "SETP990000001")
	UUID       string // CUFE/CUDE/CUDS (SHA-384, 96 hex en minúsculas)
	UUIDScheme string // Nombre del esquema: "CUFE-SHA384", "CUDE-SHA384" o "CUDS-SHA384"
	IssueDate  time.Time

	ZipKey            string  // TrackID devuelto por SendBillAsync / SendTestSetAsync
	Status            string  // SENT | PENDING | ACCEPTED | REJECTED
	IsValid           *bool   // nil mientras la DIAN no emite veredicto
	StatusCode        string  // Código de estado DIAN ("00", "99", ...)
	StatusDescription string
	ErrorMessages     []string // Reglas de validación incumplidas reportadas por la DIAN

	Total     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Resolved indica si la DIAN ya emitió un veredicto definitivo sobre el envío.
func (s *Submission) Resolved() bool {
	return s.Status == SubmissionStatusAccepted || s.Status == SubmissionStatusRejected
}
