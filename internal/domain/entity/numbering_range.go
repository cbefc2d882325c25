package entity

import "time"

// NumberingRange representa la resolución de numeración autorizada por la DIAN.
// Cada prefijo tiene un rango autorizado y una vigencia; el consecutivo se asigna
// de forma atómica en la base de datos para que dos envíos concurrentes nunca
// reciban el mismo número.
type NumberingRange struct {
	ID               string
	ResolutionNumber string    // Número de resolución (ej: "18764000000001")
	Prefix           string    // Prefijo autorizado (ej: "SETP", "FE")
	TechnicalKey     string    // Clave técnica de la resolución (insumo del CUFE)
	RangeFrom        int64     // Número inicial del rango autorizado
	RangeTo          int64     // Número final del rango autorizado
	CurrentNumber    int64     // Último número asignado dentro del rango
	DateFrom         time.Time // Fecha de inicio de vigencia
	DateTo           time.Time // Fecha de vencimiento
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Exhausted indica si el rango autorizado ya se consumió por completo.
func (r *NumberingRange) Exhausted() bool {
	return r.CurrentNumber >= r.RangeTo
}
