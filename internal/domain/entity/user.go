package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin    = "admin"    // administra usuarios y rangos de numeración
	RoleEmisor   = "emisor"   // puede radicar documentos
	RoleConsulta = "consulta" // solo consulta estados
)

// User representa un cliente de la API del facturador.
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	NIT          string // NIT del emisor en cuyo nombre opera (sin DV)
	Role         string // admin, emisor, consulta
	Status       string // active, inactive, suspended
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
