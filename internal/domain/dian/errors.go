package dian

import (
	"errors"
	"fmt"
	"strings"
)

// Errores centinela de la integración DIAN. Cada capa envuelve con %w para
// que el llamador pueda clasificar con errors.Is sin inspeccionar mensajes.
var (
	// ErrCertificate indica un problema cargando o interpretando el certificado .p12.
	ErrCertificate = errors.New("dian: error de certificado")
	// ErrSignature indica un fallo criptográfico (canonicalización, digest o firma RSA).
	ErrSignature = errors.New("dian: error de firma")
	// ErrXMLBuild indica que el documento no tiene la estructura UBL requerida
	// (p.ej. falta el segundo contenedor de extensiones para la firma).
	ErrXMLBuild = errors.New("dian: error construyendo XML")
	// ErrIdentifier indica parámetros inválidos para calcular CUFE/CUDE/CUDS.
	ErrIdentifier = errors.New("dian: error calculando identificador")
	// ErrNetwork indica un fallo de transporte hablando con los servicios DIAN.
	ErrNetwork = errors.New("dian: error de red")
	// ErrTimeout indica que una operación contra la DIAN excedió su plazo.
	ErrTimeout = errors.New("dian: tiempo de espera agotado")
	// ErrValidation indica datos del documento que no cumplen el Anexo Técnico.
	ErrValidation = errors.New("dian: validación fallida")
)

// DianError es el rechazo de negocio devuelto por la DIAN: el documento llegó,
// fue procesado y las reglas de validación lo declararon inválido. Conserva el
// código y los mensajes crudos para diagnóstico.
type DianError struct {
	StatusCode        string
	StatusDescription string
	Messages          []string
}

func (e *DianError) Error() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "dian: documento rechazado (estado %s", e.StatusCode)
	if e.StatusDescription != "" {
		fmt.Fprintf(&b, ": %s", e.StatusDescription)
	}
	b.WriteString(")")
	if len(e.Messages) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Messages, "; "))
	}
	return b.String()
}
