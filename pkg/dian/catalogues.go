// Package dian contiene catálogos y validaciones alineados al Anexo Técnico
// de Factura Electrónica de Venta DIAN (Colombia) v1.9.
package dian

// =============================================================================
// Tabla 2 - Tipos de Documento Electrónico (Anexo 1.9 - 13.1.3 @invoiceTypeCode)
// =============================================================================

const (
	DocTypeFacturaVenta       = "01" // Factura electrónica de venta
	DocTypeFacturaExportacion = "02" // Factura de exportación
	DocTypeContingencia       = "03" // Factura por contingencia facturador
	DocTypeContingenciaDIAN   = "04" // Factura por contingencia DIAN
	DocTypeDocumentoSoporte   = "05" // Documento soporte en adquisiciones a no obligados
	DocTypeNotaCredito        = "91" // Nota crédito
	DocTypeNotaDebito         = "92" // Nota débito
	DocTypeNotaAjusteSoporte  = "95" // Nota de ajuste al documento soporte
)

// Esquemas del atributo schemeName del cbc:UUID según el tipo de documento.
const (
	SchemeCUFE = "CUFE-SHA384"
	SchemeCUDE = "CUDE-SHA384"
	SchemeCUDS = "CUDS-SHA384"
)

// UUIDSchemeForDocType devuelve el nombre de esquema del identificador único
// que corresponde al tipo de documento. El segundo retorno es false si el
// código de documento no está catalogado.
//
// CUFE usa la clave técnica de la resolución; CUDE y CUDS usan el PIN del software.
func UUIDSchemeForDocType(docType string) (string, bool) {
	switch docType {
	case DocTypeFacturaVenta, DocTypeFacturaExportacion, DocTypeContingenciaDIAN:
		return SchemeCUFE, true
	case DocTypeContingencia, DocTypeNotaCredito, DocTypeNotaDebito:
		return SchemeCUDE, true
	case DocTypeDocumentoSoporte, DocTypeNotaAjusteSoporte:
		return SchemeCUDS, true
	}
	return "", false
}

// =============================================================================
// Tabla 11 - Tipos de Impuesto (Anexo 1.9 - 13.2.2)
// Sólo los tres que participan en el cálculo del identificador único.
// =============================================================================

const (
	TaxCodeIVA = "01" // IVA
	TaxCodeICA = "03" // Impuesto de Industria y Comercio
	TaxCodeINC = "04" // Impuesto Nacional al Consumo
)

// =============================================================================
// Ambientes de destino (cbc:ProfileExecutionID y parámetro del identificador)
// =============================================================================

const (
	EnvironmentProduccion   = "1"
	EnvironmentHabilitacion = "2"
)

// =============================================================================
// Códigos de estado devueltos por los servicios web DIAN (b:StatusCode).
// =============================================================================

// StatusDescriptions descripciones de los códigos de estado más frecuentes.
var StatusDescriptions = map[string]string{
	"0":  "No se encontró el TrackId enviado",
	"00": "Procesado correctamente",
	"66": "NSU no encontrado",
	"90": "TrackId no encontrado",
	"99": "Validaciones contienen errores en campos mandatorios",
}

// StatusDescription devuelve la descripción catalogada de un código de estado,
// o el propio código si no está catalogado.
func StatusDescription(code string) string {
	if d, ok := StatusDescriptions[code]; ok {
		return d
	}
	return code
}

// =============================================================================
// Tabla 3 - Tipos de identificación (Anexo 1.9 - 13.2.1)
// =============================================================================

const (
	IdentificationTypeNIT = "31" // NIT - requiere dígito de verificación
	IdentificationTypeCC  = "13" // Cédula de ciudadanía
)
