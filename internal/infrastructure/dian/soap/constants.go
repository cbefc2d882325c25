// Constantes del contrato SOAP 1.2 + WS-Security de los servicios web DIAN
// (WcfDianCustomerServices).

package soap

import "time"

// ── Endpoints ─────────────────────────────────────────────────────────────────

const (
	// EndpointHabilitacion es el ambiente de pruebas/habilitación.
	EndpointHabilitacion = "https://vpfe-hab.dian.gov.co/WcfDianCustomerServices.svc"
	// EndpointProduccion es el ambiente de producción.
	EndpointProduccion = "https://vpfe.dian.gov.co/WcfDianCustomerServices.svc"

	actionBase  = "http://wcf.dian.colombia/IWcfDianCustomerServices/"
	contentType = "application/soap+xml;charset=UTF-8"
)

// ── Namespaces ────────────────────────────────────────────────────────────────

const (
	nsSOAP = "http://www.w3.org/2003/05/soap-envelope"
	nsWCF  = "http://wcf.dian.colombia"
	nsWSA  = "http://www.w3.org/2005/08/addressing"
	nsWSSE = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	nsWSU  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"
	nsEC   = "http://www.w3.org/2001/10/xml-exc-c14n#"

	algExcC14N = "http://www.w3.org/2001/10/xml-exc-c14n#"

	bstValueType    = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-x509-token-profile-1.0#X509v3"
	bstEncodingType = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary"
)

// Las respuestas llegan a veces bajo los contratos de datos WCF y a veces bajo
// el namespace del servicio; el parseo acepta cualquiera de los tres.
var responseNamespaces = map[string]bool{
	"http://schemas.datacontract.org/2004/07/UploadDocumentResponse": true,
	"http://schemas.datacontract.org/2004/07/DianResponse":           true,
	nsWCF: true,
}

// ── Timestamp WS-Security ─────────────────────────────────────────────────────

const (
	// timestampValidity es la vigencia declarada del wsu:Timestamp. La DIAN
	// tolera ventanas amplias; cinco horas absorbe cualquier desfase de reloj.
	timestampValidity = 5 * time.Hour
	timestampLayout   = "2006-01-02T15:04:05.000Z"
)

// Listas de prefijos (ec:InclusiveNamespaces) de cada parte firmada. El
// validador de la DIAN canonicaliza con exactamente estas listas; cambiarlas
// invalida los digests aunque el XML sea equivalente.
var (
	prefixListTimestamp  = []string{"wsu", "soap"}
	prefixListTo         = []string{"wsu", "soap", "wsa"}
	prefixListSignedInfo = []string{"soap", "wsa"}
)
