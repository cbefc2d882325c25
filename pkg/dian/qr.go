package dian

import (
	"strings"

	"github.com/shopspring/decimal"
)

// URL del portal de validación de documentos de la DIAN (mismo host en
// habilitación y producción).
const qrValidationURL = "https://catalogo-vpfe.dian.gov.co/document/searchqr?documentkey="

// QRPayload genera el string para el código QR de la representación gráfica:
// NumFac|FecFac|ValFac|CodImp|ValImp|Cufe|UrlValidacionDIAN.
func QRPayload(number, issueDate string, total, taxIVA decimal.Decimal, uuid string) string {
	return strings.Join([]string{
		strings.TrimSpace(number),
		issueDate,
		total.Round(2).StringFixed(2),
		TaxCodeIVA,
		taxIVA.Round(2).StringFixed(2),
		uuid,
		qrValidationURL + uuid,
	}, "|")
}
