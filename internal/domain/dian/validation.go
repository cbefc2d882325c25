// Validaciones de dominio previas a la radicación, según Anexo Técnico 1.9.
// Utiliza catálogos y reglas de pkg/dian.
package dian

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/dian-fe/pkg/dian"
)

// ValidateForSubmission valida los datos del documento antes de calcular el
// identificador y firmar. customerIDType es el código de tipo de identificación
// del adquiriente; para NIT (tipo 31) se exige dígito de verificación válido en
// customerFullID (identificación con DV, tal como figura en el documento).
// Comprueba además la coherencia aritmética de los totales.
func ValidateForSubmission(p *IdentifierParams, docType, customerIDType, customerFullID string) error {
	if p == nil {
		return fmt.Errorf("%w: parámetros nulos", ErrValidation)
	}
	var errs []error

	if _, ok := dian.UUIDSchemeForDocType(docType); !ok {
		errs = append(errs, fmt.Errorf("tipo de documento %q no catalogado", docType))
	}

	// Adquiriente jurídico (NIT): el DV debe ser correcto (Anexo 1.9).
	if customerIDType == dian.IdentificationTypeNIT {
		if err := dian.ValidateNITVerificationDigit(customerFullID); err != nil {
			errs = append(errs, fmt.Errorf("adquiriente NIT: %w", err))
		}
	}

	for _, m := range []struct {
		name string
		val  decimal.Decimal
	}{
		{"subtotal", p.Subtotal},
		{"IVA", p.TaxIVA},
		{"INC", p.TaxINC},
		{"ICA", p.TaxICA},
		{"total", p.Total},
	} {
		if m.val.IsNegative() {
			errs = append(errs, fmt.Errorf("%s negativo (%s)", m.name, m.val.String()))
		}
	}

	// Total coherente: subtotal + impuestos, comparado sobre montos truncados
	// porque así entran a la cadena del identificador.
	expected := p.Subtotal.Add(p.TaxIVA).Add(p.TaxINC).Add(p.TaxICA)
	if FormatAmount(expected) != FormatAmount(p.Total) {
		errs = append(errs, fmt.Errorf("total (%s) no coincide con subtotal + impuestos (%s)",
			FormatAmount(p.Total), FormatAmount(expected)))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrValidation}, errs...)...)
	}
	return nil
}
