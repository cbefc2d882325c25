// Package dian: cálculo de los identificadores únicos de documento electrónico
// (CUFE, CUDE, CUDS) según Anexo Técnico DIAN 1.9.
// Algoritmo: SHA-384 sobre la concatenación estricta definida por la DIAN.
package dian

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/dian-fe/pkg/dian"
)

// Códigos de impuesto DIAN para la cadena del identificador, en el orden exigido.
const (
	codImpIVA = dian.TaxCodeIVA
	codImpINC = dian.TaxCodeINC
	codImpICA = dian.TaxCodeICA
)

var (
	reFecha = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reHora  = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[+-]\d{2}:\d{2}$`)
	reBlank = regexp.MustCompile(`\s+`)
)

// IdentifierParams contiene los datos del documento que entran a la cadena,
// en el orden exigido por la DIAN. Los montos se formatean con dos decimales
// truncados (nunca redondeados: 99.999 -> 99.99).
type IdentifierParams struct {
	Number      string          // Número completo del documento (prefijo + consecutivo, sin espacios)
	IssueDate   string          // Fecha de emisión YYYY-MM-DD
	IssueTime   string          // Hora de emisión HH:MM:SS±HH:MM (Colombia: -05:00)
	Subtotal    decimal.Decimal // Valor total sin impuestos
	TaxIVA      decimal.Decimal // Total IVA (código 01)
	TaxINC      decimal.Decimal // Total Impoconsumo (código 04)
	TaxICA      decimal.Decimal // Total ICA (código 03)
	Total       decimal.Decimal // Valor total a pagar
	SupplierNIT string          // NIT del emisor, solo dígitos, sin DV
	CustomerID  string          // Identificación del adquiriente, solo dígitos
	Environment string          // "1" = Producción, "2" = Habilitación
}

// IdentifierService calcula CUFE/CUDE/CUDS y el código de seguridad del software.
type IdentifierService struct{}

// NewIdentifierService crea el servicio.
func NewIdentifierService() *IdentifierService {
	return &IdentifierService{}
}

// CUFE calcula el identificador de facturas de venta, exportación y
// contingencia DIAN usando la clave técnica de la resolución.
func (s *IdentifierService) CUFE(p *IdentifierParams, claveTecnica string) (string, error) {
	return s.compute(p, claveTecnica, "clave técnica")
}

// CUDE calcula el identificador de notas crédito/débito y facturas de
// contingencia del facturador usando el PIN del software.
func (s *IdentifierService) CUDE(p *IdentifierParams, softwarePIN string) (string, error) {
	return s.compute(p, softwarePIN, "PIN del software")
}

// CUDS calcula el identificador del documento soporte y su nota de ajuste,
// también con el PIN del software.
func (s *IdentifierService) CUDS(p *IdentifierParams, softwarePIN string) (string, error) {
	return s.compute(p, softwarePIN, "PIN del software")
}

// ForDocType calcula el identificador que corresponde al tipo de documento y
// devuelve además el nombre de esquema para el atributo schemeName del cbc:UUID.
func (s *IdentifierService) ForDocType(p *IdentifierParams, docType, claveTecnica, softwarePIN string) (uuid, scheme string, err error) {
	scheme, ok := dian.UUIDSchemeForDocType(docType)
	if !ok {
		return "", "", fmt.Errorf("%w: tipo de documento %q no catalogado", ErrIdentifier, docType)
	}
	switch scheme {
	case dian.SchemeCUFE:
		uuid, err = s.CUFE(p, claveTecnica)
	case dian.SchemeCUDE:
		uuid, err = s.CUDE(p, softwarePIN)
	case dian.SchemeCUDS:
		uuid, err = s.CUDS(p, softwarePIN)
	}
	if err != nil {
		return "", "", err
	}
	return uuid, scheme, nil
}

// Verify recalcula el identificador y lo compara en tiempo constante con el
// declarado. Retorna ErrIdentifier si no coinciden.
func (s *IdentifierService) Verify(p *IdentifierParams, secret, declared string) error {
	got, err := s.compute(p, secret, "secreto")
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(declared))) != 1 {
		return fmt.Errorf("%w: el identificador declarado no coincide con el recalculado", ErrIdentifier)
	}
	return nil
}

// compute arma la cadena en el orden estricto DIAN y aplica SHA-384.
// Fórmula (sin separadores):
//
//	NumDoc + FecDoc + HorDoc + ValSinImp + "01" + ValIVA + "04" + ValINC +
//	"03" + ValICA + ValTotal + NitEmisor + DocAdquiriente + Secreto + Ambiente
func (s *IdentifierService) compute(p *IdentifierParams, secret, secretName string) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: parámetros obligatorios", ErrIdentifier)
	}
	number := reBlank.ReplaceAllString(strings.TrimSpace(p.Number), "")
	if number == "" {
		return "", fmt.Errorf("%w: número de documento obligatorio", ErrIdentifier)
	}
	if !reFecha.MatchString(p.IssueDate) {
		return "", fmt.Errorf("%w: fecha de emisión debe ser YYYY-MM-DD, recibido %q", ErrIdentifier, p.IssueDate)
	}
	if !reHora.MatchString(p.IssueTime) {
		return "", fmt.Errorf("%w: hora de emisión debe ser HH:MM:SS±HH:MM, recibido %q", ErrIdentifier, p.IssueTime)
	}
	supplier := onlyDigits(p.SupplierNIT)
	customer := onlyDigits(p.CustomerID)
	if supplier == "" {
		return "", fmt.Errorf("%w: NIT del emisor obligatorio", ErrIdentifier)
	}
	if customer == "" {
		return "", fmt.Errorf("%w: identificación del adquiriente obligatoria", ErrIdentifier)
	}
	if secret == "" {
		return "", fmt.Errorf("%w: %s obligatorio", ErrIdentifier, secretName)
	}
	env := p.Environment
	if env != dian.EnvironmentProduccion && env != dian.EnvironmentHabilitacion {
		return "", fmt.Errorf("%w: ambiente debe ser \"1\" o \"2\", recibido %q", ErrIdentifier, env)
	}

	cadena := number +
		p.IssueDate +
		p.IssueTime +
		FormatAmount(p.Subtotal) +
		codImpIVA + FormatAmount(p.TaxIVA) +
		codImpINC + FormatAmount(p.TaxINC) +
		codImpICA + FormatAmount(p.TaxICA) +
		FormatAmount(p.Total) +
		supplier +
		customer +
		secret +
		env

	hash := sha512.Sum384([]byte(cadena))
	return hex.EncodeToString(hash[:]), nil
}

// SoftwareSecurityCode calcula el cbc:SoftwareSecurityCode del documento:
// SHA-384 de IdSoftware + PIN + NumDoc, en hexadecimal minúscula.
func SoftwareSecurityCode(softwareID, softwarePIN, number string) (string, error) {
	if softwareID == "" || softwarePIN == "" {
		return "", fmt.Errorf("%w: IdSoftware y PIN son obligatorios para el código de seguridad", ErrIdentifier)
	}
	number = reBlank.ReplaceAllString(strings.TrimSpace(number), "")
	if number == "" {
		return "", fmt.Errorf("%w: número de documento obligatorio", ErrIdentifier)
	}
	hash := sha512.Sum384([]byte(softwareID + softwarePIN + number))
	return hex.EncodeToString(hash[:]), nil
}

// FormatAmount formatea montos para la cadena del identificador: sin separador
// de miles, punto decimal y exactamente dos decimales TRUNCADOS. La DIAN
// recalcula con truncamiento; redondear produce un identificador distinto.
func FormatAmount(d decimal.Decimal) string {
	return d.Truncate(2).StringFixed(2)
}

// onlyDigits deja solo dígitos 0-9 (para NIT y documento).
func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
