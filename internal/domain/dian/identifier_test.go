package dian_test

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/dian-fe/internal/domain/dian"
	pkgdian "github.com/tu-usuario/dian-fe/pkg/dian"
)

// ──────────────────────────────────────────────────────────────────────────────
// Vectores exactos de CUFE/CUDE calculados manualmente con SHA-384.
//
// Estos tests son el "canario en la mina" de la integración DIAN: si alguien
// modifica inadvertidamente la cadena de concatenación, el algoritmo o el
// formato de los montos, fallan de inmediato.
//
//	Cadena = NumDoc + FecDoc + HorDoc + ValSinImp + "01" + ValIVA + "04" +
//	         ValINC + "03" + ValICA + ValTotal + NitEmisor + DocAdq +
//	         Secreto + Ambiente
// ──────────────────────────────────────────────────────────────────────────────

const (
	testCufeExpected = "30e287d812fa560674aad0c6f888953be26b66ffd732493a734aaf7dde2ed7b50926365bd759c0ae310633b434121bfc"
	testCudeExpected = "596c91178b8adb5f579f51894662b60a990994044c85d993debeb0dceb790c1eb6507f28c5be244e61896bd39270fe44"

	testNumber   = "SETP990000001"
	testDate     = "2026-01-18"
	testTime     = "10:30:00-05:00"
	testSupplier = "900373115"
	testCustomer = "8355990"
	testClaveTec = "693ff6f2a553c3646a063436fd4dd9ded0311471"
	testPIN      = "10201"
)

func testParams() *dian.IdentifierParams {
	return &dian.IdentifierParams{
		Number:      testNumber,
		IssueDate:   testDate,
		IssueTime:   testTime,
		Subtotal:    decimal.NewFromInt(100_000),
		TaxIVA:      decimal.NewFromInt(19_000),
		TaxINC:      decimal.Zero,
		TaxICA:      decimal.Zero,
		Total:       decimal.NewFromInt(119_000),
		SupplierNIT: testSupplier,
		CustomerID:  testCustomer,
		Environment: "2",
	}
}

func TestCUFE_VectorExacto(t *testing.T) {
	svc := dian.NewIdentifierService()

	cufe, err := svc.CUFE(testParams(), testClaveTec)
	require.NoError(t, err, "CUFE no debe retornar error con parámetros válidos")
	assert.Equal(t, testCufeExpected, cufe)

	// 96 caracteres hex minúscula, siempre.
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{96}$`), cufe)
}

func TestCUDE_VectorExacto(t *testing.T) {
	svc := dian.NewIdentifierService()

	// Misma cadena que el CUFE pero con el PIN del software como secreto.
	cude, err := svc.CUDE(testParams(), testPIN)
	require.NoError(t, err)
	assert.Equal(t, testCudeExpected, cude)
	assert.NotEqual(t, testCufeExpected, cude, "clave técnica y PIN deben producir identificadores distintos")
}

func TestCUDS_UsaPINDelSoftware(t *testing.T) {
	svc := dian.NewIdentifierService()

	cuds, err := svc.CUDS(testParams(), testPIN)
	require.NoError(t, err)
	// CUDS comparte fórmula y secreto con el CUDE; difieren sólo en el esquema declarado.
	assert.Equal(t, testCudeExpected, cuds)
}

func TestIdentifier_Determinista(t *testing.T) {
	svc := dian.NewIdentifierService()

	a, err := svc.CUFE(testParams(), testClaveTec)
	require.NoError(t, err)
	b, err := svc.CUFE(testParams(), testClaveTec)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestIdentifier_SensibleACadaCampo(t *testing.T) {
	svc := dian.NewIdentifierService()
	base, err := svc.CUFE(testParams(), testClaveTec)
	require.NoError(t, err)

	mutations := map[string]func(p *dian.IdentifierParams){
		"número":    func(p *dian.IdentifierParams) { p.Number = "SETP990000002" },
		"fecha":     func(p *dian.IdentifierParams) { p.IssueDate = "2026-01-19" },
		"hora":      func(p *dian.IdentifierParams) { p.IssueTime = "10:30:01-05:00" },
		"subtotal":  func(p *dian.IdentifierParams) { p.Subtotal = p.Subtotal.Add(decimal.NewFromInt(1)) },
		"IVA":       func(p *dian.IdentifierParams) { p.TaxIVA = p.TaxIVA.Add(decimal.NewFromInt(1)) },
		"total":     func(p *dian.IdentifierParams) { p.Total = p.Total.Add(decimal.NewFromInt(1)) },
		"emisor":    func(p *dian.IdentifierParams) { p.SupplierNIT = "900373116" },
		"adquirente": func(p *dian.IdentifierParams) { p.CustomerID = "8355991" },
		"ambiente":  func(p *dian.IdentifierParams) { p.Environment = "1" },
	}
	for name, mutate := range mutations {
		p := testParams()
		mutate(p)
		got, err := svc.CUFE(p, testClaveTec)
		require.NoError(t, err, "mutación %s", name)
		assert.NotEqual(t, base, got, "cambiar %s debe cambiar el identificador", name)
	}
}

func TestFormatAmount_TruncaNuncaRedondea(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"99.995", "99.99"},
		{"1.005", "1.00"},
		{"0.999", "0.99"},
		{"1500", "1500.00"},
		{"0", "0.00"},
		{"119000.004", "119000.00"},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, dian.FormatAmount(d), "monto %s", tc.in)
	}
}

func TestIdentifier_ParametrosInvalidos(t *testing.T) {
	svc := dian.NewIdentifierService()

	cases := map[string]func(p *dian.IdentifierParams){
		"sin número":        func(p *dian.IdentifierParams) { p.Number = "   " },
		"fecha mal formada": func(p *dian.IdentifierParams) { p.IssueDate = "18/01/2026" },
		"hora sin offset":   func(p *dian.IdentifierParams) { p.IssueTime = "10:30:00" },
		"emisor sin dígitos": func(p *dian.IdentifierParams) { p.SupplierNIT = "N/A" },
		"sin adquiriente":   func(p *dian.IdentifierParams) { p.CustomerID = "" },
		"ambiente inválido": func(p *dian.IdentifierParams) { p.Environment = "3" },
	}
	for name, mutate := range cases {
		p := testParams()
		mutate(p)
		_, err := svc.CUFE(p, testClaveTec)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, dian.ErrIdentifier, name)
	}

	_, err := svc.CUFE(testParams(), "")
	assert.ErrorIs(t, err, dian.ErrIdentifier, "secreto vacío")
}

func TestIdentifier_NumeroConEspacios(t *testing.T) {
	svc := dian.NewIdentifierService()

	p := testParams()
	p.Number = " SETP 990000001 "
	got, err := svc.CUFE(p, testClaveTec)
	require.NoError(t, err)
	assert.Equal(t, testCufeExpected, got, "los espacios del número no deben alterar la cadena")
}

func TestForDocType_TablaDeEsquemas(t *testing.T) {
	svc := dian.NewIdentifierService()

	uuid, scheme, err := svc.ForDocType(testParams(), pkgdian.DocTypeFacturaVenta, testClaveTec, testPIN)
	require.NoError(t, err)
	assert.Equal(t, pkgdian.SchemeCUFE, scheme)
	assert.Equal(t, testCufeExpected, uuid)

	uuid, scheme, err = svc.ForDocType(testParams(), pkgdian.DocTypeNotaCredito, testClaveTec, testPIN)
	require.NoError(t, err)
	assert.Equal(t, pkgdian.SchemeCUDE, scheme)
	assert.Equal(t, testCudeExpected, uuid)

	uuid, scheme, err = svc.ForDocType(testParams(), pkgdian.DocTypeDocumentoSoporte, testClaveTec, testPIN)
	require.NoError(t, err)
	assert.Equal(t, pkgdian.SchemeCUDS, scheme)
	assert.Equal(t, testCudeExpected, uuid)

	_, _, err = svc.ForDocType(testParams(), "96", testClaveTec, testPIN)
	assert.ErrorIs(t, err, dian.ErrIdentifier)
}

func TestVerify(t *testing.T) {
	svc := dian.NewIdentifierService()

	require.NoError(t, svc.Verify(testParams(), testClaveTec, testCufeExpected))
	// Mayúsculas en el declarado se toleran.
	require.NoError(t, svc.Verify(testParams(), testClaveTec, "30E287D812FA560674AAD0C6F888953BE26B66FFD732493A734AAF7DDE2ED7B50926365BD759C0AE310633B434121BFC"))

	err := svc.Verify(testParams(), testPIN, testCufeExpected)
	assert.ErrorIs(t, err, dian.ErrIdentifier, "secreto equivocado debe fallar la verificación")
}

func TestSoftwareSecurityCode_VectorExacto(t *testing.T) {
	got, err := dian.SoftwareSecurityCode("a1b2c3d4-e5f6-7890-abcd-ef1234567890", "12345", testNumber)
	require.NoError(t, err)
	assert.Equal(t, "57d102eac7ced0f0c7f7f019afae96d2e2851d9d2711f073d9ad18d8a8a257fe4f5baf0efb062e25451dac9921a6749a", got)

	_, err = dian.SoftwareSecurityCode("", "12345", testNumber)
	assert.ErrorIs(t, err, dian.ErrIdentifier)
}

func TestValidateForSubmission(t *testing.T) {
	p := testParams()
	err := dian.ValidateForSubmission(p, pkgdian.DocTypeFacturaVenta, pkgdian.IdentificationTypeNIT, "900373115-3")
	require.NoError(t, err)

	// DV incorrecto del adquiriente.
	err = dian.ValidateForSubmission(p, pkgdian.DocTypeFacturaVenta, pkgdian.IdentificationTypeNIT, "900373115-7")
	assert.ErrorIs(t, err, dian.ErrValidation)

	// Totales descuadrados.
	bad := testParams()
	bad.Total = decimal.NewFromInt(120_000)
	err = dian.ValidateForSubmission(bad, pkgdian.DocTypeFacturaVenta, pkgdian.IdentificationTypeCC, "8355990")
	assert.ErrorIs(t, err, dian.ErrValidation)

	// Tipo de documento fuera del catálogo.
	err = dian.ValidateForSubmission(p, "96", pkgdian.IdentificationTypeCC, "8355990")
	assert.ErrorIs(t, err, dian.ErrValidation)
}
