package dian

import (
	"fmt"
	"unicode"
)

// pesos para el cálculo del dígito de verificación NIT (Orden Administrativa 4 de 1989, DIAN).
// Se aplican de derecha a izquierda sobre los dígitos del NIT; la tabla cubre
// identificaciones de hasta 15 dígitos.
var nitWeights = [15]int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 53, 59, 67, 71}

// ComputeNITVerificationDigit calcula el dígito de verificación del NIT dado
// (con o sin puntos/guiones, sin incluir el DV). Algoritmo módulo 11 de la DIAN.
func ComputeNITVerificationDigit(taxID string) (byte, error) {
	digits := extractDigits(taxID)
	if len(digits) == 0 {
		return 0, fmt.Errorf("dian: NIT sin dígitos: %q", taxID)
	}
	if len(digits) > len(nitWeights) {
		return 0, fmt.Errorf("dian: NIT de %d dígitos excede el máximo de %d", len(digits), len(nitWeights))
	}
	var sum int
	for i := 0; i < len(digits); i++ {
		d := int(digits[len(digits)-1-i] - '0')
		sum += d * nitWeights[i]
	}
	remainder := sum % 11
	if remainder == 0 || remainder == 1 {
		return byte('0' + remainder), nil
	}
	return byte('0' + (11 - remainder)), nil
}

// ValidateNITVerificationDigit valida que el NIT incluya un dígito de
// verificación correcto. taxID puede ser "123456789-1", "123.456.789-1"
// o "1234567891"; el último dígito se toma como DV.
func ValidateNITVerificationDigit(taxID string) error {
	digits := extractDigits(taxID)
	if len(digits) < 2 {
		return fmt.Errorf("dian: NIT con DV debe tener al menos 2 dígitos, se encontraron %d", len(digits))
	}
	base := digits[:len(digits)-1]
	expected, err := ComputeNITVerificationDigit(string(base))
	if err != nil {
		return err
	}
	if got := digits[len(digits)-1]; got != expected {
		return fmt.Errorf("dian: dígito de verificación del NIT inválido: esperado %c, recibido %c", expected, got)
	}
	return nil
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
