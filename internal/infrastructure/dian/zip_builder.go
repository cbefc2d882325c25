// Package dian empaqueta los documentos firmados y prepara el XML UBL para
// la radicación ante los servicios web DIAN.
package dian

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
)

// CompressXMLToZip empaqueta el XML firmado en un archivo ZIP en memoria.
// La DIAN exige que el ZIP contenga un único archivo con el nombre:
//
//	{NIT_OFE}{PREFIX}{NUMBER}.xml  (sin guiones ni espacios)
//
// Devuelve los bytes del ZIP listo para enviar al WS DIAN.
func CompressXMLToZip(xmlBytes []byte, xmlFilename string) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("%w: XML vacío, nada que empaquetar", domaindian.ErrXMLBuild)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	fw, err := zw.Create(xmlFilename)
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", xmlFilename, err)
	}
	if _, err := fw.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("zip: escribir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

var nonDigit = regexp.MustCompile(`[^0-9]`)

// Filenames genera los nombres del XML interno y del ZIP requeridos por la
// DIAN: {NIT_OFE}{PREFIX}{NUMBER} (NIT sin DV, solo dígitos).
// Ejemplo: 900373115SETP990000001.xml / .zip
func Filenames(supplierNIT, prefix, number string) (xmlName, zipName string) {
	nit := supplierNIT
	// Quitar dígito de verificación si viene como "NIT-DV".
	if idx := strings.Index(nit, "-"); idx != -1 {
		nit = nit[:idx]
	}
	nit = nonDigit.ReplaceAllString(nit, "")
	base := nit + strings.TrimSpace(prefix) + strings.TrimSpace(number)
	return base + ".xml", base + ".zip"
}
