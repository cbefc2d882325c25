// Package xmldsig agrupa las primitivas XML-DSig compartidas por la firma
// XAdES del documento y la firma WS-Security del sobre SOAP: canonicalización
// (inclusiva y exclusiva), digests y firma RSA.
package xmldsig

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/ucarion/c14n"

	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
)

// CanonicalizeBytes aplica canonicalización inclusiva (REC-xml-c14n-20010315)
// sobre un documento completo serializado. Se usa para el digest del documento
// sin firma, donde el parseo crudo evita depender de cómo etree reserialice.
func CanonicalizeBytes(xmlData []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(xmlData))
	// Sin tabla de entidades: los documentos UBL no declaran entidades propias.
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalización del documento: %v", domaindian.ErrSignature, err)
	}
	return out, nil
}

// CanonicalizeInclusive canonicaliza un subárbol con C14N 1.0 inclusivo.
// El elemento se copia y hereda las declaraciones xmlns de sus ancestros
// antes de canonicalizar, como exige la especificación para subárboles
// extraídos de su documento.
func CanonicalizeInclusive(el *etree.Element) ([]byte, error) {
	detached := DetachWithNamespaces(el)
	out, err := dsig.MakeC14N10RecCanonicalizer().Canonicalize(detached)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalización inclusiva de %s: %v", domaindian.ErrSignature, el.Tag, err)
	}
	return out, nil
}

// CanonicalizeExclusive canonicaliza un subárbol con C14N 1.0 exclusivo
// (xml-exc-c14n#). prefixes es la InclusiveNamespaces PrefixList: prefijos
// que se tratan como en el modo inclusivo aunque no se usen visiblemente.
func CanonicalizeExclusive(el *etree.Element, prefixes []string) ([]byte, error) {
	detached := DetachWithNamespaces(el)
	canon := dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList(strings.Join(prefixes, " "))
	out, err := canon.Canonicalize(detached)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalización exclusiva de %s: %v", domaindian.ErrSignature, el.Tag, err)
	}
	return out, nil
}

// DetachWithNamespaces copia el elemento y le añade las declaraciones xmlns
// heredadas de sus ancestros que el propio elemento no redeclare. El documento
// original no se modifica.
func DetachWithNamespaces(el *etree.Element) *etree.Element {
	copied := el.Copy()

	declared := map[string]bool{}
	for _, attr := range copied.Attr {
		if attr.Space == "xmlns" || (attr.Space == "" && attr.Key == "xmlns") {
			declared[attr.FullKey()] = true
		}
	}
	for parent := el.Parent(); parent != nil; parent = parent.Parent() {
		for _, attr := range parent.Attr {
			if attr.Space != "xmlns" && !(attr.Space == "" && attr.Key == "xmlns") {
				continue
			}
			if declared[attr.FullKey()] {
				continue
			}
			copied.CreateAttr(attr.FullKey(), attr.Value)
			declared[attr.FullKey()] = true
		}
	}
	return copied
}
