// Inserción del identificador único y del código de seguridad del software en
// el XML UBL antes de firmar.

package dian

import (
	"fmt"

	"github.com/beevik/etree"

	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
)

// EmbedIdentifier fija el cbc:UUID del documento: el identificador calculado
// como texto, el ambiente en schemeID y el esquema (CUFE-SHA384, CUDE-SHA384,
// CUDS-SHA384) en schemeName. El elemento debe existir en el documento; un UBL
// sin cbc:UUID está mal construido.
func EmbedIdentifier(doc *etree.Document, identifier, environment, schemeName string) error {
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("%w: documento sin raíz", domaindian.ErrXMLBuild)
	}
	uuid := root.FindElement("./UUID")
	if uuid == nil {
		return fmt.Errorf("%w: el documento no tiene cbc:UUID donde fijar el identificador", domaindian.ErrXMLBuild)
	}
	uuid.SetText(identifier)
	uuid.CreateAttr("schemeID", environment)
	uuid.CreateAttr("schemeName", schemeName)
	return nil
}

// EmbedNumber fija el consecutivo completo (prefijo + número) en el cbc:ID
// del documento. Se usa cuando el consecutivo lo asigna el rango de numeración
// y no viene resuelto en el XML de entrada.
func EmbedNumber(doc *etree.Document, number string) error {
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("%w: documento sin raíz", domaindian.ErrXMLBuild)
	}
	id := root.FindElement("./ID")
	if id == nil {
		return fmt.Errorf("%w: el documento no tiene cbc:ID donde fijar el consecutivo", domaindian.ErrXMLBuild)
	}
	id.SetText(number)
	return nil
}

// EmbedSoftwareSecurityCode fija el sts:SoftwareSecurityCode dentro de las
// extensiones DIAN. Devuelve false si el documento no declara el elemento
// (los documentos construidos por terceros pueden traerlo ya resuelto).
func EmbedSoftwareSecurityCode(doc *etree.Document, code string) (bool, error) {
	root := doc.Root()
	if root == nil {
		return false, fmt.Errorf("%w: documento sin raíz", domaindian.ErrXMLBuild)
	}
	el := root.FindElement(".//SoftwareSecurityCode")
	if el == nil {
		return false, nil
	}
	el.SetText(code)
	return true, nil
}

// EmbedProfileExecutionID fija el ambiente de destino (cbc:ProfileExecutionID)
// si el elemento existe.
func EmbedProfileExecutionID(doc *etree.Document, environment string) bool {
	root := doc.Root()
	if root == nil {
		return false
	}
	el := root.FindElement("./ProfileExecutionID")
	if el == nil {
		return false
	}
	el.SetText(environment)
	return true
}
