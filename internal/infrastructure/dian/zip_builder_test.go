package dian_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian"
)

func TestCompressXMLToZip(t *testing.T) {
	xmlBytes := []byte(`<Invoice><cbc:ID>SETP990000001</cbc:ID></Invoice>`)

	zipBytes, err := dian.CompressXMLToZip(xmlBytes, "900373115SETP990000001.xml")
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1, "el ZIP debe contener un único archivo")
	assert.Equal(t, "900373115SETP990000001.xml", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, xmlBytes, content)
}

func TestCompressXMLToZip_Vacio(t *testing.T) {
	_, err := dian.CompressXMLToZip(nil, "x.xml")
	assert.ErrorIs(t, err, domaindian.ErrXMLBuild)
}

func TestFilenames(t *testing.T) {
	xmlName, zipName := dian.Filenames("900.373.115-3", "SETP", "990000001")
	assert.Equal(t, "900373115SETP990000001.xml", xmlName)
	assert.Equal(t, "900373115SETP990000001.zip", zipName)

	// Sin separadores ya viene limpio.
	xmlName, _ = dian.Filenames("900373115", " SETP ", " 990000001 ")
	assert.Equal(t, "900373115SETP990000001.xml", xmlName)
}

const ublConUUID = `<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"` +
	` xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">` +
	`<cbc:ProfileExecutionID>1</cbc:ProfileExecutionID>` +
	`<cbc:ID>SETP990000001</cbc:ID>` +
	`<cbc:UUID/>` +
	`</Invoice>`

func TestEmbedIdentifier(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(ublConUUID))

	cufe := "30e287d812fa560674aad0c6f888953be26b66ffd732493a734aaf7dde2ed7b50926365bd759c0ae310633b434121bfc"
	require.NoError(t, dian.EmbedIdentifier(doc, cufe, "2", "CUFE-SHA384"))

	uuid := doc.Root().FindElement("./UUID")
	require.NotNil(t, uuid)
	assert.Equal(t, cufe, uuid.Text())
	assert.Equal(t, "2", uuid.SelectAttrValue("schemeID", ""))
	assert.Equal(t, "CUFE-SHA384", uuid.SelectAttrValue("schemeName", ""))
}

func TestEmbedIdentifier_SinUUID(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<Invoice><ID>X</ID></Invoice>`))

	err := dian.EmbedIdentifier(doc, "abc", "2", "CUFE-SHA384")
	assert.ErrorIs(t, err, domaindian.ErrXMLBuild)
}

func TestEmbedProfileExecutionID(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(ublConUUID))

	assert.True(t, dian.EmbedProfileExecutionID(doc, "2"))
	assert.Equal(t, "2", doc.Root().FindElement("./ProfileExecutionID").Text())
}

func TestEmbedSoftwareSecurityCode(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<Invoice><ext:UBLExtensions xmlns:ext="e">`+
		`<ext:UBLExtension><ext:ExtensionContent><sts:DianExtensions xmlns:sts="s">`+
		`<sts:SoftwareSecurityCode/></sts:DianExtensions></ext:ExtensionContent></ext:UBLExtension>`+
		`</ext:UBLExtensions></Invoice>`))

	ok, err := dian.EmbedSoftwareSecurityCode(doc, "57d102ea")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "57d102ea", doc.Root().FindElement(".//SoftwareSecurityCode").Text())

	// Documento sin el elemento: no es error, simplemente no se fija.
	doc2 := etree.NewDocument()
	require.NoError(t, doc2.ReadFromString(`<Invoice/>`))
	ok, err = dian.EmbedSoftwareSecurityCode(doc2, "x")
	require.NoError(t, err)
	assert.False(t, ok)
}
