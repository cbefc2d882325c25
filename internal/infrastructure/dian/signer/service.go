// Firma digital XAdES-EPES para documentos UBL DIAN (Anexo 1.9).
// Construye <ds:Signature> con tres referencias (documento, KeyInfo y
// SignedProperties) y lo inyecta en el segundo <ext:ExtensionContent>.

package signer

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/beevik/etree"

	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian/xmldsig"
)

// XadesSigner firma documentos UBL con el material del .p12 del emisor.
type XadesSigner struct {
	mat *KeyMaterial
}

// NewXadesSigner crea el firmador.
func NewXadesSigner(mat *KeyMaterial) *XadesSigner {
	return &XadesSigner{mat: mat}
}

// SignBytes firma un documento serializado y devuelve el XML firmado.
func (s *XadesSigner) SignBytes(xmlBytes []byte, signingTime time.Time) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("%w: XML vacío", domaindian.ErrXMLBuild)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("%w: parsear XML: %v", domaindian.ErrXMLBuild, err)
	}
	signed, err := s.Sign(doc, signingTime)
	if err != nil {
		return nil, err
	}
	return signed.WriteToBytes()
}

// Sign firma el documento y devuelve una copia con la firma inyectada; el
// documento de entrada no se modifica. signingTime la aporta el llamador
// (normalmente la hora de emisión en huso de Colombia) para que el resultado
// sea reproducible.
//
// Secuencia:
//  1. digest C14N inclusivo del documento sin firma (Reference URI="")
//  2. esqueleto de la firma con digests provisionales, inyectado en el
//     segundo ExtensionContent
//  3. digest del KeyInfo canonicalizado
//  4. digest de las SignedProperties canonicalizadas
//  5. firma RSA-SHA256 del SignedInfo canonicalizado
//  6. reordenamiento final de los hijos de Signature
func (s *XadesSigner) Sign(doc *etree.Document, signingTime time.Time) (*etree.Document, error) {
	if s.mat == nil || s.mat.PrivateKey == nil || s.mat.Leaf == nil {
		return nil, fmt.Errorf("%w: material de firma incompleto", domaindian.ErrCertificate)
	}
	work := doc.Copy()

	container, err := secondExtensionContent(work)
	if err != nil {
		return nil, err
	}

	// 1) Digest del documento completo, aún sin firma (transform enveloped).
	unsigned, err := work.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: serializar documento: %v", domaindian.ErrXMLBuild, err)
	}
	canonical, err := xmldsig.CanonicalizeBytes(unsigned)
	if err != nil {
		return nil, err
	}
	docDigest := xmldsig.DigestBase64(canonical)

	// Los Id de la firma derivan del digest del documento: mismo documento y
	// misma hora de firma producen exactamente la misma salida.
	sum := sha256.Sum256(canonical)
	ids := newSignatureIDs(hex.EncodeToString(sum[:])[:12])

	// 2) Esqueleto con digests provisionales, ya dentro del documento para que
	// la canonicalización de los subárboles herede los namespaces del UBL.
	sig, err := s.buildSkeleton(ids, docDigest, signingTime)
	if err != nil {
		return nil, err
	}
	container.AddChild(sig)

	// 3) Digest del KeyInfo.
	keyInfo := sig.SelectElement("ds:KeyInfo")
	keyInfoC14N, err := xmldsig.CanonicalizeInclusive(keyInfo)
	if err != nil {
		return nil, err
	}
	setReferenceDigest(sig, "#"+ids.keyInfo, xmldsig.DigestBase64(keyInfoC14N))

	// 4) Digest de las SignedProperties.
	signedProps := sig.FindElement(".//xades:SignedProperties")
	propsC14N, err := xmldsig.CanonicalizeInclusive(signedProps)
	if err != nil {
		return nil, err
	}
	setReferenceDigest(sig, "#"+ids.signedProps, xmldsig.DigestBase64(propsC14N))

	// 5) Firmar el SignedInfo ya definitivo.
	signedInfo := sig.SelectElement("ds:SignedInfo")
	signedInfoC14N, err := xmldsig.CanonicalizeInclusive(signedInfo)
	if err != nil {
		return nil, err
	}
	signatureValue, err := xmldsig.SignRSASHA256(s.mat.PrivateKey, signedInfoC14N)
	if err != nil {
		return nil, err
	}
	sig.SelectElement("ds:SignatureValue").SetText(signatureValue)

	// 6) Orden final del schema: SignedInfo, SignatureValue, KeyInfo, Object.
	reorderSignature(sig)

	return work, nil
}

// signatureIDs identificadores internos de la firma, derivados de un sufijo común.
type signatureIDs struct {
	signature   string
	sigValue    string
	keyInfo     string
	ref0        string
	signedProps string
}

func newSignatureIDs(suffix string) signatureIDs {
	base := "xmldsig-" + suffix
	return signatureIDs{
		signature:   base,
		sigValue:    base + "-sigvalue",
		keyInfo:     base + "-keyinfo",
		ref0:        base + "-ref0",
		signedProps: base + "-signedprops",
	}
}

// buildSkeleton arma el árbol completo de la firma. Los DigestValue de las
// referencias a KeyInfo y SignedProperties quedan vacíos y se parchan después.
func (s *XadesSigner) buildSkeleton(ids signatureIDs, docDigest string, signingTime time.Time) (*etree.Element, error) {
	sig := etree.NewElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NamespaceDS)
	sig.CreateAttr("Id", ids.signature)

	si := sig.CreateElement("ds:SignedInfo")
	c14n := si.CreateElement("ds:CanonicalizationMethod")
	c14n.CreateAttr("Algorithm", AlgC14N)
	sm := si.CreateElement("ds:SignatureMethod")
	sm.CreateAttr("Algorithm", AlgRSASHA256)

	ref0 := si.CreateElement("ds:Reference")
	ref0.CreateAttr("Id", ids.ref0)
	ref0.CreateAttr("URI", "")
	transforms := ref0.CreateElement("ds:Transforms")
	tr := transforms.CreateElement("ds:Transform")
	tr.CreateAttr("Algorithm", TransformEnveloped)
	addDigest(ref0, docDigest)

	refKI := si.CreateElement("ds:Reference")
	refKI.CreateAttr("URI", "#"+ids.keyInfo)
	addDigest(refKI, "")

	refSP := si.CreateElement("ds:Reference")
	refSP.CreateAttr("Type", TypeSignedProperties)
	refSP.CreateAttr("URI", "#"+ids.signedProps)
	addDigest(refSP, "")

	sv := sig.CreateElement("ds:SignatureValue")
	sv.CreateAttr("Id", ids.sigValue)

	ki := sig.CreateElement("ds:KeyInfo")
	ki.CreateAttr("Id", ids.keyInfo)
	x509Data := ki.CreateElement("ds:X509Data")
	x509Data.CreateElement("ds:X509Certificate").SetText(CertBase64(s.mat.Leaf))
	for _, c := range s.mat.Chain {
		x509Data.CreateElement("ds:X509Certificate").SetText(CertBase64(c))
	}

	obj := sig.CreateElement("ds:Object")
	qp := obj.CreateElement("xades:QualifyingProperties")
	qp.CreateAttr("xmlns:xades", NamespaceXAdES)
	qp.CreateAttr("xmlns:xades141", NamespaceXAdES141)
	qp.CreateAttr("Target", "#"+ids.signature)

	sp := qp.CreateElement("xades:SignedProperties")
	sp.CreateAttr("Id", ids.signedProps)
	ssp := sp.CreateElement("xades:SignedSignatureProperties")
	ssp.CreateElement("xades:SigningTime").SetText(signingTime.Format(SigningTimeLayout))

	sc := ssp.CreateElement("xades:SigningCertificate")
	if err := addSigningCert(sc, s.mat.Leaf); err != nil {
		return nil, err
	}
	for _, c := range s.mat.Chain {
		if err := addSigningCert(sc, c); err != nil {
			return nil, err
		}
	}

	spi := ssp.CreateElement("xades:SignaturePolicyIdentifier")
	spid := spi.CreateElement("xades:SignaturePolicyId")
	polID := spid.CreateElement("xades:SigPolicyId")
	polID.CreateElement("xades:Identifier").SetText(SignaturePolicyURLV2)
	polID.CreateElement("xades:Description").SetText(SignaturePolicyDescription)
	polHash := spid.CreateElement("xades:SigPolicyHash")
	dm := polHash.CreateElement("ds:DigestMethod")
	dm.CreateAttr("Algorithm", AlgSHA256)
	polHash.CreateElement("ds:DigestValue").SetText(SigPolicyHashDigest)

	role := ssp.CreateElement("xades:SignerRole")
	role.CreateElement("xades:ClaimedRoles").
		CreateElement("xades:ClaimedRole").SetText(ClaimedRoleSupplier)

	return sig, nil
}

// addSigningCert añade un xades:Cert con digest e IssuerSerial. El DN va en
// orden natural del certificado y el serial en decimal, como los espera el
// validador.
func addSigningCert(sc *etree.Element, cert *x509.Certificate) error {
	issuer, err := IssuerName(cert)
	if err != nil {
		return err
	}
	c := sc.CreateElement("xades:Cert")
	cd := c.CreateElement("xades:CertDigest")
	dm := cd.CreateElement("ds:DigestMethod")
	dm.CreateAttr("Algorithm", AlgSHA256)
	cd.CreateElement("ds:DigestValue").SetText(CertDigestBase64(cert))
	is := c.CreateElement("xades:IssuerSerial")
	is.CreateElement("ds:X509IssuerName").SetText(issuer)
	is.CreateElement("ds:X509SerialNumber").SetText(cert.SerialNumber.String())
	return nil
}

func addDigest(ref *etree.Element, value string) {
	dm := ref.CreateElement("ds:DigestMethod")
	dm.CreateAttr("Algorithm", AlgSHA256)
	ref.CreateElement("ds:DigestValue").SetText(value)
}

// setReferenceDigest localiza la Reference por URI y fija su DigestValue.
func setReferenceDigest(sig *etree.Element, uri, digest string) {
	for _, ref := range sig.FindElements(".//ds:Reference") {
		if ref.SelectAttrValue("URI", "") == uri {
			ref.SelectElement("ds:DigestValue").SetText(digest)
			return
		}
	}
}

// reorderSignature deja los hijos de ds:Signature en el orden del schema:
// SignedInfo, SignatureValue, KeyInfo, Object.
func reorderSignature(sig *etree.Element) {
	ordered := []*etree.Element{
		sig.SelectElement("ds:SignedInfo"),
		sig.SelectElement("ds:SignatureValue"),
		sig.SelectElement("ds:KeyInfo"),
		sig.SelectElement("ds:Object"),
	}
	for _, el := range ordered {
		sig.RemoveChild(el)
	}
	for _, el := range ordered {
		sig.AddChild(el)
	}
}

// secondExtensionContent devuelve el segundo ext:ExtensionContent del
// documento, el contenedor que el Anexo 1.9 reserva para la firma. Si no
// existe, el documento está mal construido y no se firma.
func secondExtensionContent(doc *etree.Document) (*etree.Element, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: documento sin raíz", domaindian.ErrXMLBuild)
	}
	found := root.FindElements("./UBLExtensions/UBLExtension/ExtensionContent")
	if len(found) < 2 {
		return nil, fmt.Errorf("%w: se requieren dos ext:ExtensionContent y hay %d; el segundo recibe la firma", domaindian.ErrXMLBuild, len(found))
	}
	return found[1], nil
}
