// Construcción y firma del sobre SOAP con WS-Security: BinarySecurityToken,
// wsu:Timestamp y ds:Signature con canonicalización exclusiva por referencia.

package soap

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian/signer"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian/xmldsig"
)

// EnvelopeBuilder arma sobres SOAP 1.2 firmados para los servicios DIAN.
// now y newID son inyectables para pruebas.
type EnvelopeBuilder struct {
	mat   *signer.KeyMaterial
	now   func() time.Time
	newID func() string
}

// NewEnvelopeBuilder crea el constructor de sobres con reloj de sistema.
func NewEnvelopeBuilder(mat *signer.KeyMaterial) *EnvelopeBuilder {
	return &EnvelopeBuilder{
		mat: mat,
		now: time.Now,
		newID: func() string {
			return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
		},
	}
}

// Build firma y serializa un sobre para la operación indicada. body es el
// elemento wcf:* que va dentro de soap:Body; el sobre firma el Timestamp y el
// wsa:To, que es lo que el servicio verifica.
func (b *EnvelopeBuilder) Build(action, endpoint string, body *etree.Element) ([]byte, error) {
	suffix := b.newID()
	created := b.now().UTC()

	env := etree.NewElement("soap:Envelope")
	env.CreateAttr("xmlns:soap", nsSOAP)
	env.CreateAttr("xmlns:wcf", nsWCF)

	header := env.CreateElement("soap:Header")
	header.CreateAttr("xmlns:wsa", nsWSA)

	sec := header.CreateElement("wsse:Security")
	sec.CreateAttr("xmlns:wsse", nsWSSE)
	sec.CreateAttr("xmlns:wsu", nsWSU)

	bst := sec.CreateElement("wsse:BinarySecurityToken")
	bst.CreateAttr("EncodingType", bstEncodingType)
	bst.CreateAttr("ValueType", bstValueType)
	bst.CreateAttr("wsu:Id", "X509-"+suffix)
	bst.SetText(signer.CertBase64(b.mat.Leaf))

	ts := sec.CreateElement("wsu:Timestamp")
	ts.CreateAttr("wsu:Id", "TS-"+suffix)
	ts.CreateElement("wsu:Created").SetText(created.Format(timestampLayout))
	ts.CreateElement("wsu:Expires").SetText(created.Add(timestampValidity).Format(timestampLayout))

	sig := sec.CreateElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", signer.NamespaceDS)
	sig.CreateAttr("Id", "SIG-"+suffix)
	keyInfo := sig.CreateElement("ds:KeyInfo")
	keyInfo.CreateAttr("Id", "KI-"+suffix)
	str := keyInfo.CreateElement("wsse:SecurityTokenReference")
	str.CreateAttr("wsu:Id", "STR-"+suffix)
	ref := str.CreateElement("wsse:Reference")
	ref.CreateAttr("URI", "#X509-"+suffix)
	ref.CreateAttr("ValueType", bstValueType)

	header.CreateElement("wsa:Action").SetText(action)
	to := header.CreateElement("wsa:To")
	to.CreateAttr("xmlns:wsu", nsWSU)
	to.CreateAttr("wsu:Id", "id-TO-"+suffix)
	to.SetText(endpoint)

	env.CreateElement("soap:Body").AddChild(body)

	// Digests sobre los subárboles ya montados en el sobre, para que hereden
	// las declaraciones de namespace reales.
	tsDigest, err := digestExclusive(ts, prefixListTimestamp)
	if err != nil {
		return nil, err
	}
	toDigest, err := digestExclusive(to, prefixListTo)
	if err != nil {
		return nil, err
	}

	signedInfo := buildSignedInfo(suffix, tsDigest, toDigest)
	signedInfoC14N, err := xmldsig.CanonicalizeExclusive(signedInfo, prefixListSignedInfo)
	if err != nil {
		return nil, err
	}
	signatureValue, err := xmldsig.SignRSASHA256(b.mat.PrivateKey, signedInfoC14N)
	if err != nil {
		return nil, err
	}

	// Ensamblar la firma en orden de schema: SignedInfo, SignatureValue, KeyInfo.
	sig.RemoveChild(keyInfo)
	sig.AddChild(signedInfo)
	sv := sig.CreateElement("ds:SignatureValue")
	sv.CreateAttr("Id", "SV-"+suffix)
	sv.SetText(signatureValue)
	sig.AddChild(keyInfo)

	doc := etree.NewDocument()
	doc.SetRoot(env)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("soap: serializar sobre: %w", err)
	}
	return out, nil
}

func digestExclusive(el *etree.Element, prefixes []string) (string, error) {
	c14n, err := xmldsig.CanonicalizeExclusive(el, prefixes)
	if err != nil {
		return "", err
	}
	return xmldsig.DigestBase64(c14n), nil
}

// buildSignedInfo arma el ds:SignedInfo desprendido, con las declaraciones de
// namespace que la canonicalización exclusiva necesita tener en ámbito.
func buildSignedInfo(suffix, tsDigest, toDigest string) *etree.Element {
	si := etree.NewElement("ds:SignedInfo")
	si.CreateAttr("xmlns:ds", signer.NamespaceDS)
	si.CreateAttr("xmlns:soap", nsSOAP)
	si.CreateAttr("xmlns:wsa", nsWSA)
	si.CreateAttr("xmlns:wsu", nsWSU)

	cm := si.CreateElement("ds:CanonicalizationMethod")
	cm.CreateAttr("Algorithm", algExcC14N)
	addInclusiveNamespaces(cm, prefixListSignedInfo)

	sm := si.CreateElement("ds:SignatureMethod")
	sm.CreateAttr("Algorithm", signer.AlgRSASHA256)

	addEnvelopeReference(si, "#TS-"+suffix, tsDigest, prefixListTimestamp)
	addEnvelopeReference(si, "#id-TO-"+suffix, toDigest, prefixListTo)

	return si
}

func addEnvelopeReference(si *etree.Element, uri, digest string, prefixes []string) {
	ref := si.CreateElement("ds:Reference")
	ref.CreateAttr("URI", uri)
	tr := ref.CreateElement("ds:Transforms").CreateElement("ds:Transform")
	tr.CreateAttr("Algorithm", algExcC14N)
	addInclusiveNamespaces(tr, prefixes)
	dm := ref.CreateElement("ds:DigestMethod")
	dm.CreateAttr("Algorithm", signer.AlgSHA256)
	ref.CreateElement("ds:DigestValue").SetText(digest)
}

func addInclusiveNamespaces(parent *etree.Element, prefixes []string) {
	in := parent.CreateElement("ec:InclusiveNamespaces")
	in.CreateAttr("xmlns:ec", nsEC)
	in.CreateAttr("PrefixList", strings.Join(prefixes, " "))
}
