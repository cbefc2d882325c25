// Carga del material criptográfico desde .p12 (PKCS#12) y utilidades X.509
// para XAdES y WS-Security.

package signer

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"

	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
)

// KeyMaterial agrupa la llave privada, el certificado hoja y la cadena
// emisora extraídos del .p12 entregado por la entidad certificadora.
type KeyMaterial struct {
	PrivateKey *rsa.PrivateKey
	Leaf       *x509.Certificate
	Chain      []*x509.Certificate // emisores, sin incluir la hoja
}

// LoadPKCS12File carga el material desde un archivo .p12/.pfx.
func LoadPKCS12File(path, password string) (*KeyMaterial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: leer %s: %v", domaindian.ErrCertificate, path, err)
	}
	return LoadPKCS12(data, password)
}

// LoadPKCS12 decodifica un PKCS#12 con su contraseña. Acepta archivos con
// cadena de certificación: la hoja se identifica por la llave privada y el
// resto queda en Chain. Los cifrados soportados son los clásicos del formato
// (RC2-40 y 3DES), que es como las CA colombianas emiten los .p12.
func LoadPKCS12(data []byte, password string) (*KeyMaterial, error) {
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, fmt.Errorf("%w: decodificar p12 (¿contraseña incorrecta?): %v", domaindian.ErrCertificate, err)
	}

	var key *rsa.PrivateKey
	var certs []*x509.Certificate
	for _, block := range blocks {
		switch block.Type {
		case "PRIVATE KEY":
			k, err := parsePrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			key = k
		case "CERTIFICATE":
			c, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: parsear certificado del p12: %v", domaindian.ErrCertificate, err)
			}
			certs = append(certs, c)
		}
	}
	if key == nil {
		return nil, fmt.Errorf("%w: el p12 no contiene llave privada", domaindian.ErrCertificate)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: el p12 no contiene certificados", domaindian.ErrCertificate)
	}

	mat := &KeyMaterial{PrivateKey: key}
	for _, c := range certs {
		pub, ok := c.PublicKey.(*rsa.PublicKey)
		if ok && mat.Leaf == nil && pub.N.Cmp(key.PublicKey.N) == 0 {
			mat.Leaf = c
			continue
		}
		mat.Chain = append(mat.Chain, c)
	}
	if mat.Leaf == nil {
		return nil, fmt.Errorf("%w: ningún certificado del p12 corresponde a la llave privada", domaindian.ErrCertificate)
	}
	return mat, nil
}

func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parsear llave privada: %v", domaindian.ErrCertificate, err)
	}
	rsaKey, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: la llave privada debe ser RSA, es %T", domaindian.ErrCertificate, k)
	}
	return rsaKey, nil
}

// CertBase64 devuelve el certificado DER en base64 (ds:X509Certificate y
// wsse:BinarySecurityToken).
func CertBase64(cert *x509.Certificate) string {
	return base64.StdEncoding.EncodeToString(cert.Raw)
}

// CertDigestBase64 devuelve el SHA-256 del DER en base64 (xades:CertDigest).
func CertDigestBase64(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// IssuerName devuelve el DN del emisor en orden natural (tal como viene en el
// certificado: C primero, CN al final). El String() de pkix.Name invierte los
// RDN según RFC 2253 y el validador DIAN rechaza ese orden, así que se
// reconstruye desde el ASN.1 crudo.
func IssuerName(cert *x509.Certificate) (string, error) {
	return naturalOrderDN(cert.RawIssuer)
}

// SubjectName devuelve el DN del titular en orden natural.
func SubjectName(cert *x509.Certificate) (string, error) {
	return naturalOrderDN(cert.RawSubject)
}

var dnAttributeNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.5":                    "SERIALNUMBER",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"2.5.4.9":                    "STREET",
	"0.9.2342.19200300.100.1.25": "DC",
	"1.2.840.113549.1.9.1":       "EMAILADDRESS",
}

func naturalOrderDN(raw []byte) (string, error) {
	var seq pkix.RDNSequence
	if rest, err := asn1.Unmarshal(raw, &seq); err != nil {
		return "", fmt.Errorf("%w: decodificar DN: %v", domaindian.ErrCertificate, err)
	} else if len(rest) > 0 {
		return "", fmt.Errorf("%w: DN con bytes sobrantes", domaindian.ErrCertificate)
	}

	var parts []string
	for _, rdn := range seq {
		for _, atv := range rdn {
			name, ok := dnAttributeNames[atv.Type.String()]
			if !ok {
				name = atv.Type.String()
			}
			parts = append(parts, fmt.Sprintf("%s=%v", name, atv.Value))
		}
	}
	return strings.Join(parts, ","), nil
}
