package xmldsig

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
)

// DigestBase64 calcula SHA-256 y lo devuelve en base64, el formato de los
// ds:DigestValue de las referencias.
func DigestBase64(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SignRSASHA256 firma el digest SHA-256 de data con RSA PKCS#1 v1.5 y
// devuelve la firma en base64 (contenido de ds:SignatureValue).
func SignRSASHA256(key *rsa.PrivateKey, data []byte) (string, error) {
	if key == nil {
		return "", fmt.Errorf("%w: llave privada nula", domaindian.ErrSignature)
	}
	sum := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, sum[:])
	if err != nil {
		return "", fmt.Errorf("%w: firma RSA: %v", domaindian.ErrSignature, err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyRSASHA256 comprueba una firma en base64 contra data. Complemento de
// SignRSASHA256, usado en pruebas y verificación de documentos propios.
func VerifyRSASHA256(pub *rsa.PublicKey, signatureB64 string, data []byte) error {
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: firma no es base64: %v", domaindian.ErrSignature, err)
	}
	sum := sha256.Sum256(data)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, sum[:], sig); err != nil {
		return fmt.Errorf("%w: verificación RSA: %v", domaindian.ErrSignature, err)
	}
	return nil
}
