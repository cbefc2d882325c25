// Constantes para firma XAdES-EPES (Anexo Técnico 1.9 DIAN).

package signer

// Política de firma DIAN v2 (obligatoria para XAdES-EPES).
const (
	SignaturePolicyURLV2       = "https://facturaelectronica.dian.gov.co/politicadefirma/v2/politicadefirmav2.pdf"
	SignaturePolicyDescription = "Política de firma para facturas electrónicas de la República de Colombia."
)

// SigPolicyHashDigest es el SHA-256 del PDF de la política de firma v2 (Base64).
// Hash estándar del documento politicadefirmav2.pdf.
const SigPolicyHashDigest = "dMoMvtcG5aIzgYo0tIsSQeVJBDnUnfSOfBpxXrmor0Y="

// Namespaces y algoritmos XMLDSig / XAdES.
const (
	NamespaceDS       = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES    = "http://uri.etsi.org/01903/v1.3.2#"
	NamespaceXAdES141 = "http://uri.etsi.org/01903/v1.4.1#"

	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"

	TypeSignedProperties = "http://uri.etsi.org/01903#SignedProperties"
)

// ClaimedRole declarado en SignerRole: el emisor firma como proveedor.
const ClaimedRoleSupplier = "supplier"

// Formato de xades:SigningTime. La hora se entrega ya en el huso del emisor
// (Colombia, UTC-05:00) y el offset viaja en el literal.
const SigningTimeLayout = "2006-01-02T15:04:05-07:00"
