// Servicio de firma XMLDSig enveloped para los comprobantes electrónicos
// v4.4. Inserta <ds:Signature> como último hijo del elemento raíz.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"
)

// XMLSignerService firma el XML con el perfil de Hacienda: canonicalización
// exclusiva, RSA-SHA256 y una única Reference envolvente (URI vacío).
type XMLSignerService struct{}

// NewXMLSignerService crea el servicio.
func NewXMLSignerService() *XMLSignerService {
	return &XMLSignerService{}
}

// Sign decodifica el PKCS#12 y firma el documento. Los errores del material
// criptográfico se devuelven como *CertificateError.
func (s *XMLSignerService) Sign(xmlBytes, p12 []byte, password string) ([]byte, error) {
	cert, err := DecodeP12(p12, password)
	if err != nil {
		return nil, err
	}
	return s.SignWithCertificate(xmlBytes, cert)
}

// SignWithCertificate firma el documento con un certificado ya cargado.
// El XML de entrada no debe contener una firma previa.
func (s *XMLSignerService) SignWithCertificate(xmlBytes []byte, cert tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("signer: XML vacío")
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, &CertificateError{Mensaje: "el certificado debe incluir llave privada RSA"}
	}
	if len(cert.Certificate) == 0 {
		return nil, &CertificateError{Mensaje: "el certificado no tiene cadena"}
	}
	leaf := cert.Leaf
	if leaf == nil {
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, &CertificateError{Mensaje: "parsear certificado hoja", Err: err}
		}
		leaf = parsed
	}

	// 1) Digest del documento completo antes de insertar la firma.
	canonicalDoc, err := canonicalizeXML(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("signer: canonicalizar documento: %w", err)
	}
	docDigest := sha256.Sum256(canonicalDoc)
	docDigestB64 := base64.StdEncoding.EncodeToString(docDigest[:])

	// 2) SignedInfo canonicalizado y firmado con RSA PKCS#1 v1.5.
	signedInfoXML := s.buildSignedInfo(docDigestB64)
	canonicalSignedInfo, err := canonicalizeXML([]byte(signedInfoXML))
	if err != nil {
		return nil, fmt.Errorf("signer: canonicalizar SignedInfo: %w", err)
	}
	signHash := sha256.Sum256(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA256, signHash[:])
	if err != nil {
		return nil, fmt.Errorf("signer: firmar SignedInfo: %w", err)
	}

	// 3) KeyInfo: nombre del sujeto y la cadena completa en Base64.
	signatureXML := s.buildFullSignature(
		signedInfoXML,
		base64.StdEncoding.EncodeToString(signatureValue),
		leaf.Subject.String(),
		cert.Certificate,
	)

	// 4) Insertar como último hijo de la raíz.
	return s.injectSignature(xmlBytes, signatureXML)
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func (s *XMLSignerService) buildSignedInfo(docDigestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgExcC14N + `"/>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"/>`)
	sb.WriteString(`<ds:Reference URI="">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"/>`)
	sb.WriteString(`<ds:Transform Algorithm="` + AlgExcC14N + `"/></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + docDigestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func (s *XMLSignerService) buildFullSignature(signedInfoXML, signatureValueB64, keyName string, chain [][]byte) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue>` + signatureValueB64 + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo>`)
	sb.WriteString(`<ds:KeyName>` + escapeXML(keyName) + `</ds:KeyName>`)
	sb.WriteString(`<ds:X509Data>`)
	for _, der := range chain {
		sb.WriteString(`<ds:X509Certificate>` + base64.StdEncoding.EncodeToString(der) + `</ds:X509Certificate>`)
	}
	sb.WriteString(`</ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

func (s *XMLSignerService) injectSignature(xmlBytes []byte, signatureXML string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("signer: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("signer: documento sin raíz")
	}
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("signer: parsear Signature: %w", err)
	}
	if sigRoot := sigDoc.Root(); sigRoot != nil {
		root.AddChild(sigRoot)
	}
	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("signer: serializar XML firmado: %w", err)
	}
	return out.Bytes(), nil
}
