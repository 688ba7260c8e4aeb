// Carga del certificado de firma desde .p12 (PKCS#12), binario o en Base64.

package signer

import (
	"bytes"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// CertificateError indica que el material criptográfico no pudo cargarse:
// archivo corrupto, contraseña incorrecta, Base64 inválido o llave no RSA.
type CertificateError struct {
	Mensaje string
	Err     error
}

func (e *CertificateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("certificado: %s: %v", e.Mensaje, e.Err)
	}
	return "certificado: " + e.Mensaje
}

func (e *CertificateError) Unwrap() error { return e.Err }

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El archivo puede contener el PKCS#12 binario o su representación en Base64.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, &CertificateError{Mensaje: "leer p12", Err: err}
	}
	return DecodeP12(data, password)
}

// DecodeP12 decodifica un PKCS#12 y devuelve la llave privada RSA junto con
// el certificado hoja y su cadena. Si el contenido no inicia con la marca
// DER (0x30) se interpreta como Base64 estricto antes de decodificar.
func DecodeP12(data []byte, password string) (tls.Certificate, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return tls.Certificate{}, &CertificateError{Mensaje: "contenido p12 vacío"}
	}
	if data[0] != 0x30 {
		decoded, err := base64.StdEncoding.DecodeString(string(removeWhitespace(data)))
		if err != nil {
			return tls.Certificate{}, &CertificateError{Mensaje: "Base64 inválido", Err: err}
		}
		data = decoded
	}

	// ToPEM extrae todas las bolsas del PKCS#12 (Decode solo tolera un
	// certificado; los p12 de Hacienda traen la cadena completa).
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return tls.Certificate{}, &CertificateError{Mensaje: "decodificar p12", Err: err}
	}

	var priv *rsa.PrivateKey
	var certs []*x509.Certificate
	for _, block := range blocks {
		switch block.Type {
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return tls.Certificate{}, &CertificateError{Mensaje: "parsear certificado", Err: err}
			}
			certs = append(certs, cert)
		case "PRIVATE KEY":
			key, err := parsePrivateKey(block)
			if err != nil {
				return tls.Certificate{}, err
			}
			priv = key
		}
	}
	if priv == nil {
		return tls.Certificate{}, &CertificateError{Mensaje: "el p12 no contiene llave privada RSA"}
	}
	if len(certs) == 0 {
		return tls.Certificate{}, &CertificateError{Mensaje: "el p12 no contiene certificados"}
	}

	leaf, chain := splitLeaf(priv, certs)
	if leaf == nil {
		return tls.Certificate{}, &CertificateError{Mensaje: "ningún certificado corresponde a la llave privada"}
	}

	raw := make([][]byte, 0, len(certs))
	raw = append(raw, leaf.Raw)
	for _, c := range chain {
		raw = append(raw, c.Raw)
	}
	return tls.Certificate{Certificate: raw, PrivateKey: priv, Leaf: leaf}, nil
}

func parsePrivateKey(block *pem.Block) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, &CertificateError{Mensaje: "parsear llave privada", Err: err}
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, &CertificateError{Mensaje: "la llave privada no es RSA"}
	}
	return rsaKey, nil
}

// splitLeaf separa el certificado cuya llave pública corresponde a la llave
// privada; el resto se conserva como cadena en el orden original.
func splitLeaf(priv *rsa.PrivateKey, certs []*x509.Certificate) (*x509.Certificate, []*x509.Certificate) {
	var leaf *x509.Certificate
	chain := make([]*x509.Certificate, 0, len(certs))
	for _, cert := range certs {
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if leaf == nil && ok && pub.N.Cmp(priv.N) == 0 {
			leaf = cert
			continue
		}
		chain = append(chain, cert)
	}
	return leaf, chain
}

func removeWhitespace(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
		default:
			out = append(out, b)
		}
	}
	return out
}
