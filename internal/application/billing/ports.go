// Package billing orquesta el ciclo de vida del comprobante electrónico:
// preparación de clave y consecutivo, validación, XML, firma y envío.
package billing

import (
	"github.com/rovinlr/FE-CR/internal/domain/entity"
)

// XMLRenderer define el puerto de construcción del XML del comprobante.
type XMLRenderer interface {
	// Render genera el XML serializado. Con validate en true ejecuta primero
	// la validación de dominio y propaga el *ValidationError sin tocarlo.
	Render(inv *entity.ElectronicInvoice, validate bool) ([]byte, error)
}

// XMLSigner define el puerto de firma digital del XML.
type XMLSigner interface {
	// Sign decodifica el PKCS#12 y devuelve el XML con la firma envolvente.
	Sign(xmlBytes, p12 []byte, password string) ([]byte, error)
}
