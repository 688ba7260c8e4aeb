// Generación de la clave numérica (50 dígitos) y del número consecutivo
// (20 dígitos) según la resolución de comprobantes electrónicos v4.4.

package hacienda

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// Códigos de situación del comprobante (posición 22 de la clave).
const (
	SituationNormal      = "1" // Emisión normal
	SituationContingency = "2" // Contingencia
	SituationNoInternet  = "3" // Sin internet
)

// Tipos de documento para el consecutivo (posiciones 9-10).
const (
	DocTypeFacturaElectronica = "01"
	DocTypeNotaDebito         = "02"
	DocTypeNotaCredito        = "03"
	DocTypeTiquete            = "04"
)

var nonDigit = regexp.MustCompile(`[^0-9]`)

// ClaveParams agrupa los datos para generar la clave de 50 dígitos.
type ClaveParams struct {
	CountryCode    string    // Código de país ("506" si se deja vacío)
	Date           time.Time // Fecha de emisión (se usan día, mes y año)
	Identification string    // Identificación del emisor (se rellena a 12 dígitos)
	Consecutive    string    // Número consecutivo de 20 dígitos
	SecurityCode   string    // Código de seguridad de 8 dígitos (aleatorio si vacío)
	Situation      string    // Situación del comprobante (normal si vacío)
}

// GenerateClave construye la clave numérica de 50 dígitos:
//
//	país(3) + DDMMAA(6) + identificación(12) + consecutivo(20) + situación(1) + seguridad(8)
//
// La identificación se rellena con ceros a la izquierda y se eliminan los
// caracteres no numéricos.
func GenerateClave(p ClaveParams) (string, error) {
	country := p.CountryCode
	if country == "" {
		country = "506"
	}
	if len(country) != 3 || nonDigit.MatchString(country) {
		return "", fmt.Errorf("hacienda: código de país inválido %q", p.CountryCode)
	}
	if p.Date.IsZero() {
		return "", fmt.Errorf("hacienda: la fecha de emisión es obligatoria para la clave")
	}

	ident := nonDigit.ReplaceAllString(p.Identification, "")
	if ident == "" {
		return "", fmt.Errorf("hacienda: la identificación del emisor es obligatoria para la clave")
	}
	if len(ident) > 12 {
		return "", fmt.Errorf("hacienda: identificación %q excede 12 dígitos", p.Identification)
	}
	ident = zeroPad(ident, 12)

	consecutive := strings.TrimSpace(p.Consecutive)
	if len(consecutive) != 20 || nonDigit.MatchString(consecutive) {
		return "", fmt.Errorf("hacienda: el consecutivo debe tener 20 dígitos, se recibió %q", p.Consecutive)
	}

	situation := p.Situation
	if situation == "" {
		situation = SituationNormal
	}
	if len(situation) != 1 || nonDigit.MatchString(situation) {
		return "", fmt.Errorf("hacienda: situación inválida %q", p.Situation)
	}

	security := p.SecurityCode
	if security == "" {
		var err error
		security, err = randomSecurityCode()
		if err != nil {
			return "", err
		}
	}
	if len(security) != 8 || nonDigit.MatchString(security) {
		return "", fmt.Errorf("hacienda: el código de seguridad debe tener 8 dígitos, se recibió %q", p.SecurityCode)
	}

	clave := country + p.Date.Format("020106") + ident + consecutive + situation + security
	if len(clave) != 50 {
		return "", fmt.Errorf("hacienda: clave generada con longitud %d, se esperaban 50 dígitos", len(clave))
	}
	return clave, nil
}

// GenerateConsecutive construye el número consecutivo de 20 dígitos:
//
//	sucursal(3) + terminal(5) + tipo de documento(2) + secuencia(10)
//
// branch y terminal se rellenan con ceros a la izquierda.
func GenerateConsecutive(branch, terminal, docType string, sequence int64) (string, error) {
	if sequence <= 0 {
		return "", fmt.Errorf("hacienda: la secuencia del consecutivo debe ser positiva, se recibió %d", sequence)
	}
	branch = nonDigit.ReplaceAllString(branch, "")
	if branch == "" {
		branch = "1"
	}
	if len(branch) > 3 {
		return "", fmt.Errorf("hacienda: sucursal %q excede 3 dígitos", branch)
	}
	terminal = nonDigit.ReplaceAllString(terminal, "")
	if terminal == "" {
		terminal = "1"
	}
	if len(terminal) > 5 {
		return "", fmt.Errorf("hacienda: terminal %q excede 5 dígitos", terminal)
	}
	if docType == "" {
		docType = DocTypeFacturaElectronica
	}
	if len(docType) != 2 || nonDigit.MatchString(docType) {
		return "", fmt.Errorf("hacienda: tipo de documento inválido %q", docType)
	}
	seq := fmt.Sprintf("%010d", sequence)
	if len(seq) != 10 {
		return "", fmt.Errorf("hacienda: la secuencia %d excede 10 dígitos", sequence)
	}
	return zeroPad(branch, 3) + zeroPad(terminal, 5) + docType + seq, nil
}

// randomSecurityCode genera 8 dígitos aleatorios con crypto/rand.
func randomSecurityCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000000))
	if err != nil {
		return "", fmt.Errorf("hacienda: generar código de seguridad: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
