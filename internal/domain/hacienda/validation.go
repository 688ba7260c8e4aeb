// Package hacienda contiene las validaciones de dominio para la factura
// electrónica de Costa Rica según los anexos de la versión 4.4.
//
// La validación es una compuerta previa al XML: falla en la primera regla
// incumplida (Hacienda espera envíos individuales y bien formados, no una
// lista de errores acumulados).
package hacienda

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/rovinlr/FE-CR/internal/domain/entity"
	pkghacienda "github.com/rovinlr/FE-CR/pkg/hacienda"
)

var (
	claveRE          = regexp.MustCompile(`^[0-9]{50}$`)
	consecutivoRE    = regexp.MustCompile(`^[0-9]{20}$`)
	identificacionRE = regexp.MustCompile(`^[0-9A-Za-z]{9,20}$`)
)

var cien = decimal.NewFromInt(100)

// ValidateIdentification valida tipo y número de una identificación.
// field es la ruta que lleva el error ("Emisor/Identificacion", etc.).
func ValidateIdentification(id entity.Identification, field string) error {
	if !pkghacienda.ValidIdentificationTypes[id.Tipo] {
		return &ValidationError{Campo: field, Mensaje: "tipo de identificación inválido"}
	}
	if !identificacionRE.MatchString(id.Numero) {
		return &ValidationError{Campo: field, Mensaje: "número de identificación inválido"}
	}
	return nil
}

// ValidateInvoiceLine valida los montos y el número de una línea de detalle.
func ValidateInvoiceLine(linea entity.InvoiceLine) error {
	if linea.NumeroLinea <= 0 {
		return &ValidationError{Campo: "NumeroLinea", Mensaje: "el número de línea debe ser positivo"}
	}
	if linea.Cantidad.IsNegative() {
		return &ValidationError{Campo: "Cantidad", Mensaje: "la cantidad debe ser mayor o igual a cero"}
	}
	if linea.PrecioUnitario.IsNegative() {
		return &ValidationError{Campo: "PrecioUnitario", Mensaje: "el precio unitario debe ser mayor o igual a cero"}
	}
	if linea.MontoTotal.IsNegative() {
		return &ValidationError{Campo: "MontoTotal", Mensaje: "el monto total debe ser mayor o igual a cero"}
	}
	if linea.SubTotal.IsNegative() {
		return &ValidationError{Campo: "SubTotal", Mensaje: "el subtotal debe ser mayor o igual a cero"}
	}
	if linea.BaseImponible != nil && linea.BaseImponible.IsNegative() {
		return &ValidationError{Campo: "BaseImponible", Mensaje: "la base imponible debe ser mayor o igual a cero"}
	}
	if linea.Impuesto != nil {
		if linea.Impuesto.Monto.IsNegative() {
			return &ValidationError{Campo: "Impuesto/Monto", Mensaje: "monto de impuesto inválido"}
		}
		if linea.Impuesto.Tarifa.IsNegative() || linea.Impuesto.Tarifa.GreaterThan(cien) {
			return &ValidationError{Campo: "Impuesto/Tarifa", Mensaje: "tarifa de impuesto inválida"}
		}
	}
	return nil
}

// ValidateInvoice valida la factura completa y falla en la primera regla
// incumplida devolviendo un *ValidationError con la ruta del campo.
func ValidateInvoice(inv *entity.ElectronicInvoice) error {
	if inv == nil {
		return &ValidationError{Mensaje: "la factura es obligatoria"}
	}
	if !claveRE.MatchString(inv.Clave) {
		return &ValidationError{Campo: "Clave", Mensaje: "la clave debe tener 50 dígitos"}
	}
	if !consecutivoRE.MatchString(inv.NumeroConsecutivo) {
		return &ValidationError{Campo: "NumeroConsecutivo", Mensaje: "el consecutivo debe tener 20 dígitos"}
	}
	if inv.FechaEmision.IsZero() {
		return &ValidationError{Campo: "FechaEmision", Mensaje: "fecha de emisión inválida"}
	}
	if err := ValidateIdentification(inv.Emisor.Identificacion, "Emisor/Identificacion"); err != nil {
		return err
	}
	if inv.Receptor != nil && inv.Receptor.Identificacion != nil {
		if err := ValidateIdentification(*inv.Receptor.Identificacion, "Receptor/Identificacion"); err != nil {
			return err
		}
	}
	if !inv.CondicionVenta.IsValid() {
		return &ValidationError{Campo: "CondicionVenta", Mensaje: "condición de venta inválida"}
	}
	if len(inv.MediosPago) == 0 {
		return &ValidationError{Campo: "MedioPago", Mensaje: "debe indicar al menos un medio de pago"}
	}

	seen := make(map[int]bool, len(inv.DetalleServicio))
	for _, linea := range inv.DetalleServicio {
		if err := ValidateInvoiceLine(linea); err != nil {
			return err
		}
		if seen[linea.NumeroLinea] {
			return &ValidationError{Campo: "NumeroLinea", Mensaje: "número de línea duplicado"}
		}
		seen[linea.NumeroLinea] = true
	}

	if inv.Resumen.TotalComprobante.IsNegative() {
		return &ValidationError{Campo: "ResumenFactura/TotalComprobante", Mensaje: "total del comprobante inválido"}
	}
	if inv.Resumen.TipoCambio != nil && !inv.Resumen.TipoCambio.IsPositive() {
		return &ValidationError{Campo: "ResumenFactura/TipoCambio", Mensaje: "el tipo de cambio debe ser mayor a cero"}
	}
	return nil
}
