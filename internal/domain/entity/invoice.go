// Package entity contiene los objetos de valor de la factura electrónica de
// Costa Rica (esquema v4.4). Las entidades se construyen una sola vez y fluyen
// de solo lectura por validación, construcción de XML y firma.
package entity

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovinlr/FE-CR/pkg/hacienda"
)

// InvoiceSummary agrupa los totales del comprobante (ResumenFactura).
// Todos los totales son no negativos; los de categorías sin movimientos
// se emiten igualmente en el XML con valor cero.
type InvoiceSummary struct {
	CodigoMoneda string
	TipoCambio   *decimal.Decimal // > 0 si está presente

	TotalServGravados         decimal.Decimal
	TotalServExentos          decimal.Decimal
	TotalServExonerado        decimal.Decimal
	TotalServNoSujeto         decimal.Decimal
	TotalServOtros            decimal.Decimal
	TotalMercanciasGravadas   decimal.Decimal
	TotalMercanciasExentas    decimal.Decimal
	TotalMercanciasExoneradas decimal.Decimal
	TotalMercanciasNoSujeto   decimal.Decimal
	TotalMercanciasOtros      decimal.Decimal
	TotalGravado              decimal.Decimal
	TotalExento               decimal.Decimal
	TotalExonerado            decimal.Decimal
	TotalNoSujeto             decimal.Decimal
	TotalOtros                decimal.Decimal
	TotalVenta                decimal.Decimal
	TotalDescuentos           decimal.Decimal
	TotalVentaNeta            decimal.Decimal
	TotalImpuesto             decimal.Decimal
	TotalIVADevuelto          decimal.Decimal
	TotalOtrosCargos          decimal.Decimal
	TotalComprobante          decimal.Decimal
}

// ReferenceInformation enlaza el comprobante con un documento previo
// (por ejemplo la factura que anula una nota de crédito).
type ReferenceInformation struct {
	TipoDocumento   string
	NumeroDocumento string
	FechaEmision    time.Time
	Codigo          string
	Razon           string
}

// ElectronicInvoice es la raíz del agregado: una factura electrónica v4.4.
type ElectronicInvoice struct {
	Clave                 string // 50 dígitos
	CodigoActividad       string // 6 dígitos
	NumeroConsecutivo     string // 20 dígitos
	FechaEmision          time.Time
	Emisor                Emisor
	Receptor              *Receptor
	CondicionVenta        hacienda.SaleCondition
	PlazoCredito          string // opcional
	MediosPago            []hacienda.PaymentMethod
	DetalleServicio       []InvoiceLine
	Resumen               InvoiceSummary
	InformacionReferencia []ReferenceInformation
	OtrosCargos           []OtherCharge
}

// SortedMediosPago devuelve los medios de pago deduplicados y ordenados
// lexicográficamente por código, tal como exige el orden de emisión del XML.
func (inv *ElectronicInvoice) SortedMediosPago() []hacienda.PaymentMethod {
	seen := make(map[hacienda.PaymentMethod]bool, len(inv.MediosPago))
	out := make([]hacienda.PaymentMethod, 0, len(inv.MediosPago))
	for _, m := range inv.MediosPago {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
