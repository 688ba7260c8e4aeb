package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxExoneration documenta una exoneración aplicada a un impuesto de línea.
type TaxExoneration struct {
	TipoDocumento         string
	NumeroDocumento       string
	NombreInstitucion     string
	FechaEmision          time.Time
	PorcentajeExoneracion decimal.Decimal
	MontoExoneracion      decimal.Decimal
}

// Tax es el impuesto aplicado a una línea de detalle.
type Tax struct {
	Codigo       string
	CodigoTarifa string          // opcional
	Tarifa       decimal.Decimal // porcentaje en [0, 100]
	Monto        decimal.Decimal
	FactorIVA    *decimal.Decimal
	Exoneracion  *TaxExoneration
}

// Discount es el descuento aplicado a una línea de detalle.
type Discount struct {
	Monto      decimal.Decimal
	Naturaleza string
}

// OtherCharge es un cargo adicional documentado (timbres, cobros de terceros, etc.).
type OtherCharge struct {
	TipoDocumento     string
	NumeroDocumento   string
	NombreInstitucion string
	FechaEmision      time.Time
	MontoCargo        decimal.Decimal
}

// InvoiceLine es una línea de detalle del comprobante.
type InvoiceLine struct {
	NumeroLinea    int
	Codigo         string // código de producto, opcional
	Cantidad       decimal.Decimal
	UnidadMedida   string
	Detalle        string
	PrecioUnitario decimal.Decimal
	MontoTotal     decimal.Decimal
	SubTotal       decimal.Decimal
	BaseImponible  *decimal.Decimal
	Impuesto       *Tax
	ImpuestoNeto   *decimal.Decimal
	Descuento      *Discount
	OtrosCargos    []OtherCharge
}

// MontoTotalLinea calcula el total de la línea con impuesto:
//
//	subtotal + (impuesto neto si existe, si no el monto del impuesto)
//	- descuento + suma de otros cargos
//
// El valor nunca se toma de la entrada; el builder lo recalcula siempre.
func (l InvoiceLine) MontoTotalLinea() decimal.Decimal {
	total := l.SubTotal
	switch {
	case l.ImpuestoNeto != nil:
		total = total.Add(*l.ImpuestoNeto)
	case l.Impuesto != nil:
		total = total.Add(l.Impuesto.Monto)
	}
	if l.Descuento != nil {
		total = total.Sub(l.Descuento.Monto)
	}
	for _, cargo := range l.OtrosCargos {
		total = total.Add(cargo.MontoCargo)
	}
	return total
}
