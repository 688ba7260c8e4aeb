// Package hacienda contiene catálogos y utilidades alineados al Anexo 3 de la
// Factura Electrónica de Costa Rica versión 4.4 (Ministerio de Hacienda).
package hacienda

// =============================================================================
// Condición de la venta (Anexo 3 - nota 1)
// =============================================================================

// SaleCondition es el código de condición de venta del comprobante.
type SaleCondition string

const (
	SaleConditionContado       SaleCondition = "01" // Contado
	SaleConditionCredito       SaleCondition = "02" // Crédito
	SaleConditionConsignacion  SaleCondition = "03" // Consignación
	SaleConditionApartado      SaleCondition = "04" // Apartado
	SaleConditionArrendamiento SaleCondition = "05" // Arrendamiento con opción de compra
	SaleConditionOtro          SaleCondition = "99" // Otros
)

// ValidSaleConditions contiene las condiciones de venta reconocidas.
var ValidSaleConditions = map[SaleCondition]bool{
	SaleConditionContado:       true,
	SaleConditionCredito:       true,
	SaleConditionConsignacion:  true,
	SaleConditionApartado:      true,
	SaleConditionArrendamiento: true,
	SaleConditionOtro:          true,
}

// IsValid indica si la condición de venta pertenece al catálogo.
func (s SaleCondition) IsValid() bool { return ValidSaleConditions[s] }

// =============================================================================
// Medios de pago (Anexo 3 - nota 2)
// =============================================================================

// PaymentMethod es el código de medio de pago del comprobante.
type PaymentMethod string

const (
	PaymentMethodEfectivo      PaymentMethod = "01" // Efectivo
	PaymentMethodTarjeta       PaymentMethod = "02" // Tarjeta
	PaymentMethodCheque        PaymentMethod = "03" // Cheque
	PaymentMethodTransferencia PaymentMethod = "04" // Transferencia o depósito bancario
	PaymentMethodTerceros      PaymentMethod = "05" // Recaudado por terceros
	PaymentMethodSINPE         PaymentMethod = "06" // SINPE Móvil
	PaymentMethodOtros         PaymentMethod = "99" // Otros
)

// ValidPaymentMethods contiene los medios de pago reconocidos.
var ValidPaymentMethods = map[PaymentMethod]bool{
	PaymentMethodEfectivo:      true,
	PaymentMethodTarjeta:       true,
	PaymentMethodCheque:        true,
	PaymentMethodTransferencia: true,
	PaymentMethodTerceros:      true,
	PaymentMethodSINPE:         true,
	PaymentMethodOtros:         true,
}

// IsValid indica si el medio de pago pertenece al catálogo.
func (m PaymentMethod) IsValid() bool { return ValidPaymentMethods[m] }

// =============================================================================
// Tipos de identificación (Anexo 3 - nota 4)
// =============================================================================

const (
	IdentificationTypeFisica     = "01" // Cédula física
	IdentificationTypeJuridica   = "02" // Cédula jurídica
	IdentificationTypeDIMEX      = "03" // DIMEX
	IdentificationTypeNITE       = "04" // NITE
	IdentificationTypeExtranjero = "05" // Extranjero no domiciliado (solo receptor)
)

// ValidIdentificationTypes contiene los tipos aceptados para emisor y receptor nacional.
var ValidIdentificationTypes = map[string]bool{
	IdentificationTypeFisica:   true,
	IdentificationTypeJuridica: true,
	IdentificationTypeDIMEX:    true,
	IdentificationTypeNITE:     true,
}

// =============================================================================
// Tipos de documento de referencia (notas de crédito/débito)
// =============================================================================

const (
	ReferenceDocFacturaElectronica = "01" // Factura electrónica
	ReferenceDocNotaDebito         = "02" // Nota de débito electrónica
	ReferenceDocNotaCredito        = "03" // Nota de crédito electrónica
	ReferenceDocTiquete            = "04" // Tiquete electrónico
	ReferenceDocOtros              = "99" // Otros
)

// =============================================================================
// Códigos de referencia (razón de la referencia)
// =============================================================================

const (
	ReferenceCodeAnula        = "01" // Anula documento de referencia
	ReferenceCodeCorrige      = "02" // Corrige texto del documento de referencia
	ReferenceCodeCorrigeMonto = "03" // Corrige monto
	ReferenceCodeOtros        = "99" // Otros
)
