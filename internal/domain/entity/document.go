package entity

import "time"

// Estados del ciclo de vida de un documento electrónico ante Hacienda.
const (
	DocumentStatusDraft     = "DRAFT"     // Creado, sin XML generado
	DocumentStatusGenerated = "GENERATED" // XML construido y validado
	DocumentStatusSigned    = "SIGNED"    // XML firmado, pendiente de envío
	DocumentStatusSent      = "SENT"      // Enviado a la API de recepción
	DocumentStatusAccepted  = "ACCEPTED"  // Aceptado por Hacienda
	DocumentStatusRejected  = "REJECTED"  // Rechazado por Hacienda
	DocumentStatusError     = "ERROR"     // Falló generación, firma o envío
)

// ElectronicDocument es el registro persistido de un comprobante generado:
// el XML firmado, el estado ante Hacienda y la respuesta de la API.
// La factura en sí (ElectronicInvoice) nunca se muta; este registro es el
// único estado mutable del sistema y vive fuera del núcleo.
type ElectronicDocument struct {
	ID              string
	Clave           string // 50 dígitos, identidad fiscal del documento
	Consecutivo     string
	SourceRecordID  string // referencia al registro contable del sistema anfitrión
	Status          string
	XMLSigned       string // XML firmado completo
	ResponsePayload string // respuesta de Hacienda (JSON o texto plano)
	ErrorDetail     string // detalle del último error (campo, mensaje)
	SubmittedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
