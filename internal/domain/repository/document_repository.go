// Package repository define los puertos de persistencia del dominio.
package repository

import "github.com/rovinlr/FE-CR/internal/domain/entity"

// ElectronicDocumentRepository es el puerto de persistencia de los
// comprobantes generados: XML firmado, estado ante Hacienda y respuesta.
type ElectronicDocumentRepository interface {
	// Create persiste un documento nuevo. La clave debe ser única.
	Create(doc *entity.ElectronicDocument) error
	// Update actualiza estado, XML, respuesta y detalle de error.
	Update(doc *entity.ElectronicDocument) error
	// GetByClave obtiene un documento por su clave de 50 dígitos.
	// Devuelve (nil, nil) si no existe.
	GetByClave(clave string) (*entity.ElectronicDocument, error)
	// ListByStatus lista documentos en un estado dado, más antiguos primero.
	ListByStatus(status string, limit int) ([]*entity.ElectronicDocument, error)
}
