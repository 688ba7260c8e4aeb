package hacienda

import "fmt"

// ValidationError indica que la factura incumple una regla del Anexo 4.4.
// Campo es la ruta legible por máquina del dato ofensivo (por ejemplo
// "Emisor/Identificacion" o "ResumenFactura/TotalComprobante").
type ValidationError struct {
	Campo   string
	Mensaje string
}

func (e *ValidationError) Error() string {
	if e.Campo == "" {
		return e.Mensaje
	}
	return fmt.Sprintf("%s: %s", e.Campo, e.Mensaje)
}
