// Package hacienda implementa la generación y firma del XML de la Factura
// Electrónica de Costa Rica (esquema v4.4) y el cliente de la API de
// recepción del Ministerio de Hacienda.
package hacienda

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rovinlr/FE-CR/internal/domain/entity"
	domhacienda "github.com/rovinlr/FE-CR/internal/domain/hacienda"
)

// Namespaces oficiales del esquema v4.4 publicado en el CDN de Hacienda.
const (
	Namespace      = "https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.4/facturaElectronica"
	SchemaLocation = Namespace + " " + Namespace + ".xsd"
	nsXSI          = "http://www.w3.org/2001/XMLSchema-instance"
)

// decimalPlaces es la cantidad fija de decimales con que se redondean los
// montos antes de normalizar (se eliminan ceros finales; nunca se emite
// notación científica).
const decimalPlaces = 5

// XMLBuilderService construye el documento FacturaElectronica v4.4.
// Es una transformación pura: sin I/O ni estado compartido.
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el árbol del documento. Con validate en true ejecuta primero
// la validación de dominio y propaga su error sin modificarlo.
func (s *XMLBuilderService) Build(inv *entity.ElectronicInvoice, validate bool) (*etree.Document, error) {
	if validate {
		if err := domhacienda.ValidateInvoice(inv); err != nil {
			return nil, err
		}
	}
	if inv == nil {
		return nil, fmt.Errorf("hacienda: la factura es obligatoria")
	}
	if inv.FechaEmision.IsZero() {
		return nil, fmt.Errorf("hacienda: fecha de emisión inválida")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("FacturaElectronica")
	root.CreateAttr("xmlns", Namespace)
	root.CreateAttr("xmlns:xsi", nsXSI)
	root.CreateAttr("xsi:schemaLocation", SchemaLocation)

	writeText(root, "Clave", inv.Clave)
	writeText(root, "CodigoActividad", inv.CodigoActividad)
	writeText(root, "NumeroConsecutivo", inv.NumeroConsecutivo)
	writeText(root, "FechaEmision", formatDatetime(inv.FechaEmision))

	s.writeEmisor(root, inv.Emisor)
	if inv.Receptor != nil {
		s.writeReceptor(root, *inv.Receptor)
	}

	writeText(root, "CondicionVenta", string(inv.CondicionVenta))
	if inv.PlazoCredito != "" {
		writeText(root, "PlazoCredito", inv.PlazoCredito)
	}

	// Un MedioPago por código distinto, en orden lexicográfico.
	for _, medio := range inv.SortedMediosPago() {
		writeText(root, "MedioPago", string(medio))
	}

	detalle := root.CreateElement("DetalleServicio")
	for _, linea := range inv.DetalleServicio {
		s.writeLinea(detalle, linea)
	}

	s.writeResumen(root, inv.Resumen)

	if len(inv.OtrosCargos) > 0 {
		cargos := root.CreateElement("OtrosCargos")
		for _, cargo := range inv.OtrosCargos {
			writeOtherCharge(cargos, "OtroCargo", cargo)
		}
	}

	if len(inv.InformacionReferencia) > 0 {
		info := root.CreateElement("InformacionReferencia")
		for _, ref := range inv.InformacionReferencia {
			refNode := info.CreateElement("Referencia")
			writeText(refNode, "TipoDocumento", ref.TipoDocumento)
			writeText(refNode, "Numero", ref.NumeroDocumento)
			writeText(refNode, "FechaEmision", formatDatetime(ref.FechaEmision))
			writeText(refNode, "Codigo", ref.Codigo)
			writeText(refNode, "Razon", ref.Razon)
		}
	}

	return doc, nil
}

// Render serializa el documento con declaración XML y codificación UTF-8.
func (s *XMLBuilderService) Render(inv *entity.ElectronicInvoice, validate bool) ([]byte, error) {
	doc, err := s.Build(inv, validate)
	if err != nil {
		return nil, err
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("hacienda: serializar XML: %w", err)
	}
	return out, nil
}

func (s *XMLBuilderService) writeEmisor(parent *etree.Element, emisor entity.Emisor) {
	node := parent.CreateElement("Emisor")
	writeText(node, "Nombre", emisor.Nombre)
	ident := node.CreateElement("Identificacion")
	writeText(ident, "Tipo", emisor.Identificacion.Tipo)
	writeText(ident, "Numero", emisor.Identificacion.Numero)
	if emisor.NombreComercial != "" {
		writeText(node, "NombreComercial", emisor.NombreComercial)
	}
	if emisor.Ubicacion != nil {
		writeLocation(node, *emisor.Ubicacion)
	}
	if emisor.Telefono != nil {
		writePhone(node, "Telefono", *emisor.Telefono)
	}
	if emisor.Fax != nil {
		writePhone(node, "Fax", *emisor.Fax)
	}
	if emisor.CorreoElectronico != "" {
		writeText(node, "CorreoElectronico", emisor.CorreoElectronico)
	}
}

func (s *XMLBuilderService) writeReceptor(parent *etree.Element, receptor entity.Receptor) {
	node := parent.CreateElement("Receptor")
	writeText(node, "Nombre", receptor.Nombre)
	if receptor.Identificacion != nil {
		ident := node.CreateElement("Identificacion")
		writeText(ident, "Tipo", receptor.Identificacion.Tipo)
		writeText(ident, "Numero", receptor.Identificacion.Numero)
	}
	if receptor.IdentificacionExtranjero != "" {
		writeText(node, "IdentificacionExtranjero", receptor.IdentificacionExtranjero)
	}
	if receptor.NombreComercial != "" {
		writeText(node, "NombreComercial", receptor.NombreComercial)
	}
	if receptor.Ubicacion != nil {
		writeLocation(node, *receptor.Ubicacion)
	}
	if receptor.Telefono != nil {
		writePhone(node, "Telefono", *receptor.Telefono)
	}
	if receptor.Fax != nil {
		writePhone(node, "Fax", *receptor.Fax)
	}
	if receptor.CorreoElectronico != "" {
		writeText(node, "CorreoElectronico", receptor.CorreoElectronico)
	}
}

func (s *XMLBuilderService) writeLinea(parent *etree.Element, linea entity.InvoiceLine) {
	node := parent.CreateElement("LineaDetalle")
	writeText(node, "NumeroLinea", fmt.Sprintf("%d", linea.NumeroLinea))
	if linea.Codigo != "" {
		codigo := node.CreateElement("Codigo")
		writeText(codigo, "Tipo", "01") // código del vendedor
		writeText(codigo, "Codigo", linea.Codigo)
	}
	writeText(node, "Cantidad", formatDecimal(linea.Cantidad))
	writeText(node, "UnidadMedida", linea.UnidadMedida)
	writeText(node, "Detalle", linea.Detalle)
	writeText(node, "PrecioUnitario", formatDecimal(linea.PrecioUnitario))
	writeText(node, "MontoTotal", formatDecimal(linea.MontoTotal))
	if linea.Descuento != nil {
		descuento := node.CreateElement("Descuento")
		writeText(descuento, "MontoDescuento", formatDecimal(linea.Descuento.Monto))
		writeText(descuento, "NaturalezaDescuento", linea.Descuento.Naturaleza)
	}
	writeText(node, "SubTotal", formatDecimal(linea.SubTotal))
	if linea.BaseImponible != nil {
		writeText(node, "BaseImponible", formatDecimal(*linea.BaseImponible))
	}
	if linea.Impuesto != nil {
		writeTax(node, *linea.Impuesto)
	}
	if linea.ImpuestoNeto != nil {
		writeText(node, "ImpuestoNeto", formatDecimal(*linea.ImpuestoNeto))
	}
	for _, cargo := range linea.OtrosCargos {
		writeOtherCharge(node, "OtroCargo", cargo)
	}
	// Siempre recalculado, nunca tomado de la entrada.
	writeText(node, "MontoTotalLinea", formatDecimal(linea.MontoTotalLinea()))
}

func (s *XMLBuilderService) writeResumen(parent *etree.Element, resumen entity.InvoiceSummary) {
	node := parent.CreateElement("ResumenFactura")
	writeText(node, "CodigoMoneda", resumen.CodigoMoneda)
	if resumen.TipoCambio != nil {
		writeText(node, "TipoCambio", formatDecimal(*resumen.TipoCambio))
	}
	// Conjunto fijo de totales: todos se emiten aunque valgan cero.
	writeText(node, "TotalServGravados", formatDecimal(resumen.TotalServGravados))
	writeText(node, "TotalServExentos", formatDecimal(resumen.TotalServExentos))
	writeText(node, "TotalServExonerado", formatDecimal(resumen.TotalServExonerado))
	writeText(node, "TotalServNoSujeto", formatDecimal(resumen.TotalServNoSujeto))
	writeText(node, "TotalServOtros", formatDecimal(resumen.TotalServOtros))
	writeText(node, "TotalMercanciasGravadas", formatDecimal(resumen.TotalMercanciasGravadas))
	writeText(node, "TotalMercanciasExentas", formatDecimal(resumen.TotalMercanciasExentas))
	writeText(node, "TotalMercanciasExoneradas", formatDecimal(resumen.TotalMercanciasExoneradas))
	writeText(node, "TotalMercanciasNoSujeto", formatDecimal(resumen.TotalMercanciasNoSujeto))
	writeText(node, "TotalMercanciasOtros", formatDecimal(resumen.TotalMercanciasOtros))
	writeText(node, "TotalGravado", formatDecimal(resumen.TotalGravado))
	writeText(node, "TotalExento", formatDecimal(resumen.TotalExento))
	writeText(node, "TotalExonerado", formatDecimal(resumen.TotalExonerado))
	writeText(node, "TotalNoSujeto", formatDecimal(resumen.TotalNoSujeto))
	writeText(node, "TotalOtros", formatDecimal(resumen.TotalOtros))
	writeText(node, "TotalVenta", formatDecimal(resumen.TotalVenta))
	writeText(node, "TotalDescuentos", formatDecimal(resumen.TotalDescuentos))
	writeText(node, "TotalVentaNeta", formatDecimal(resumen.TotalVentaNeta))
	writeText(node, "TotalImpuesto", formatDecimal(resumen.TotalImpuesto))
	writeText(node, "TotalIVADevuelto", formatDecimal(resumen.TotalIVADevuelto))
	writeText(node, "TotalOtrosCargos", formatDecimal(resumen.TotalOtrosCargos))
	writeText(node, "TotalComprobante", formatDecimal(resumen.TotalComprobante))
}

func writeTax(parent *etree.Element, tax entity.Tax) {
	node := parent.CreateElement("Impuesto")
	writeText(node, "Codigo", tax.Codigo)
	if tax.CodigoTarifa != "" {
		writeText(node, "CodigoTarifa", tax.CodigoTarifa)
	}
	writeText(node, "Tarifa", formatDecimal(tax.Tarifa))
	writeText(node, "Monto", formatDecimal(tax.Monto))
	if tax.FactorIVA != nil {
		writeText(node, "FactorIVA", formatDecimal(*tax.FactorIVA))
	}
	if tax.Exoneracion != nil {
		exo := node.CreateElement("Exoneracion")
		writeText(exo, "TipoDocumento", tax.Exoneracion.TipoDocumento)
		writeText(exo, "NumeroDocumento", tax.Exoneracion.NumeroDocumento)
		writeText(exo, "NombreInstitucion", tax.Exoneracion.NombreInstitucion)
		writeText(exo, "FechaEmision", formatDatetime(tax.Exoneracion.FechaEmision))
		writeText(exo, "PorcentajeExoneracion", formatDecimal(tax.Exoneracion.PorcentajeExoneracion))
		writeText(exo, "MontoExoneracion", formatDecimal(tax.Exoneracion.MontoExoneracion))
	}
}

func writeOtherCharge(parent *etree.Element, tag string, cargo entity.OtherCharge) {
	node := parent.CreateElement(tag)
	writeText(node, "TipoDocumento", cargo.TipoDocumento)
	writeText(node, "NumeroDocumento", cargo.NumeroDocumento)
	writeText(node, "NombreInstitucion", cargo.NombreInstitucion)
	writeText(node, "FechaEmision", formatDatetime(cargo.FechaEmision))
	writeText(node, "MontoCargo", formatDecimal(cargo.MontoCargo))
}

func writeLocation(parent *etree.Element, loc entity.Location) {
	node := parent.CreateElement("Ubicacion")
	writeText(node, "Provincia", loc.Provincia)
	writeText(node, "Canton", loc.Canton)
	writeText(node, "Distrito", loc.Distrito)
	if loc.Barrio != "" {
		writeText(node, "Barrio", loc.Barrio)
	}
	if loc.OtrasSenas != "" {
		writeText(node, "OtrasSenas", loc.OtrasSenas)
	}
}

func writePhone(parent *etree.Element, tag string, phone entity.Phone) {
	node := parent.CreateElement(tag)
	writeText(node, "CodigoPais", phone.CodigoPais)
	writeText(node, "NumTelefono", phone.Numero)
}

func writeText(parent *etree.Element, tag, value string) {
	parent.CreateElement(tag).SetText(value)
}

// formatDecimal redondea a 5 decimales (mitad hacia arriba) y normaliza:
// shopspring elimina los ceros finales al serializar y nunca produce
// notación científica, por lo que 13.00000 se emite como "13".
func formatDecimal(d decimal.Decimal) string {
	return d.Round(decimalPlaces).String()
}

// formatDatetime serializa con precisión de segundos y zona horaria.
func formatDatetime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05-07:00")
}
