package entity

// Identification identifica a una persona física o jurídica ante Hacienda.
type Identification struct {
	Tipo   string // 01 física, 02 jurídica, 03 DIMEX, 04 NITE
	Numero string // 9 a 20 caracteres alfanuméricos
}

// Location es la ubicación según la división territorial (provincia/cantón/distrito).
type Location struct {
	Provincia  string
	Canton     string
	Distrito   string
	Barrio     string // opcional
	OtrasSenas string // opcional
}

// Phone es un número telefónico con código de país.
type Phone struct {
	CodigoPais string
	Numero     string
}

// Emisor es el obligado tributario que emite el comprobante.
type Emisor struct {
	Nombre            string
	Identificacion    Identification
	NombreComercial   string // opcional
	Ubicacion         *Location
	Telefono          *Phone
	Fax               *Phone
	CorreoElectronico string // opcional
}

// Receptor es el destinatario del comprobante. La identificación es opcional:
// un receptor extranjero puede identificarse solo con IdentificacionExtranjero.
type Receptor struct {
	Nombre                   string
	Identificacion           *Identification
	IdentificacionExtranjero string // opcional, texto libre
	NombreComercial          string // opcional
	Ubicacion                *Location
	Telefono                 *Phone
	Fax                      *Phone
	CorreoElectronico        string // opcional
}
