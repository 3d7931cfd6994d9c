package entity

import "time"

// Credential firma electrónica de la empresa: el archivo .p12 del BCE o de
// otra entidad certificadora, más el PEM extraído con el que firma xmlsec1.
// A lo sumo una activa por empresa; su Ambiente resuelve el ambiente de emisión.
type Credential struct {
	ID        string
	CompanyID string

	P12Path     string // archivo .p12 original
	P12Password string
	KeyPath     string // clave privada PEM extraída del .p12
	CertPath    string // certificado PEM extraído del .p12

	Ambiente   string // "1" pruebas | "2" producción
	Activa     bool
	ValidUntil time.Time // vencimiento del certificado

	CreatedAt time.Time
	UpdatedAt time.Time
}
