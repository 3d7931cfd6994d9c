package entity

import "time"

// Establishment representa un establecimiento (sucursal/bodega) de la empresa.
// Su código de 3 dígitos es el primer segmento del número de comprobante.
type Establishment struct {
	ID        string
	CompanyID string
	Code      string // 3 dígitos, ej. "001"
	Name      string
	Address   string // dirección del establecimiento en el XML (dirEstablecimiento)
	CreatedAt time.Time
	UpdatedAt time.Time
}
