package entity

import "time"

// Customer representa un cliente de la empresa (comprador del comprobante).
type Customer struct {
	ID        string
	CompanyID string
	Name      string
	TaxID     string // RUC (13), cédula (10) o pasaporte
	Address   string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
