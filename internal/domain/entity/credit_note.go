package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNote representa una nota de crédito que modifica una factura emitida.
type CreditNote struct {
	ID         string
	CompanyID  string
	CustomerID string
	LocationID string
	Date       time.Time

	Estab       string
	PtoEmi      string
	Secuencial  string
	ClaveAcceso string

	// Documento modificado: siempre una factura ya autorizada.
	InvoiceID     string
	InvoiceNumero string    // EEE-PPP-SSSSSSSSS de la factura original
	InvoiceDate   time.Time // fecha de emisión de la factura original

	Motivo     string // razón de la modificación, va en <motivo>
	Subtotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NumeroCompleto devuelve el número legible EEE-PPP-SSSSSSSSS.
func (n *CreditNote) NumeroCompleto() string {
	return n.Estab + "-" + n.PtoEmi + "-" + n.Secuencial
}

// CreditNoteLine línea de la nota de crédito. Si ItemCode referencia una línea
// de la factura original, Quantity no puede exceder la cantidad retornable
// restante; las líneas de servicio libre no tienen ese tope.
type CreditNoteLine struct {
	ID           string
	CreditNoteID string
	ItemCode     string // vacío en líneas de servicio libre
	Description  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Subtotal     decimal.Decimal

	IVARate  decimal.Decimal
	IVAClase string
	ICERate  decimal.Decimal
}
