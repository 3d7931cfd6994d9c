package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice representa la cabecera de una factura de venta.
type Invoice struct {
	ID         string
	CompanyID  string
	CustomerID string
	LocationID string // establecimiento emisor
	Date       time.Time

	// Numeración asignada por el allocator al momento del submit.
	Estab       string // 3 dígitos
	PtoEmi      string // 3 dígitos
	Secuencial  string // 9 dígitos
	ClaveAcceso string // 49 dígitos, derivada

	Subtotal   decimal.Decimal // base imponible total sin impuestos
	TaxTotal   decimal.Decimal // total de impuestos registrado en contabilidad
	Descuento  decimal.Decimal
	GrandTotal decimal.Decimal
	Propina    decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NumeroCompleto devuelve el número legible EEE-PPP-SSSSSSSSS.
func (i *Invoice) NumeroCompleto() string {
	return i.Estab + "-" + i.PtoEmi + "-" + i.Secuencial
}

// InvoiceLine una línea de detalle de la factura.
type InvoiceLine struct {
	ID          string
	InvoiceID   string
	ItemCode    string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal // monto de descuento de la línea
	Subtotal    decimal.Decimal // cantidad * precio - descuento

	IVARate  decimal.Decimal // porcentaje de IVA de la línea (0, 5, 8, 12, 13, 14, 15)
	IVAClase string          // "", "exento", "no_objeto"
	ICERate  decimal.Decimal // porcentaje de ICE; 0 si no aplica
}

// InvoicePayment una forma de pago de la factura (Tabla 24 del SRI).
type InvoicePayment struct {
	ID        string
	InvoiceID string
	FormaPago string // texto libre o código; se resuelve a código de 2 dígitos
	Total     decimal.Decimal
	Plazo     int64  // días de plazo; 0 = contado
	Unidad    string // "dias"
}
