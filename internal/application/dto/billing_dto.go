package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceLineRequest línea de detalle para POST /api/invoices.
type InvoiceLineRequest struct {
	ItemCode    string          `json:"item_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	IVARate     decimal.Decimal `json:"iva_rate"`
	IVAClase    string          `json:"iva_clase,omitempty"` // "", "exento", "no_objeto"
	ICERate     decimal.Decimal `json:"ice_rate"`
}

// PaymentRequest forma de pago (Tabla 24 SRI) para POST /api/invoices.
type PaymentRequest struct {
	FormaPago string          `json:"forma_pago"` // código o "01 - Efectivo"
	Total     decimal.Decimal `json:"total"`
	Plazo     int64           `json:"plazo,omitempty"`
	Unidad    string          `json:"unidad,omitempty"` // "dias"
}

// CreateInvoiceRequest body para POST /api/invoices. Los totales vienen del
// documento contable; el constructor del XML los reconcilia contra los
// impuestos calculados por línea.
type CreateInvoiceRequest struct {
	CustomerID string               `json:"customer_id"`
	LocationID string               `json:"location_id"`
	Date       time.Time            `json:"date"`
	Subtotal   decimal.Decimal      `json:"subtotal"`
	TaxTotal   decimal.Decimal      `json:"tax_total"`
	Descuento  decimal.Decimal      `json:"descuento"`
	GrandTotal decimal.Decimal      `json:"grand_total"`
	Propina    decimal.Decimal      `json:"propina"`
	Lines      []InvoiceLineRequest `json:"lines"`
	Payments   []PaymentRequest     `json:"payments"`
}

// InvoiceLineResponse línea en respuestas.
type InvoiceLineResponse struct {
	ID          string          `json:"id"`
	ItemCode    string          `json:"item_code,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	IVARate     decimal.Decimal `json:"iva_rate"`
	IVAClase    string          `json:"iva_clase,omitempty"`
	ICERate     decimal.Decimal `json:"ice_rate"`
}

// PaymentResponse forma de pago en respuestas.
type PaymentResponse struct {
	ID        string          `json:"id"`
	FormaPago string          `json:"forma_pago"`
	Total     decimal.Decimal `json:"total"`
	Plazo     int64           `json:"plazo,omitempty"`
	Unidad    string          `json:"unidad,omitempty"`
}

// InvoiceResponse factura con detalle y, si existe, su estado en la cola SRI.
type InvoiceResponse struct {
	ID          string                `json:"id"`
	CompanyID   string                `json:"company_id"`
	CustomerID  string                `json:"customer_id"`
	LocationID  string                `json:"location_id"`
	Date        time.Time             `json:"date"`
	Numero      string                `json:"numero,omitempty"` // EEE-PPP-SSSSSSSSS
	ClaveAcceso string                `json:"clave_acceso,omitempty"`
	Subtotal    decimal.Decimal       `json:"subtotal"`
	TaxTotal    decimal.Decimal       `json:"tax_total"`
	Descuento   decimal.Decimal       `json:"descuento"`
	GrandTotal  decimal.Decimal       `json:"grand_total"`
	Propina     decimal.Decimal       `json:"propina"`
	Lines       []InvoiceLineResponse `json:"lines"`
	Payments    []PaymentResponse     `json:"payments"`
	Queue       *QueueEntryResponse   `json:"queue,omitempty"`
}

// CreditNoteLineRequest línea para POST /api/credit-notes. ItemCode vacío =
// línea de servicio libre, sin tope de cantidad retornable.
type CreditNoteLineRequest struct {
	ItemCode    string          `json:"item_code,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	IVARate     decimal.Decimal `json:"iva_rate"`
	IVAClase    string          `json:"iva_clase,omitempty"`
	ICERate     decimal.Decimal `json:"ice_rate"`
}

// CreateCreditNoteRequest body para POST /api/credit-notes. Siempre modifica
// una factura ya emitida.
type CreateCreditNoteRequest struct {
	InvoiceID  string                  `json:"invoice_id"`
	LocationID string                  `json:"location_id"`
	Date       time.Time               `json:"date"`
	Motivo     string                  `json:"motivo,omitempty"`
	Subtotal   decimal.Decimal         `json:"subtotal"`
	TaxTotal   decimal.Decimal         `json:"tax_total"`
	GrandTotal decimal.Decimal         `json:"grand_total"`
	Lines      []CreditNoteLineRequest `json:"lines"`
}

// CreditNoteResponse nota de crédito con detalle y estado en cola.
type CreditNoteResponse struct {
	ID            string                `json:"id"`
	CompanyID     string                `json:"company_id"`
	CustomerID    string                `json:"customer_id"`
	LocationID    string                `json:"location_id"`
	Date          time.Time             `json:"date"`
	Numero        string                `json:"numero,omitempty"`
	ClaveAcceso   string                `json:"clave_acceso,omitempty"`
	InvoiceID     string                `json:"invoice_id"`
	InvoiceNumero string                `json:"invoice_numero"`
	Motivo        string                `json:"motivo"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	TaxTotal      decimal.Decimal       `json:"tax_total"`
	GrandTotal    decimal.Decimal       `json:"grand_total"`
	Lines         []InvoiceLineResponse `json:"lines"`
	Queue         *QueueEntryResponse   `json:"queue,omitempty"`
}
