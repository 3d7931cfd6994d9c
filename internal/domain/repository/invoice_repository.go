package repository

import "github.com/josfe/facturacion-sri/internal/domain/entity"

// InvoiceRepository define el puerto de persistencia para facturas y sus líneas.
type InvoiceRepository interface {
	Create(inv *entity.Invoice) error
	CreateLine(line *entity.InvoiceLine) error
	CreatePayment(p *entity.InvoicePayment) error
	// Update actualiza la numeración y la clave de acceso asignadas al submit.
	Update(inv *entity.Invoice) error
	GetByID(id string) (*entity.Invoice, error)
	GetLines(invoiceID string) ([]*entity.InvoiceLine, error)
	GetPayments(invoiceID string) ([]*entity.InvoicePayment, error)
	// Delete elimina la factura con sus líneas y pagos; solo procede antes
	// de la autorización.
	Delete(id string) error
	// MaxSecuencial devuelve el mayor secuencial observado bajo el prefijo
	// (estab, ptoEmi); 0 si no hay facturas. Lo usa el reseed del allocator.
	MaxSecuencial(estab, ptoEmi string) (int64, error)
}
