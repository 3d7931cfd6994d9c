package repository

import (
	"github.com/shopspring/decimal"

	"github.com/josfe/facturacion-sri/internal/domain/entity"
)

// CreditNoteRepository define el puerto de persistencia para notas de crédito.
type CreditNoteRepository interface {
	Create(nc *entity.CreditNote) error
	CreateLine(line *entity.CreditNoteLine) error
	Update(nc *entity.CreditNote) error
	GetByID(id string) (*entity.CreditNote, error)
	GetLines(creditNoteID string) ([]*entity.CreditNoteLine, error)
	// ReturnedQuantity suma lo ya devuelto de un ítem de la factura en otras
	// notas de crédito; protege el tope de cantidad retornable.
	ReturnedQuantity(invoiceID, itemCode string) (decimal.Decimal, error)
	// Delete elimina la nota de crédito con sus líneas; solo procede antes
	// de la autorización.
	Delete(id string) error
	MaxSecuencial(estab, ptoEmi string) (int64, error)
}
