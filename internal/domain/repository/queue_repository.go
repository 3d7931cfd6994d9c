package repository

import (
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/queue"
)

// QueueRepository define el puerto de persistencia para las entradas de la cola.
type QueueRepository interface {
	Create(e *entity.QueueEntry) error
	// Update persiste todos los campos mutables: state, xml_file, last_error,
	// reject_origin, autorización, poll_attempts y auditoría de transición.
	Update(e *entity.QueueEntry) error
	GetByID(id string) (*entity.QueueEntry, error)
	// GetByRef devuelve la única entrada del documento origen (1:1).
	GetByRef(docType entity.DocType, refID string) (*entity.QueueEntry, error)
	GetByClaveAcceso(clave string) (*entity.QueueEntry, error)
	ListByState(companyID string, state queue.State) ([]*entity.QueueEntry, error)
	ListByLocation(locationID string) ([]*entity.QueueEntry, error)
	// Delete elimina la entrada; solo permitido cuando el documento origen se
	// borra antes de la autorización.
	Delete(id string) error
}
