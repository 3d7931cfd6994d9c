package repository

import "github.com/josfe/facturacion-sri/internal/domain/entity"

// EmissionPointRepository define el puerto de persistencia para los puntos de
// emisión y sus contadores. La asignación atómica de secuenciales (FOR UPDATE)
// no pasa por aquí: vive en el CounterStore del paquete numbering.
type EmissionPointRepository interface {
	Create(ep *entity.EmissionPointCounter) error
	Update(ep *entity.EmissionPointCounter) error
	GetByID(id string) (*entity.EmissionPointCounter, error)
	GetByCodes(estab, ptoEmi string) (*entity.EmissionPointCounter, error)
	// GetActiveByLocation devuelve la única fila Activa del establecimiento,
	// o domain.ErrNoActiveEmissionPoint.
	GetActiveByLocation(locationID string) (*entity.EmissionPointCounter, error)
	ListByLocation(locationID string) ([]*entity.EmissionPointCounter, error)
	// Deactivate marca Estado=Inactivo; el borrado físico está prohibido
	// mientras existan comprobantes bajo el prefijo.
	Deactivate(id string) error
}
