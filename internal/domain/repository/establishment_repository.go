package repository

import "github.com/josfe/facturacion-sri/internal/domain/entity"

// EstablishmentRepository define el puerto de persistencia para Establishment.
type EstablishmentRepository interface {
	Create(e *entity.Establishment) error
	Update(e *entity.Establishment) error
	GetByID(id string) (*entity.Establishment, error)
	ListByCompany(companyID string) ([]*entity.Establishment, error)
}
