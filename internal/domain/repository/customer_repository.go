package repository

import "github.com/josfe/facturacion-sri/internal/domain/entity"

// CustomerRepository define el puerto de persistencia para Customer.
type CustomerRepository interface {
	Create(c *entity.Customer) error
	Update(c *entity.Customer) error
	GetByID(id string) (*entity.Customer, error)
	ListByCompany(companyID string) ([]*entity.Customer, error)
}
