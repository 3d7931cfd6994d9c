package repository

import "github.com/josfe/facturacion-sri/internal/domain/entity"

// CompanyRepository define el puerto de persistencia para Company.
type CompanyRepository interface {
	Create(c *entity.Company) error
	Update(c *entity.Company) error
	GetByID(id string) (*entity.Company, error)
	GetByRUC(ruc string) (*entity.Company, error)
}
