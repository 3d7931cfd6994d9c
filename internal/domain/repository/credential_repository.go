package repository

import "github.com/josfe/facturacion-sri/internal/domain/entity"

// CredentialRepository define el puerto de persistencia para las firmas
// electrónicas de las empresas.
type CredentialRepository interface {
	Create(c *entity.Credential) error
	Update(c *entity.Credential) error
	GetByID(id string) (*entity.Credential, error)
	// GetActiveByCompany devuelve la única firma activa de la empresa, o
	// domain.ErrNoCredential.
	GetActiveByCompany(companyID string) (*entity.Credential, error)
}
