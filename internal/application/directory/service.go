// Package directory administra el catálogo base del tenant: empresa,
// clientes y establecimientos.
package directory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josfe/facturacion-sri/internal/application/dto"
	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

// Service casos de uso del catálogo.
type Service struct {
	companyRepo  repository.CompanyRepository
	customerRepo repository.CustomerRepository
	estabRepo    repository.EstablishmentRepository
}

// NewService construye el servicio de catálogo.
func NewService(
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
	estabRepo repository.EstablishmentRepository,
) *Service {
	return &Service{companyRepo: companyRepo, customerRepo: customerRepo, estabRepo: estabRepo}
}

// CreateCompany registra una empresa emisora. El RUC ecuatoriano tiene 13
// dígitos y la dirección matriz es obligatoria en todo comprobante.
func (s *Service) CreateCompany(in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if in.RazonSocial == "" || in.DirMatriz == "" {
		return nil, fmt.Errorf("%w: razon_social y dir_matriz son requeridos", domain.ErrInvalidInput)
	}
	if len(in.RUC) != 13 {
		return nil, fmt.Errorf("%w: el RUC debe tener 13 dígitos", domain.ErrInvalidInput)
	}
	now := time.Now()
	c := &entity.Company{
		ID:                    uuid.New().String(),
		RazonSocial:           in.RazonSocial,
		NombreComercial:       in.NombreComercial,
		RUC:                   in.RUC,
		DirMatriz:             in.DirMatriz,
		ObligadoContabilidad:  in.ObligadoContabilidad,
		ContribuyenteEspecial: in.ContribuyenteEspecial,
		Email:                 in.Email,
		Phone:                 in.Phone,
		Status:                "active",
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.companyRepo.Create(c); err != nil {
		return nil, err
	}
	return toCompanyResponse(c), nil
}

// GetCompany devuelve la empresa por ID.
func (s *Service) GetCompany(id string) (*dto.CompanyResponse, error) {
	c, err := s.companyRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return toCompanyResponse(c), nil
}

// CreateCustomer registra un cliente de la empresa.
func (s *Service) CreateCustomer(companyID string, in dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if in.Name == "" || in.TaxID == "" {
		return nil, fmt.Errorf("%w: name y tax_id son requeridos", domain.ErrInvalidInput)
	}
	now := time.Now()
	c := &entity.Customer{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      in.Name,
		TaxID:     in.TaxID,
		Address:   in.Address,
		Email:     in.Email,
		Phone:     in.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.customerRepo.Create(c); err != nil {
		return nil, err
	}
	return toCustomerResponse(c), nil
}

// ListCustomers lista los clientes de la empresa.
func (s *Service) ListCustomers(companyID string) ([]*dto.CustomerResponse, error) {
	list, err := s.customerRepo.ListByCompany(companyID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CustomerResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCustomerResponse(c))
	}
	return out, nil
}

// CreateEstablishment registra un establecimiento (código de 3 dígitos).
func (s *Service) CreateEstablishment(companyID string, in dto.CreateEstablishmentRequest) (*dto.EstablishmentResponse, error) {
	if len(in.Code) != 3 {
		return nil, fmt.Errorf("%w: el código del establecimiento debe tener 3 dígitos", domain.ErrInvalidInput)
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name es requerido", domain.ErrInvalidInput)
	}
	now := time.Now()
	e := &entity.Establishment{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Code:      in.Code,
		Name:      in.Name,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.estabRepo.Create(e); err != nil {
		return nil, err
	}
	return toEstablishmentResponse(e), nil
}

// ListEstablishments lista los establecimientos de la empresa.
func (s *Service) ListEstablishments(companyID string) ([]*dto.EstablishmentResponse, error) {
	list, err := s.estabRepo.ListByCompany(companyID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.EstablishmentResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEstablishmentResponse(e))
	}
	return out, nil
}

func toCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:                    c.ID,
		RazonSocial:           c.RazonSocial,
		NombreComercial:       c.NombreComercial,
		RUC:                   c.RUC,
		DirMatriz:             c.DirMatriz,
		ObligadoContabilidad:  c.ObligadoContabilidad,
		ContribuyenteEspecial: c.ContribuyenteEspecial,
		Email:                 c.Email,
		Phone:                 c.Phone,
		Status:                c.Status,
		CreatedAt:             c.CreatedAt,
	}
}

func toCustomerResponse(c *entity.Customer) *dto.CustomerResponse {
	return &dto.CustomerResponse{
		ID:        c.ID,
		CompanyID: c.CompanyID,
		Name:      c.Name,
		TaxID:     c.TaxID,
		Address:   c.Address,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

func toEstablishmentResponse(e *entity.Establishment) *dto.EstablishmentResponse {
	return &dto.EstablishmentResponse{
		ID:        e.ID,
		CompanyID: e.CompanyID,
		Code:      e.Code,
		Name:      e.Name,
		Address:   e.Address,
		CreatedAt: e.CreatedAt,
	}
}
