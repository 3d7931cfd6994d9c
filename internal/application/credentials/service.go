// Package credentials administra las firmas electrónicas de las empresas:
// recibe el .p12 del BCE (u otra certificadora), extrae el par PEM que
// consume xmlsec1 y mantiene a lo sumo una firma activa por empresa.
package credentials

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josfe/facturacion-sri/internal/application/dto"
	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

// Converter puerto de conversión .p12 → PEM. La implementación real decodifica
// PKCS#12 y escribe llave y certificado bajo el área de firmas.
type Converter interface {
	Convert(p12Path, password, companyID string) (keyPath, certPath string, notAfter time.Time, err error)
}

// Service casos de uso de firmas electrónicas.
type Service struct {
	credRepo  repository.CredentialRepository
	converter Converter
}

// NewService construye el servicio de credenciales.
func NewService(credRepo repository.CredentialRepository, converter Converter) *Service {
	return &Service{credRepo: credRepo, converter: converter}
}

// Upload registra la firma .p12 de la empresa: la convierte a PEM, valida el
// vencimiento del certificado y la activa (desactivando cualquier otra).
func (s *Service) Upload(companyID string, in dto.UploadCredentialRequest) (*dto.CredentialResponse, error) {
	if in.P12Path == "" || in.P12Password == "" {
		return nil, fmt.Errorf("%w: p12_path y p12_password son requeridos", domain.ErrInvalidInput)
	}
	if in.Ambiente != "1" && in.Ambiente != "2" {
		return nil, fmt.Errorf("%w: ambiente debe ser \"1\" (pruebas) o \"2\" (producción)", domain.ErrInvalidInput)
	}

	keyPath, certPath, notAfter, err := s.converter.Convert(in.P12Path, in.P12Password, companyID)
	if err != nil {
		return nil, err
	}
	if notAfter.Before(time.Now()) {
		return nil, fmt.Errorf("%w: el certificado venció el %s", domain.ErrInvalidInput, notAfter.Format("2006-01-02"))
	}

	now := time.Now()
	cred := &entity.Credential{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		P12Path:     in.P12Path,
		P12Password: in.P12Password,
		KeyPath:     keyPath,
		CertPath:    certPath,
		Ambiente:    in.Ambiente,
		Activa:      true,
		ValidUntil:  notAfter,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.credRepo.Create(cred); err != nil {
		return nil, err
	}
	return toCredentialResponse(cred), nil
}

// GetActive devuelve la firma activa de la empresa.
func (s *Service) GetActive(companyID string) (*dto.CredentialResponse, error) {
	cred, err := s.credRepo.GetActiveByCompany(companyID)
	if err != nil {
		return nil, err
	}
	return toCredentialResponse(cred), nil
}

func toCredentialResponse(c *entity.Credential) *dto.CredentialResponse {
	return &dto.CredentialResponse{
		ID:         c.ID,
		CompanyID:  c.CompanyID,
		Ambiente:   c.Ambiente,
		Activa:     c.Activa,
		ValidUntil: c.ValidUntil,
		CreatedAt:  c.CreatedAt,
	}
}
