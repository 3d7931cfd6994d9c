package postgres

import (
	"context"
	"fmt"

	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

const companyColumns = `
	id, razon_social, nombre_comercial, ruc, dir_matriz,
	obligado_contabilidad, contribuyente_especial,
	email, phone, status, created_at, updated_at`

// Create persiste una nueva empresa.
func (r *CompanyRepo) Create(c *entity.Company) error {
	query := `
		INSERT INTO companies (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(context.Background(), query,
		c.ID, c.RazonSocial, c.NombreComercial, c.RUC, c.DirMatriz,
		c.ObligadoContabilidad, c.ContribuyenteEspecial,
		c.Email, c.Phone, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: RUC %s", domain.ErrDuplicate, c.RUC)
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// Update actualiza una empresa existente.
func (r *CompanyRepo) Update(c *entity.Company) error {
	query := `
		UPDATE companies
		SET razon_social = $2, nombre_comercial = $3, ruc = $4, dir_matriz = $5,
		    obligado_contabilidad = $6, contribuyente_especial = $7,
		    email = $8, phone = $9, status = $10, updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query,
		c.ID, c.RazonSocial, c.NombreComercial, c.RUC, c.DirMatriz,
		c.ObligadoContabilidad, c.ContribuyenteEspecial,
		c.Email, c.Phone, c.Status,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene una empresa por ID.
func (r *CompanyRepo) GetByID(id string) (*entity.Company, error) {
	query := `SELECT` + companyColumns + ` FROM companies WHERE id = $1`
	return r.getOne(query, id)
}

// GetByRUC obtiene una empresa por RUC.
func (r *CompanyRepo) GetByRUC(ruc string) (*entity.Company, error) {
	query := `SELECT` + companyColumns + ` FROM companies WHERE ruc = $1`
	return r.getOne(query, ruc)
}

func (r *CompanyRepo) getOne(query string, arg any) (*entity.Company, error) {
	var c entity.Company
	err := r.q.QueryRow(context.Background(), query, arg).Scan(
		&c.ID, &c.RazonSocial, &c.NombreComercial, &c.RUC, &c.DirMatriz,
		&c.ObligadoContabilidad, &c.ContribuyenteEspecial,
		&c.Email, &c.Phone, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}
