package postgres

import (
	"context"
	"fmt"

	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

var _ repository.EstablishmentRepository = (*EstablishmentRepo)(nil)

// EstablishmentRepo implementación del puerto EstablishmentRepository sobre PostgreSQL.
type EstablishmentRepo struct {
	q Querier
}

// NewEstablishmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEstablishmentRepository(q Querier) *EstablishmentRepo {
	return &EstablishmentRepo{q: q}
}

const establishmentColumns = `
	id, company_id, code, name, address, created_at, updated_at`

// Create persiste un nuevo establecimiento.
func (r *EstablishmentRepo) Create(e *entity.Establishment) error {
	query := `
		INSERT INTO establishments (` + establishmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(context.Background(), query,
		e.ID, e.CompanyID, e.Code, e.Name, e.Address, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: establecimiento %s", domain.ErrDuplicate, e.Code)
		}
		return fmt.Errorf("insert establishment: %w", err)
	}
	return nil
}

// Update actualiza un establecimiento existente.
func (r *EstablishmentRepo) Update(e *entity.Establishment) error {
	query := `
		UPDATE establishments
		SET code = $2, name = $3, address = $4, updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query, e.ID, e.Code, e.Name, e.Address)
	if err != nil {
		return fmt.Errorf("update establishment: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene un establecimiento por ID.
func (r *EstablishmentRepo) GetByID(id string) (*entity.Establishment, error) {
	query := `SELECT` + establishmentColumns + ` FROM establishments WHERE id = $1`
	var e entity.Establishment
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&e.ID, &e.CompanyID, &e.Code, &e.Name, &e.Address, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get establishment: %w", err)
	}
	return &e, nil
}

// ListByCompany lista los establecimientos de la empresa.
func (r *EstablishmentRepo) ListByCompany(companyID string) ([]*entity.Establishment, error) {
	query := `
		SELECT` + establishmentColumns + `
		FROM establishments WHERE company_id = $1 ORDER BY code`
	rows, err := r.q.Query(context.Background(), query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list establishments: %w", err)
	}
	defer rows.Close()

	var list []*entity.Establishment
	for rows.Next() {
		var e entity.Establishment
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Code, &e.Name, &e.Address,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan establishment: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
