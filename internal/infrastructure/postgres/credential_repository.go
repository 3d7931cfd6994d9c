package postgres

import (
	"context"
	"fmt"

	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

var _ repository.CredentialRepository = (*CredentialRepo)(nil)

// CredentialRepo implementación del puerto CredentialRepository sobre PostgreSQL.
type CredentialRepo struct {
	q Querier
}

// NewCredentialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCredentialRepository(q Querier) *CredentialRepo {
	return &CredentialRepo{q: q}
}

const credentialColumns = `
	id, company_id, p12_path, p12_password, key_path, cert_path,
	ambiente, activa, valid_until, created_at, updated_at`

// Create persiste una nueva firma electrónica. Si llega activa, desactiva
// primero cualquier otra firma activa de la empresa: a lo sumo una activa.
func (r *CredentialRepo) Create(c *entity.Credential) error {
	ctx := context.Background()
	if c.Activa {
		if err := r.deactivateOthers(ctx, c.CompanyID, c.ID); err != nil {
			return err
		}
	}
	query := `
		INSERT INTO credentials (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.CompanyID, c.P12Path, c.P12Password, c.KeyPath, c.CertPath,
		c.Ambiente, c.Activa, c.ValidUntil, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// Update actualiza una firma existente, preservando la unicidad de la activa.
func (r *CredentialRepo) Update(c *entity.Credential) error {
	ctx := context.Background()
	if c.Activa {
		if err := r.deactivateOthers(ctx, c.CompanyID, c.ID); err != nil {
			return err
		}
	}
	query := `
		UPDATE credentials
		SET p12_path = $2, p12_password = $3, key_path = $4, cert_path = $5,
		    ambiente = $6, activa = $7, valid_until = $8, updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		c.ID, c.P12Path, c.P12Password, c.KeyPath, c.CertPath,
		c.Ambiente, c.Activa, c.ValidUntil,
	)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene una firma por ID.
func (r *CredentialRepo) GetByID(id string) (*entity.Credential, error) {
	query := `SELECT` + credentialColumns + ` FROM credentials WHERE id = $1`
	c, err := r.getOne(query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return c, nil
}

// GetActiveByCompany devuelve la única firma activa de la empresa.
func (r *CredentialRepo) GetActiveByCompany(companyID string) (*entity.Credential, error) {
	query := `
		SELECT` + credentialColumns + `
		FROM credentials WHERE company_id = $1 AND activa = true`
	c, err := r.getOne(query, companyID)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNoCredential
		}
		return nil, fmt.Errorf("get active credential: %w", err)
	}
	return c, nil
}

func (r *CredentialRepo) getOne(query string, arg any) (*entity.Credential, error) {
	var c entity.Credential
	err := r.q.QueryRow(context.Background(), query, arg).Scan(
		&c.ID, &c.CompanyID, &c.P12Path, &c.P12Password, &c.KeyPath, &c.CertPath,
		&c.Ambiente, &c.Activa, &c.ValidUntil, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CredentialRepo) deactivateOthers(ctx context.Context, companyID, exceptID string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE credentials SET activa = false, updated_at = now()
		 WHERE company_id = $1 AND activa = true AND id <> $2`,
		companyID, exceptID)
	if err != nil {
		return fmt.Errorf("deactivate credentials: %w", err)
	}
	return nil
}
