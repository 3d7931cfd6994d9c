package postgres

import (
	"context"
	"fmt"

	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/queue"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

var _ repository.QueueRepository = (*QueueRepo)(nil)

// QueueRepo implementación del puerto QueueRepository sobre PostgreSQL.
type QueueRepo struct {
	q Querier
}

// NewQueueRepository construye el adaptador. Pasar pool o tx (Querier).
func NewQueueRepository(q Querier) *QueueRepo {
	return &QueueRepo{q: q}
}

const queueColumns = `
	id, company_id, customer_id, location_id,
	ref_doc_type, ref_id,
	state, clave_acceso, numero, xml_file, last_error, reject_origin,
	numero_autorizacion, fecha_autorizacion, poll_attempts,
	last_transition_at, last_transition_by,
	created_at, updated_at`

// Create persiste una nueva entrada de la cola.
func (r *QueueRepo) Create(e *entity.QueueEntry) error {
	query := `
		INSERT INTO sri_queue (` + queueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.q.Exec(context.Background(), query,
		e.ID, e.CompanyID, e.CustomerID, e.LocationID,
		string(e.RefDocType), e.RefID,
		string(e.State), e.ClaveAcceso, e.Numero, e.XMLFile, e.LastError, string(e.RejectOrigin),
		e.NumeroAutorizacion, e.FechaAutorizacion, e.PollAttempts,
		e.LastTransitionAt, e.LastTransitionBy,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: el documento ya tiene entrada en la cola", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert queue entry: %w", err)
	}
	return nil
}

// Update persiste todos los campos mutables de la entrada.
func (r *QueueRepo) Update(e *entity.QueueEntry) error {
	query := `
		UPDATE sri_queue
		SET state = $2, clave_acceso = $3, numero = $4, xml_file = $5,
		    last_error = $6, reject_origin = $7,
		    numero_autorizacion = $8, fecha_autorizacion = $9, poll_attempts = $10,
		    last_transition_at = $11, last_transition_by = $12,
		    updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query,
		e.ID, string(e.State), e.ClaveAcceso, e.Numero, e.XMLFile,
		e.LastError, string(e.RejectOrigin),
		e.NumeroAutorizacion, e.FechaAutorizacion, e.PollAttempts,
		e.LastTransitionAt, e.LastTransitionBy,
	)
	if err != nil {
		return fmt.Errorf("update queue entry: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene una entrada por ID.
func (r *QueueRepo) GetByID(id string) (*entity.QueueEntry, error) {
	query := `SELECT` + queueColumns + ` FROM sri_queue WHERE id = $1`
	e, err := scanQueueEntry(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get queue entry: %w", err)
	}
	return e, nil
}

// GetByRef devuelve la única entrada del documento origen (relación 1:1).
func (r *QueueRepo) GetByRef(docType entity.DocType, refID string) (*entity.QueueEntry, error) {
	query := `SELECT` + queueColumns + ` FROM sri_queue WHERE ref_doc_type = $1 AND ref_id = $2`
	e, err := scanQueueEntry(r.q.QueryRow(context.Background(), query, string(docType), refID))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get queue entry by ref: %w", err)
	}
	return e, nil
}

// GetByClaveAcceso obtiene una entrada por clave de acceso.
func (r *QueueRepo) GetByClaveAcceso(clave string) (*entity.QueueEntry, error) {
	query := `SELECT` + queueColumns + ` FROM sri_queue WHERE clave_acceso = $1`
	e, err := scanQueueEntry(r.q.QueryRow(context.Background(), query, clave))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get queue entry by clave: %w", err)
	}
	return e, nil
}

// ListByState lista las entradas de la empresa en un estado dado.
func (r *QueueRepo) ListByState(companyID string, state queue.State) ([]*entity.QueueEntry, error) {
	query := `
		SELECT` + queueColumns + `
		FROM sri_queue
		WHERE company_id = $1 AND state = $2
		ORDER BY created_at DESC`
	return r.list(query, companyID, string(state))
}

// ListByLocation lista las entradas del establecimiento.
func (r *QueueRepo) ListByLocation(locationID string) ([]*entity.QueueEntry, error) {
	query := `
		SELECT` + queueColumns + `
		FROM sri_queue
		WHERE location_id = $1
		ORDER BY created_at DESC`
	return r.list(query, locationID)
}

// Delete elimina la entrada. Solo permitido cuando el documento origen se
// borra antes de la autorización.
func (r *QueueRepo) Delete(id string) error {
	cmd, err := r.q.Exec(context.Background(), `DELETE FROM sri_queue WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete queue entry: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *QueueRepo) list(query string, args ...any) ([]*entity.QueueEntry, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	defer rows.Close()

	var list []*entity.QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanQueueEntry(row pgxScanner) (*entity.QueueEntry, error) {
	var e entity.QueueEntry
	var refDocType, state, rejectOrigin string
	err := row.Scan(
		&e.ID, &e.CompanyID, &e.CustomerID, &e.LocationID,
		&refDocType, &e.RefID,
		&state, &e.ClaveAcceso, &e.Numero, &e.XMLFile, &e.LastError, &rejectOrigin,
		&e.NumeroAutorizacion, &e.FechaAutorizacion, &e.PollAttempts,
		&e.LastTransitionAt, &e.LastTransitionBy,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.RefDocType = entity.DocType(refDocType)
	e.State = queue.State(state)
	e.RejectOrigin = queue.RejectionOrigin(rejectOrigin)
	return &e, nil
}
