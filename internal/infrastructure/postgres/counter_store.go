package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josfe/facturacion-sri/internal/application/numbering"
	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

var _ numbering.CounterStore = (*CounterStore)(nil)

// CounterStore acceso atómico a la fila de contadores del punto de emisión
// activo. MutateLocked abre una transacción, bloquea la fila con
// SELECT ... FOR UPDATE y persiste la mutación antes del commit; la bitácora
// de secuenciales que recibe el callback queda atada a la misma transacción.
type CounterStore struct {
	pool *pgxpool.Pool
}

// NewCounterStore construye el adaptador sobre el pool.
func NewCounterStore(pool *pgxpool.Pool) *CounterStore {
	return &CounterStore{pool: pool}
}

const counterColumns = `
	id, establishment_id, estab, pto_emi, estado, initiated,
	sec_factura, sec_nota_credito, sec_nota_debito,
	sec_retencion, sec_liquidacion, sec_guia_remision,
	created_at, updated_at`

// MutateLocked carga la fila Activa de la ubicación bajo bloqueo de fila,
// aplica fn y persiste los seis contadores. La contención de bloqueo se
// traduce a numbering.ErrLockContention para que el allocator reintente.
func (s *CounterStore) MutateLocked(ctx context.Context, locationID string,
	fn func(ep *entity.EmissionPointCounter, logs repository.SequenceLogRepository) error) error {

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
		SELECT` + counterColumns + `
		FROM emission_points
		WHERE establishment_id = $1 AND estado = 'Activo'
		FOR UPDATE NOWAIT`
	ep, err := scanEmissionPoint(tx.QueryRow(ctx, q, locationID))
	if err != nil {
		if isNoRows(err) {
			return domain.ErrNoActiveEmissionPoint
		}
		if isLockContention(err) {
			return fmt.Errorf("%w: %v", numbering.ErrLockContention, err)
		}
		return fmt.Errorf("lock emission point: %w", err)
	}

	if err := fn(ep, NewSequenceLogRepository(tx)); err != nil {
		return err
	}

	const upd = `
		UPDATE emission_points
		SET initiated = $2,
		    sec_factura = $3, sec_nota_credito = $4, sec_nota_debito = $5,
		    sec_retencion = $6, sec_liquidacion = $7, sec_guia_remision = $8,
		    updated_at = now()
		WHERE id = $1`
	if _, err := tx.Exec(ctx, upd,
		ep.ID, ep.Initiated,
		ep.SecFactura, ep.SecNotaCredito, ep.SecNotaDebito,
		ep.SecRetencion, ep.SecLiquidacion, ep.SecGuiaRemision,
	); err != nil {
		if isLockContention(err) {
			return fmt.Errorf("%w: %v", numbering.ErrLockContention, err)
		}
		return fmt.Errorf("update counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isLockContention(err) {
			return fmt.Errorf("%w: %v", numbering.ErrLockContention, err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Peek carga la fila Activa sin bloqueo, solo para previsualización.
func (s *CounterStore) Peek(ctx context.Context, locationID string) (*entity.EmissionPointCounter, error) {
	q := `
		SELECT` + counterColumns + `
		FROM emission_points
		WHERE establishment_id = $1 AND estado = 'Activo'`
	ep, err := scanEmissionPoint(s.pool.QueryRow(ctx, q, locationID))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNoActiveEmissionPoint
		}
		return nil, fmt.Errorf("peek emission point: %w", err)
	}
	return ep, nil
}

func scanEmissionPoint(row pgxScanner) (*entity.EmissionPointCounter, error) {
	var ep entity.EmissionPointCounter
	err := row.Scan(
		&ep.ID, &ep.EstablishmentID, &ep.Estab, &ep.PtoEmi, &ep.Estado, &ep.Initiated,
		&ep.SecFactura, &ep.SecNotaCredito, &ep.SecNotaDebito,
		&ep.SecRetencion, &ep.SecLiquidacion, &ep.SecGuiaRemision,
		&ep.CreatedAt, &ep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}
