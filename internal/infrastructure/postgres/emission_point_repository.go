package postgres

import (
	"context"
	"fmt"

	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

var _ repository.EmissionPointRepository = (*EmissionPointRepo)(nil)

// EmissionPointRepo implementación del puerto EmissionPointRepository sobre
// PostgreSQL. La asignación atómica de secuenciales no pasa por aquí: vive en
// el CounterStore.
type EmissionPointRepo struct {
	q Querier
}

// NewEmissionPointRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEmissionPointRepository(q Querier) *EmissionPointRepo {
	return &EmissionPointRepo{q: q}
}

// Create persiste un nuevo punto de emisión con sus contadores en cero.
func (r *EmissionPointRepo) Create(ep *entity.EmissionPointCounter) error {
	query := `
		INSERT INTO emission_points (
			id, establishment_id, estab, pto_emi, estado, initiated,
			sec_factura, sec_nota_credito, sec_nota_debito,
			sec_retencion, sec_liquidacion, sec_guia_remision,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(context.Background(), query,
		ep.ID, ep.EstablishmentID, ep.Estab, ep.PtoEmi, ep.Estado, ep.Initiated,
		ep.SecFactura, ep.SecNotaCredito, ep.SecNotaDebito,
		ep.SecRetencion, ep.SecLiquidacion, ep.SecGuiaRemision,
		ep.CreatedAt, ep.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: punto de emisión %s-%s", domain.ErrDuplicate, ep.Estab, ep.PtoEmi)
		}
		return fmt.Errorf("insert emission point: %w", err)
	}
	return nil
}

// Update persiste estado, bandera de inicialización y contadores.
func (r *EmissionPointRepo) Update(ep *entity.EmissionPointCounter) error {
	query := `
		UPDATE emission_points
		SET estado = $2, initiated = $3,
		    sec_factura = $4, sec_nota_credito = $5, sec_nota_debito = $6,
		    sec_retencion = $7, sec_liquidacion = $8, sec_guia_remision = $9,
		    updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query,
		ep.ID, ep.Estado, ep.Initiated,
		ep.SecFactura, ep.SecNotaCredito, ep.SecNotaDebito,
		ep.SecRetencion, ep.SecLiquidacion, ep.SecGuiaRemision,
	)
	if err != nil {
		return fmt.Errorf("update emission point: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene un punto de emisión por ID.
func (r *EmissionPointRepo) GetByID(id string) (*entity.EmissionPointCounter, error) {
	query := `
		SELECT` + counterColumns + `
		FROM emission_points WHERE id = $1`
	ep, err := scanEmissionPoint(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get emission point: %w", err)
	}
	return ep, nil
}

// GetByCodes obtiene un punto de emisión por su par (estab, ptoEmi).
func (r *EmissionPointRepo) GetByCodes(estab, ptoEmi string) (*entity.EmissionPointCounter, error) {
	query := `
		SELECT` + counterColumns + `
		FROM emission_points WHERE estab = $1 AND pto_emi = $2`
	ep, err := scanEmissionPoint(r.q.QueryRow(context.Background(), query, estab, ptoEmi))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get emission point by codes: %w", err)
	}
	return ep, nil
}

// GetActiveByLocation devuelve la única fila Activa del establecimiento.
func (r *EmissionPointRepo) GetActiveByLocation(locationID string) (*entity.EmissionPointCounter, error) {
	query := `
		SELECT` + counterColumns + `
		FROM emission_points
		WHERE establishment_id = $1 AND estado = 'Activo'`
	ep, err := scanEmissionPoint(r.q.QueryRow(context.Background(), query, locationID))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNoActiveEmissionPoint
		}
		return nil, fmt.Errorf("get active emission point: %w", err)
	}
	return ep, nil
}

// ListByLocation lista todos los puntos de emisión del establecimiento.
func (r *EmissionPointRepo) ListByLocation(locationID string) ([]*entity.EmissionPointCounter, error) {
	query := `
		SELECT` + counterColumns + `
		FROM emission_points
		WHERE establishment_id = $1
		ORDER BY estab, pto_emi`
	rows, err := r.q.Query(context.Background(), query, locationID)
	if err != nil {
		return nil, fmt.Errorf("list emission points: %w", err)
	}
	defer rows.Close()

	var list []*entity.EmissionPointCounter
	for rows.Next() {
		ep, err := scanEmissionPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emission point: %w", err)
		}
		list = append(list, ep)
	}
	return list, rows.Err()
}

// Deactivate marca la fila como Inactiva. El borrado físico está prohibido
// mientras existan comprobantes bajo el prefijo.
func (r *EmissionPointRepo) Deactivate(id string) error {
	cmd, err := r.q.Exec(context.Background(),
		`UPDATE emission_points SET estado = 'Inactivo', updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate emission point: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
