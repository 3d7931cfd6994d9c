package postgres

import (
	"context"
	"fmt"

	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

var _ repository.SequenceLogRepository = (*SequenceLogRepo)(nil)

// SequenceLogRepo bitácora inmutable de cambios administrativos de
// secuenciales. Solo inserta; no hay Update ni Delete.
type SequenceLogRepo struct {
	q Querier
}

// NewSequenceLogRepository construye el adaptador. Pasar pool o tx (Querier);
// el CounterStore lo ata a la transacción del contador.
func NewSequenceLogRepository(q Querier) *SequenceLogRepo {
	return &SequenceLogRepo{q: q}
}

// Append registra una entrada de bitácora.
func (r *SequenceLogRepo) Append(l *entity.SequenceLog) error {
	query := `
		INSERT INTO sequence_logs (id, emission_point_id, doc_type, old_value, new_value, actor, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(context.Background(), query,
		l.ID, l.EmissionPointID, string(l.DocType), l.OldValue, l.NewValue,
		l.Actor, l.Note, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sequence log: %w", err)
	}
	return nil
}

// ListByEmissionPoint lista la bitácora del punto de emisión, más reciente primero.
func (r *SequenceLogRepo) ListByEmissionPoint(emissionPointID string) ([]*entity.SequenceLog, error) {
	query := `
		SELECT id, emission_point_id, doc_type, old_value, new_value, actor, note, created_at
		FROM sequence_logs
		WHERE emission_point_id = $1
		ORDER BY created_at DESC`
	rows, err := r.q.Query(context.Background(), query, emissionPointID)
	if err != nil {
		return nil, fmt.Errorf("list sequence logs: %w", err)
	}
	defer rows.Close()

	var list []*entity.SequenceLog
	for rows.Next() {
		var l entity.SequenceLog
		var dt string
		if err := rows.Scan(&l.ID, &l.EmissionPointID, &dt, &l.OldValue, &l.NewValue,
			&l.Actor, &l.Note, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sequence log: %w", err)
		}
		l.DocType = entity.DocType(dt)
		list = append(list, &l)
	}
	return list, rows.Err()
}
