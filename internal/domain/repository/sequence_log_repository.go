package repository

import "github.com/josfe/facturacion-sri/internal/domain/entity"

// SequenceLogRepository puerto de la bitácora de cambios de secuenciales.
// Solo append: no hay Update ni Delete.
type SequenceLogRepository interface {
	Append(l *entity.SequenceLog) error
	ListByEmissionPoint(emissionPointID string) ([]*entity.SequenceLog, error)
}
