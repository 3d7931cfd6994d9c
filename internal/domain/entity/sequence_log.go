package entity

import "time"

// SequenceLog entrada inmutable de auditoría de cambios administrativos de
// secuenciales. Solo se insertan filas; nunca se actualizan ni borran.
type SequenceLog struct {
	ID              string
	EmissionPointID string
	DocType         DocType
	OldValue        int64
	NewValue        int64
	Actor           string // user_id del operador
	Note            string // texto libre del motivo
	CreatedAt       time.Time
}
