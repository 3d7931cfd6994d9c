package dto

import "time"

// InitiateSeriesRequest body para POST /api/series/initiate: fija
// administrativamente el contador de un tipo de comprobante.
type InitiateSeriesRequest struct {
	LocationID string `json:"location_id"`
	DocType    string `json:"doc_type"` // factura, nota_credito, ...
	Value      int64  `json:"value"`
	Note       string `json:"note,omitempty"`
}

// ReseedSeriesRequest body para POST /api/series/reseed: recalcula el
// contador tras la remoción excepcional de un comprobante.
type ReseedSeriesRequest struct {
	LocationID string `json:"location_id"`
	DocType    string `json:"doc_type"`
	Note       string `json:"note,omitempty"`
}

// ReseedSeriesResponse resultado del reseed. NoDocuments advierte que no
// había comprobantes bajo el prefijo y se asumió secuencial 1.
type ReseedSeriesResponse struct {
	Next        int64 `json:"next"`
	NoDocuments bool  `json:"no_documents"`
}

// SeriesPeekResponse próximos secuenciales del punto de emisión activo.
type SeriesPeekResponse struct {
	EmissionPointID string           `json:"emission_point_id"`
	Estab           string           `json:"estab"`
	PtoEmi          string           `json:"pto_emi"`
	Initiated       bool             `json:"initiated"`
	Next            map[string]int64 `json:"next"` // doc_type → próximo secuencial
}

// SequenceLogResponse entrada de la bitácora de secuenciales.
type SequenceLogResponse struct {
	ID              string    `json:"id"`
	EmissionPointID string    `json:"emission_point_id"`
	DocType         string    `json:"doc_type"`
	OldValue        int64     `json:"old_value"`
	NewValue        int64     `json:"new_value"`
	Actor           string    `json:"actor"`
	Note            string    `json:"note,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateEmissionPointRequest body para POST /api/series/emission-points.
type CreateEmissionPointRequest struct {
	LocationID string `json:"location_id"`
	Estab      string `json:"estab"`   // 3 dígitos
	PtoEmi     string `json:"pto_emi"` // 3 dígitos
}

// EmissionPointResponse punto de emisión con sus contadores.
type EmissionPointResponse struct {
	ID         string           `json:"id"`
	LocationID string           `json:"location_id"`
	Estab      string           `json:"estab"`
	PtoEmi     string           `json:"pto_emi"`
	Estado     string           `json:"estado"`
	Initiated  bool             `json:"initiated"`
	Counters   map[string]int64 `json:"counters"`
	CreatedAt  time.Time        `json:"created_at"`
}
