package dto

import "time"

// QueueEntryResponse entrada de la cola SRI en respuestas.
type QueueEntryResponse struct {
	ID                 string     `json:"id"`
	CompanyID          string     `json:"company_id"`
	LocationID         string     `json:"location_id"`
	RefDocType         string     `json:"ref_doc_type"`
	RefID              string     `json:"ref_id"`
	State              string     `json:"state"`
	ClaveAcceso        string     `json:"clave_acceso,omitempty"`
	Numero             string     `json:"numero,omitempty"`
	LastError          string     `json:"last_error,omitempty"`
	RejectOrigin       string     `json:"reject_origin,omitempty"`
	NumeroAutorizacion string     `json:"numero_autorizacion,omitempty"`
	FechaAutorizacion  *time.Time `json:"fecha_autorizacion,omitempty"`
	PollAttempts       int        `json:"poll_attempts"`
	LastTransitionAt   time.Time  `json:"last_transition_at"`
	LastTransitionBy   string     `json:"last_transition_by,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// TransitionRequest body para POST /api/queue/:id/transition.
type TransitionRequest struct {
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// TransitionsResponse estados alcanzables desde el estado actual.
type TransitionsResponse struct {
	State   string   `json:"state"`
	Allowed []string `json:"allowed"`
}

// QueueXMLResponse vista previa del XML de trabajo de una entrada.
type QueueXMLResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
	XML   string `json:"xml"`
}
