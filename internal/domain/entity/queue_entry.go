package entity

import (
	"time"

	"github.com/josfe/facturacion-sri/internal/domain/queue"
)

// QueueEntry registro central de la cola SRI: una fila por comprobante
// enviado. El archivo XML de trabajo vive siempre en la carpeta de etapa
// que corresponde al estado actual.
type QueueEntry struct {
	ID         string
	CompanyID  string
	CustomerID string
	LocationID string

	// Referencia al documento tributario origen.
	RefDocType DocType
	RefID      string

	State       queue.State
	ClaveAcceso string
	Numero      string // EEE-PPP-SSSSSSSSS
	XMLFile     string // ruta absoluta del único archivo XML de trabajo
	LastError   string

	// Origen del último rechazo: decide entre Rechazados y NO_AUTORIZADOS.
	RejectOrigin queue.RejectionOrigin

	// Autorización otorgada por el SRI (solo en Autorizado).
	NumeroAutorizacion string
	FechaAutorizacion  *time.Time

	PollAttempts int // intentos del poller de autorización consumidos

	LastTransitionAt time.Time
	LastTransitionBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}
