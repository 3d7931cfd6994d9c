// Package sri orquesta el ciclo de vida del comprobante electrónico:
//
//	submit → Generado → Firmado → Enviado → {Autorizado | Devuelto}
//
// con reintentos programados para el caso "procesando" del SRI. La lógica pura
// (clave de acceso, catálogos) vive en pkg/sri; los adaptadores (SOAP, firma,
// etree, disco, Postgres) en internal/infrastructure.
package sri

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/queue"
)

// ── Transmisión SOAP ──────────────────────────────────────────────────────────

// Estados de Recepción y Autorización devueltos por los WS del SRI.
const (
	EstadoRecibida     = "RECIBIDA"
	EstadoDevuelta     = "DEVUELTA"
	EstadoAutorizado   = "AUTORIZADO"
	EstadoNoAutorizado = "NO AUTORIZADO"
	EstadoRechazado    = "RECHAZADO"
	EstadoPPR          = "PPR" // procesamiento pendiente de respuesta
)

// MensajeIDClaveRegistrada identificador del mensaje "CLAVE ACCESO REGISTRADA":
// una DEVUELTA que lo porta significa que el comprobante ya fue recibido en un
// intento anterior y se debe pasar directo a consultar Autorización.
const MensajeIDClaveRegistrada = "43"

// Mensaje detalle informativo o de error devuelto por el SRI.
type Mensaje struct {
	Identificador        string
	Mensaje              string
	InformacionAdicional string
	Tipo                 string
}

// ReceptionResult respuesta del WS de Recepción (validarComprobante).
type ReceptionResult struct {
	Estado   string // RECIBIDA | DEVUELTA
	Mensajes []Mensaje
	// Wrapper es el XML compacto <respuestaRecepcion> de auditoría; solo se
	// arma cuando la Recepción devolvió el comprobante.
	Wrapper string
}

// ClaveYaRegistrada reporta si la DEVUELTA porta el mensaje id 43.
func (r *ReceptionResult) ClaveYaRegistrada() bool {
	for _, m := range r.Mensajes {
		if m.Identificador == MensajeIDClaveRegistrada {
			return true
		}
	}
	return false
}

// AuthResult respuesta del WS de Autorización (autorizacionComprobante).
// Un Estado vacío significa que el SRI aún no tiene respuesta.
type AuthResult struct {
	Estado             string
	NumeroAutorizacion string
	FechaAutorizacion  *time.Time
	XMLAutorizado      string // comprobante envuelto en <autorizacion>; vacío si no autorizado
	Mensajes           []Mensaje
	// Wrapper es el XML compacto <autorizacion> de auditoría; se arma siempre
	// que el SRI devolvió un ítem de autorización, también en los rechazos.
	Wrapper string
}

// Transmitter puerto del cliente SOAP de dos fases del SRI.
// Los timeouts y faults de transporte se devuelven como error; el caller debe
// tratarlos como "procesando", nunca como rechazo de la autoridad.
type Transmitter interface {
	Submit(ctx context.Context, xml []byte, ambiente string) (*ReceptionResult, error)
	QueryAuthorization(ctx context.Context, claveAcceso, ambiente string) (*AuthResult, error)
}

// ── Firma ─────────────────────────────────────────────────────────────────────

// Signer puerto del firmador XAdES-BES. Recibe el XML sin firmar y las rutas
// en disco de la clave privada y el certificado PEM.
type Signer interface {
	Sign(ctx context.Context, xml []byte, keyPath, certPath string) ([]byte, error)
}

// ── Archivos de etapa ─────────────────────────────────────────────────────────

// Stager puerto del área de trabajo en disco: las carpetas de etapa espejan el
// estado de la cola y cada comprobante tiene exactamente un archivo XML.
type Stager interface {
	// WriteNew escribe el XML de un comprobante nuevo en la carpeta de la
	// etapa y devuelve la ruta absoluta.
	WriteNew(state queue.State, origin queue.RejectionOrigin, filename string, data []byte) (string, error)
	// Move reubica el archivo a la carpeta de la etapa destino; devuelve la
	// nueva ruta. Falla alto si el archivo no existe.
	Move(fromPath string, to queue.State, origin queue.RejectionOrigin) (string, error)
	// Replace escribe contenido nuevo en la carpeta de la etapa destino sin
	// tocar el archivo original (firma: mismo comprobante, bytes nuevos). El
	// caller elimina el original con Remove cuando el estado quedó persistido.
	Replace(fromPath string, to queue.State, origin queue.RejectionOrigin, data []byte) (string, error)
	// Read carga el contenido del archivo de trabajo. Falla alto si no existe.
	Read(path string) ([]byte, error)
	// Remove elimina un archivo de etapa (limpieza tras Replace persistido).
	Remove(path string) error
}

// ── Construcción de XML ───────────────────────────────────────────────────────

// InvoiceBuildContext datos resueltos para construir el XML de una factura.
type InvoiceBuildContext struct {
	Invoice       *entity.Invoice
	Lines         []*entity.InvoiceLine
	Payments      []*entity.InvoicePayment
	Company       *entity.Company
	Customer      *entity.Customer
	Establishment *entity.Establishment
	Ambiente      string // "1" | "2", ya resuelto por el orquestador
}

// CreditNoteBuildContext datos resueltos para construir el XML de una nota de
// crédito, incluida la factura original que modifica.
type CreditNoteBuildContext struct {
	CreditNote    *entity.CreditNote
	Lines         []*entity.CreditNoteLine
	Company       *entity.Company
	Customer      *entity.Customer
	Establishment *entity.Establishment
	Ambiente      string

	// InvoiceLines son las líneas de la factura modificada; contra ellas se
	// tope la cantidad retornable de las devoluciones por ítem.
	InvoiceLines []*entity.InvoiceLine
	// Returned acumula por código de ítem lo ya devuelto en otras notas de
	// crédito de la misma factura.
	Returned map[string]decimal.Decimal
}

// BuildResult XML construido más los metadatos que el caller persiste.
type BuildResult struct {
	XML         []byte
	ClaveAcceso string
	Estab       string
	PtoEmi      string
	Secuencial  string
	Total       decimal.Decimal
}

// Builder puerto del constructor de XML de comprobantes.
type Builder interface {
	BuildInvoice(bc *InvoiceBuildContext) (*BuildResult, error)
	BuildCreditNote(bc *CreditNoteBuildContext) (*BuildResult, error)
}

// ── Scheduler ─────────────────────────────────────────────────────────────────

// Scheduler programa la ejecución diferida de un job (fire-and-forget).
// La implementación real usa time.AfterFunc; los tests, una síncrona.
type Scheduler interface {
	Schedule(d time.Duration, fn func())
}

// SchedulerFunc adaptador función → Scheduler.
type SchedulerFunc func(d time.Duration, fn func())

func (f SchedulerFunc) Schedule(d time.Duration, fn func()) { f(d, fn) }

// AfterFuncScheduler Scheduler de producción sobre time.AfterFunc.
func AfterFuncScheduler() Scheduler {
	return SchedulerFunc(func(d time.Duration, fn func()) {
		time.AfterFunc(d, fn)
	})
}
