package sri

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josfe/facturacion-sri/internal/application/numbering"
	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/queue"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
	"github.com/josfe/facturacion-sri/pkg/logger"
	pkgsri "github.com/josfe/facturacion-sri/pkg/sri"
)

// Options configuración del orquestador.
type Options struct {
	// AmbienteOverride fuerza el ambiente cuando la empresa no tiene firma
	// activa con ambiente propio; vacío = producción por defecto.
	AmbienteOverride string
	// SOAPTimeout tope de las llamadas a los WS del SRI.
	SOAPTimeout time.Duration
}

// Orchestrator conduce cada comprobante por el ciclo completo:
// asignación de secuencial → XML → Generado → firma → Firmado → Recepción →
// Enviado → Autorización → Autorizado/Devuelto, con el poller de respaldo
// para las respuestas inconclusas.
type Orchestrator struct {
	queueRepo    repository.QueueRepository
	invoiceRepo  repository.InvoiceRepository
	creditRepo   repository.CreditNoteRepository
	companyRepo  repository.CompanyRepository
	customerRepo repository.CustomerRepository
	estabRepo    repository.EstablishmentRepository
	credRepo     repository.CredentialRepository
	epRepo       repository.EmissionPointRepository

	allocator   *numbering.Allocator
	builder     Builder
	signer      Signer
	transmitter Transmitter
	queueSvc    *QueueService
	stager      Stager
	poller      *Poller
	opts        Options
	log         *logger.Logger
}

// NewOrchestrator construye el orquestador con todas sus dependencias.
func NewOrchestrator(
	queueRepo repository.QueueRepository,
	invoiceRepo repository.InvoiceRepository,
	creditRepo repository.CreditNoteRepository,
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
	estabRepo repository.EstablishmentRepository,
	credRepo repository.CredentialRepository,
	epRepo repository.EmissionPointRepository,
	allocator *numbering.Allocator,
	builder Builder,
	signer Signer,
	transmitter Transmitter,
	queueSvc *QueueService,
	stager Stager,
	poller *Poller,
	opts Options,
	log *logger.Logger,
) *Orchestrator {
	if opts.SOAPTimeout <= 0 {
		opts.SOAPTimeout = 40 * time.Second
	}
	return &Orchestrator{
		queueRepo:    queueRepo,
		invoiceRepo:  invoiceRepo,
		creditRepo:   creditRepo,
		companyRepo:  companyRepo,
		customerRepo: customerRepo,
		estabRepo:    estabRepo,
		credRepo:     credRepo,
		epRepo:       epRepo,
		allocator:    allocator,
		builder:      builder,
		signer:       signer,
		transmitter:  transmitter,
		queueSvc:     queueSvc,
		stager:       stager,
		poller:       poller,
		opts:         opts,
		log:          log,
	}
}

// ── Submit ────────────────────────────────────────────────────────────────────

// SubmitInvoice asigna numeración a la factura, construye su XML y crea la
// entrada de cola en Generado. La asignación de secuencial y la transmisión
// son fases secuenciales: el lock del contador nunca convive con una llamada
// de red.
func (o *Orchestrator) SubmitInvoice(ctx context.Context, invoiceID, actor string) (*entity.QueueEntry, error) {
	inv, err := o.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cargar factura %s: %w", invoiceID, err)
	}
	if existing, err := o.queueRepo.GetByRef(entity.DocFactura, invoiceID); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: la factura %s ya tiene entrada de cola", domain.ErrDuplicate, invoiceID)
	}

	bc, err := o.invoiceContext(inv)
	if err != nil {
		return nil, err
	}

	ep, err := o.epRepo.GetActiveByLocation(inv.LocationID)
	if err != nil {
		return nil, err
	}
	sec, err := o.allocator.AllocateNext(ctx, inv.LocationID, entity.DocFactura)
	if err != nil {
		return nil, err
	}
	inv.Estab = ep.Estab
	inv.PtoEmi = ep.PtoEmi
	inv.Secuencial = pkgsri.Z9(sec)

	result, err := o.builder.BuildInvoice(bc)
	if err != nil {
		return nil, err
	}
	inv.ClaveAcceso = result.ClaveAcceso
	inv.UpdatedAt = time.Now()
	if err := o.invoiceRepo.Update(inv); err != nil {
		return nil, fmt.Errorf("persistir numeración de la factura: %w", err)
	}

	return o.createEntry(inv.CompanyID, inv.CustomerID, inv.LocationID,
		entity.DocFactura, inv.ID, result, actor)
}

// SubmitCreditNote asigna numeración a la nota de crédito, construye su XML y
// crea la entrada de cola en Generado.
func (o *Orchestrator) SubmitCreditNote(ctx context.Context, creditNoteID, actor string) (*entity.QueueEntry, error) {
	nc, err := o.creditRepo.GetByID(creditNoteID)
	if err != nil {
		return nil, fmt.Errorf("cargar nota de crédito %s: %w", creditNoteID, err)
	}
	if existing, err := o.queueRepo.GetByRef(entity.DocNotaCredito, creditNoteID); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: la nota de crédito %s ya tiene entrada de cola", domain.ErrDuplicate, creditNoteID)
	}

	bc, err := o.creditNoteContext(nc)
	if err != nil {
		return nil, err
	}

	ep, err := o.epRepo.GetActiveByLocation(nc.LocationID)
	if err != nil {
		return nil, err
	}
	sec, err := o.allocator.AllocateNext(ctx, nc.LocationID, entity.DocNotaCredito)
	if err != nil {
		return nil, err
	}
	nc.Estab = ep.Estab
	nc.PtoEmi = ep.PtoEmi
	nc.Secuencial = pkgsri.Z9(sec)

	result, err := o.builder.BuildCreditNote(bc)
	if err != nil {
		return nil, err
	}
	nc.ClaveAcceso = result.ClaveAcceso
	nc.UpdatedAt = time.Now()
	if err := o.creditRepo.Update(nc); err != nil {
		return nil, fmt.Errorf("persistir numeración de la nota de crédito: %w", err)
	}

	return o.createEntry(nc.CompanyID, nc.CustomerID, nc.LocationID,
		entity.DocNotaCredito, nc.ID, result, actor)
}

func (o *Orchestrator) createEntry(companyID, customerID, locationID string,
	dt entity.DocType, refID string, result *BuildResult, actor string) (*entity.QueueEntry, error) {

	numero := result.Estab + "-" + result.PtoEmi + "-" + result.Secuencial
	path, err := o.stager.WriteNew(queue.StateGenerado, queue.OriginNinguno, numero+".xml", result.XML)
	if err != nil {
		return nil, fmt.Errorf("escribir XML en la etapa Generado: %w", err)
	}

	now := time.Now()
	e := &entity.QueueEntry{
		ID:               uuid.New().String(),
		CompanyID:        companyID,
		CustomerID:       customerID,
		LocationID:       locationID,
		RefDocType:       dt,
		RefID:            refID,
		State:            queue.StateGenerado,
		ClaveAcceso:      result.ClaveAcceso,
		Numero:           numero,
		XMLFile:          path,
		LastTransitionAt: now,
		LastTransitionBy: actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := o.queueRepo.Create(e); err != nil {
		// El estado no quedó persistido: retirar el archivo para no dejar un
		// XML huérfano en la etapa.
		if rmErr := o.stager.Remove(path); rmErr != nil {
			o.log.Error().Err(rmErr).Str("xml_file", path).
				Msg("no se pudo retirar el XML tras fallo creando la entrada de cola")
		}
		return nil, err
	}

	o.log.Info().
		Str("queue_id", e.ID).
		Str("numero", numero).
		Str("clave_acceso", result.ClaveAcceso).
		Msg("comprobante encolado en Generado")
	return e, nil
}

// ── Firma ─────────────────────────────────────────────────────────────────────

// SignEntry firma el XML de la entrada (XAdES-BES) y la avanza a Firmado.
// Cualquier fallo de firma es fatal para la transición: la entrada conserva
// su estado y el texto crudo del fallo queda en last_error.
func (o *Orchestrator) SignEntry(ctx context.Context, queueID, actor string) error {
	e, err := o.queueRepo.GetByID(queueID)
	if err != nil {
		return err
	}
	if err := queue.CanTransition(e.State, queue.StateFirmado); err != nil {
		return err
	}

	cred, err := o.credRepo.GetActiveByCompany(e.CompanyID)
	if err != nil {
		return err
	}

	xml, err := o.stager.Read(e.XMLFile)
	if err != nil {
		return err
	}

	signed, err := o.signer.Sign(ctx, xml, cred.KeyPath, cred.CertPath)
	if err != nil {
		o.queueSvc.RecordError(e, err.Error())
		return fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}

	return o.queueSvc.TransitionWithContent(e, queue.StateFirmado, actor, signed)
}

// ── Envío y autorización ──────────────────────────────────────────────────────

// SendEntry envía el comprobante firmado a Recepción y, si fue recibido (o ya
// estaba registrado, mensaje id 43), consulta Autorización de inmediato.
func (o *Orchestrator) SendEntry(ctx context.Context, queueID, actor string) error {
	e, err := o.queueRepo.GetByID(queueID)
	if err != nil {
		return err
	}
	if err := queue.CanTransition(e.State, queue.StateEnviado); err != nil {
		return err
	}
	if queue.IsResend(e.State, queue.StateEnviado) {
		return o.ResendEntry(ctx, queueID, actor)
	}

	ambiente, _ := o.resolveAmbiente(e.CompanyID)
	xml, err := o.stager.Read(e.XMLFile)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, o.opts.SOAPTimeout)
	rec, recErr := o.transmitter.Submit(callCtx, xml, ambiente)
	cancel()

	if recErr != nil {
		// Fallo de transporte: nunca es un rechazo de la autoridad. Se asume
		// "procesando" y se difiere al poller.
		o.log.Warn().Err(recErr).Str("queue_id", e.ID).
			Msg("recepción inconclusa por error de transporte; se difiere al poller")
		if err := o.queueSvc.Transition(e, queue.StateEnviado, actor); err != nil {
			return err
		}
		o.queueSvc.RecordError(e, "recepción inconclusa: "+recErr.Error())
		o.scheduleNextPoll(e)
		return nil
	}

	switch {
	case rec.Estado == EstadoRecibida, rec.Estado == EstadoDevuelta && rec.ClaveYaRegistrada():
		if err := o.queueSvc.Transition(e, queue.StateEnviado, actor); err != nil {
			return err
		}
		return o.queryAndResolve(ctx, e, actor)

	default:
		// DEVUELTA real en Recepción: terminal para este intento.
		if err := o.queueSvc.Transition(e, queue.StateEnviado, actor); err != nil {
			return err
		}
		e.RejectOrigin = queue.OriginRecepcion
		e.LastError = flattenMensajes(rec.Mensajes)
		if err := o.queueSvc.Transition(e, queue.StateDevuelto, actor); err != nil {
			return err
		}
		o.writeAuditWrapper(e, e.Numero+".rechazado.xml", rec.Wrapper)
		return nil
	}
}

// ResendEntry reenvío Enviado→Enviado: re-consulta Autorización únicamente.
// Nunca vuelve a pasar por Recepción: reenviar un comprobante ya aceptado
// provoca el rechazo por clave registrada.
func (o *Orchestrator) ResendEntry(ctx context.Context, queueID, actor string) error {
	e, err := o.queueRepo.GetByID(queueID)
	if err != nil {
		return err
	}
	if err := o.queueSvc.Transition(e, queue.StateEnviado, actor); err != nil {
		return err
	}
	return o.queryAndResolve(ctx, e, actor)
}

// queryAndResolve consulta Autorización y resuelve la entrada:
// AUTORIZADO → Autorizado; rechazo explícito → Devuelto (origen autorización);
// sin respuesta definitiva (PPR, vacío, error de transporte) → sigue en
// Enviado y se programa el siguiente intento del poller.
func (o *Orchestrator) queryAndResolve(ctx context.Context, e *entity.QueueEntry, actor string) error {
	ambiente, _ := o.resolveAmbiente(e.CompanyID)

	callCtx, cancel := context.WithTimeout(ctx, o.opts.SOAPTimeout)
	res, err := o.transmitter.QueryAuthorization(callCtx, e.ClaveAcceso, ambiente)
	cancel()

	if err != nil {
		o.log.Warn().Err(err).Str("queue_id", e.ID).
			Msg("autorización inconclusa por error de transporte")
		o.queueSvc.RecordError(e, "autorización inconclusa: "+err.Error())
		o.scheduleNextPoll(e)
		return nil
	}

	switch res.Estado {
	case EstadoAutorizado:
		e.NumeroAutorizacion = res.NumeroAutorizacion
		e.FechaAutorizacion = res.FechaAutorizacion
		e.LastError = ""
		if res.XMLAutorizado != "" {
			return o.queueSvc.TransitionWithContent(e, queue.StateAutorizado, actor, []byte(res.XMLAutorizado))
		}
		return o.queueSvc.Transition(e, queue.StateAutorizado, actor)

	case EstadoNoAutorizado, EstadoRechazado, EstadoDevuelta:
		e.RejectOrigin = queue.OriginAutorizacion
		e.LastError = flattenMensajes(res.Mensajes)
		if err := o.queueSvc.Transition(e, queue.StateDevuelto, actor); err != nil {
			return err
		}
		o.writeAuditWrapper(e, e.Numero+".no_autorizado.xml", res.Wrapper)
		return nil

	default:
		// PPR o respuesta vacía: el SRI sigue procesando.
		o.scheduleNextPoll(e)
		return nil
	}
}

// scheduleNextPoll programa el siguiente intento del poller con backoff.
// Agotados los intentos, la entrada permanece en Enviado para reintento
// manual del operador; jamás se cancela sola.
func (o *Orchestrator) scheduleNextPoll(e *entity.QueueEntry) {
	e.PollAttempts++
	if err := o.queueRepo.Update(e); err != nil {
		o.log.Error().Err(err).Str("queue_id", e.ID).Msg("no se pudo persistir poll_attempts")
	}
	entryID := e.ID
	if !o.poller.ScheduleNext(e.PollAttempts, func() { o.pollAuthorization(entryID) }) {
		o.log.Warn().
			Str("queue_id", e.ID).
			Int("attempts", e.PollAttempts).
			Msg("poller agotado; la entrada queda en Enviado para reintento manual")
	}
}

// pollAuthorization job de fondo del poller: re-consulta Autorización para una
// entrada que quedó inconclusa.
func (o *Orchestrator) pollAuthorization(queueID string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.opts.SOAPTimeout+5*time.Second)
	defer cancel()

	e, err := o.queueRepo.GetByID(queueID)
	if err != nil {
		o.log.Error().Err(err).Str("queue_id", queueID).Msg("poller: entrada no encontrada")
		return
	}
	if e.State != queue.StateEnviado {
		// Resuelta (o cancelada) entre la programación y el disparo.
		return
	}
	if err := o.queryAndResolve(ctx, e, "poller"); err != nil {
		o.log.Error().Err(err).Str("queue_id", queueID).Msg("poller: fallo resolviendo autorización")
	}
}

// writeAuditWrapper deja junto al comprobante rechazado el XML compacto de la
// respuesta del SRI. Es mejor-esfuerzo: un fallo se registra y no revierte la
// transición ya persistida.
func (o *Orchestrator) writeAuditWrapper(e *entity.QueueEntry, filename, wrapper string) {
	if wrapper == "" {
		return
	}
	if _, err := o.stager.WriteNew(e.State, e.RejectOrigin, filename, []byte(wrapper)); err != nil {
		o.log.Error().Err(err).Str("queue_id", e.ID).Str("file", filename).
			Msg("no se pudo escribir el XML de auditoría de la respuesta SRI")
	}
}

// ── Cancelación y reintento ───────────────────────────────────────────────────

// CancelEntry anula la entrada desde cualquier estado no terminal. El XML
// queda donde está para inspección.
func (o *Orchestrator) CancelEntry(_ context.Context, queueID, actor string) error {
	e, err := o.queueRepo.GetByID(queueID)
	if err != nil {
		return err
	}
	return o.queueSvc.Transition(e, queue.StateCancelado, actor)
}

// RetryEntry regresa una entrada Devuelta (o en Error) a Generado: reconstruye
// el XML desde el documento origen — el documento pudo corregirse y con él la
// clave de acceso — y limpia el rastro del intento fallido.
func (o *Orchestrator) RetryEntry(_ context.Context, queueID, actor string) error {
	e, err := o.queueRepo.GetByID(queueID)
	if err != nil {
		return err
	}
	if err := queue.CanTransition(e.State, queue.StateGenerado); err != nil {
		return err
	}

	result, err := o.rebuild(e)
	if err != nil {
		return err
	}
	e.ClaveAcceso = result.ClaveAcceso
	e.Numero = result.Estab + "-" + result.PtoEmi + "-" + result.Secuencial
	e.RejectOrigin = queue.OriginNinguno
	e.LastError = ""
	e.PollAttempts = 0
	return o.queueSvc.TransitionWithContent(e, queue.StateGenerado, actor, result.XML)
}

func (o *Orchestrator) rebuild(e *entity.QueueEntry) (*BuildResult, error) {
	switch e.RefDocType {
	case entity.DocFactura:
		inv, err := o.invoiceRepo.GetByID(e.RefID)
		if err != nil {
			return nil, err
		}
		bc, err := o.invoiceContext(inv)
		if err != nil {
			return nil, err
		}
		return o.builder.BuildInvoice(bc)
	case entity.DocNotaCredito:
		nc, err := o.creditRepo.GetByID(e.RefID)
		if err != nil {
			return nil, err
		}
		bc, err := o.creditNoteContext(nc)
		if err != nil {
			return nil, err
		}
		return o.builder.BuildCreditNote(bc)
	}
	return nil, fmt.Errorf("%w: tipo de comprobante %q sin constructor", domain.ErrInvalidInput, e.RefDocType)
}

// ── Ciclo de vida del documento origen ────────────────────────────────────────

// OnSourceDeleted elimina la entrada de cola cuando el documento origen se
// borra antes de autorizarse. Con la entrada en estado terminal el borrado se
// rechaza: el comprobante ya existe ante el SRI.
func (o *Orchestrator) OnSourceDeleted(docType entity.DocType, refID, actor string) error {
	e, err := o.queueRepo.GetByRef(docType, refID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if e.State.Terminal() {
		return fmt.Errorf("%w: la entrada %s está en estado terminal %s", domain.ErrConflict, e.ID, e.State)
	}
	if e.XMLFile != "" {
		if err := o.stager.Remove(e.XMLFile); err != nil {
			o.log.Warn().Err(err).Str("queue_id", e.ID).Msg("no se pudo eliminar el XML de trabajo")
		}
	}
	o.log.Info().Str("queue_id", e.ID).Str("actor", actor).Msg("entrada de cola eliminada junto con su documento")
	return o.queueRepo.Delete(e.ID)
}

// OnSourceCancelled anula la entrada cuando el documento origen se cancela.
// Sin entrada, o con la entrada ya terminal, no hace nada.
func (o *Orchestrator) OnSourceCancelled(docType entity.DocType, refID, actor string) error {
	e, err := o.queueRepo.GetByRef(docType, refID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if e.State.Terminal() {
		return nil
	}
	return o.queueSvc.Transition(e, queue.StateCancelado, actor)
}

// ── Consultas administrativas ─────────────────────────────────────────────────

// AllowedTransitions devuelve los estados alcanzables desde el estado actual.
func (o *Orchestrator) AllowedTransitions(queueID string) ([]queue.State, error) {
	e, err := o.queueRepo.GetByID(queueID)
	if err != nil {
		return nil, err
	}
	return queue.AllowedFrom(e.State), nil
}

// ForceTransition aplica una transición arbitraria (legal) sin pasar por el
// pipeline; operación privilegiada para rescate manual.
func (o *Orchestrator) ForceTransition(queueID string, to queue.State, actor string) error {
	e, err := o.queueRepo.GetByID(queueID)
	if err != nil {
		return err
	}
	return o.queueSvc.Transition(e, to, actor)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// resolveAmbiente resuelve el ambiente de emisión: firma activa de la empresa,
// si no el override global, si no producción.
func (o *Orchestrator) resolveAmbiente(companyID string) (string, *entity.Credential) {
	cred, err := o.credRepo.GetActiveByCompany(companyID)
	if err == nil && cred != nil && cred.Ambiente != "" {
		return cred.Ambiente, cred
	}
	if err != nil && !errors.Is(err, domain.ErrNoCredential) {
		o.log.Warn().Err(err).Str("company_id", companyID).Msg("fallo consultando firma activa")
	}
	if o.opts.AmbienteOverride != "" {
		return o.opts.AmbienteOverride, nil
	}
	return pkgsri.AmbienteProduccion, nil
}

func (o *Orchestrator) invoiceContext(inv *entity.Invoice) (*InvoiceBuildContext, error) {
	company, err := o.companyRepo.GetByID(inv.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("cargar empresa %s: %w", inv.CompanyID, err)
	}
	customer, err := o.customerRepo.GetByID(inv.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("cargar cliente %s: %w", inv.CustomerID, err)
	}
	estab, err := o.estabRepo.GetByID(inv.LocationID)
	if err != nil {
		return nil, fmt.Errorf("cargar establecimiento %s: %w", inv.LocationID, err)
	}
	lines, err := o.invoiceRepo.GetLines(inv.ID)
	if err != nil {
		return nil, err
	}
	payments, err := o.invoiceRepo.GetPayments(inv.ID)
	if err != nil {
		return nil, err
	}
	ambiente, _ := o.resolveAmbiente(inv.CompanyID)
	return &InvoiceBuildContext{
		Invoice:       inv,
		Lines:         lines,
		Payments:      payments,
		Company:       company,
		Customer:      customer,
		Establishment: estab,
		Ambiente:      ambiente,
	}, nil
}

func (o *Orchestrator) creditNoteContext(nc *entity.CreditNote) (*CreditNoteBuildContext, error) {
	company, err := o.companyRepo.GetByID(nc.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("cargar empresa %s: %w", nc.CompanyID, err)
	}
	customer, err := o.customerRepo.GetByID(nc.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("cargar cliente %s: %w", nc.CustomerID, err)
	}
	estab, err := o.estabRepo.GetByID(nc.LocationID)
	if err != nil {
		return nil, fmt.Errorf("cargar establecimiento %s: %w", nc.LocationID, err)
	}
	lines, err := o.creditRepo.GetLines(nc.ID)
	if err != nil {
		return nil, err
	}

	// Líneas y devoluciones previas de la factura modificada: el constructor
	// topa con ellas la cantidad retornable por ítem.
	var invLines []*entity.InvoiceLine
	returned := map[string]decimal.Decimal{}
	if nc.InvoiceID != "" {
		invLines, err = o.invoiceRepo.GetLines(nc.InvoiceID)
		if err != nil {
			return nil, fmt.Errorf("cargar líneas de la factura modificada: %w", err)
		}
		for _, l := range lines {
			if l.ItemCode == "" {
				continue
			}
			if _, ok := returned[l.ItemCode]; ok {
				continue
			}
			qty, err := o.creditRepo.ReturnedQuantity(nc.InvoiceID, l.ItemCode)
			if err != nil {
				return nil, fmt.Errorf("consultar devoluciones previas de %s: %w", l.ItemCode, err)
			}
			returned[l.ItemCode] = qty
		}
	}

	ambiente, _ := o.resolveAmbiente(nc.CompanyID)
	return &CreditNoteBuildContext{
		CreditNote:    nc,
		Lines:         lines,
		Company:       company,
		Customer:      customer,
		Establishment: estab,
		Ambiente:      ambiente,
		InvoiceLines:  invLines,
		Returned:      returned,
	}, nil
}

func flattenMensajes(ms []Mensaje) string {
	if len(ms) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		p := m.Identificador + ": " + m.Mensaje
		if m.InformacionAdicional != "" {
			p += " (" + m.InformacionAdicional + ")"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "; ")
}
