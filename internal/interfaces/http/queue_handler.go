package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/josfe/facturacion-sri/internal/application/billing"
	"github.com/josfe/facturacion-sri/internal/application/dto"
	appsri "github.com/josfe/facturacion-sri/internal/application/sri"
	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/queue"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

// QueueHandler expone la cola SRI: consulta, acciones del ciclo de vida y
// operaciones administrativas (transición forzada, vista previa del XML).
type QueueHandler struct {
	repo         repository.QueueRepository
	orchestrator *appsri.Orchestrator
	stager       appsri.Stager
}

// NewQueueHandler construye el handler de la cola.
func NewQueueHandler(repo repository.QueueRepository, o *appsri.Orchestrator, stager appsri.Stager) *QueueHandler {
	return &QueueHandler{repo: repo, orchestrator: o, stager: stager}
}

// List GET /api/queue?state=Enviado
func (h *QueueHandler) List(c *fiber.Ctx) error {
	state := queue.State(c.Query("state"))
	if !state.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetro state requerido: Generado, Firmado, Enviado, Autorizado, Devuelto, Cancelado o Error"})
	}
	list, err := h.repo.ListByState(GetCompanyID(c), state)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*dto.QueueEntryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, billing.ToQueueEntryResponse(e))
	}
	return c.JSON(out)
}

// GetByID GET /api/queue/:id
func (h *QueueHandler) GetByID(c *fiber.Ctx) error {
	e, err := h.entryOf(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(billing.ToQueueEntryResponse(e))
}

// Sign POST /api/queue/:id/sign — Generado → Firmado.
func (h *QueueHandler) Sign(c *fiber.Ctx) error {
	return h.action(c, h.orchestrator.SignEntry)
}

// Send POST /api/queue/:id/send — Firmado → Enviado (Recepción + Autorización).
func (h *QueueHandler) Send(c *fiber.Ctx) error {
	return h.action(c, h.orchestrator.SendEntry)
}

// Resend POST /api/queue/:id/resend — Enviado → Enviado: re-consulta solo
// Autorización, nunca vuelve a pasar por Recepción.
func (h *QueueHandler) Resend(c *fiber.Ctx) error {
	return h.action(c, h.orchestrator.ResendEntry)
}

// Cancel POST /api/queue/:id/cancel — anula la entrada (terminal).
func (h *QueueHandler) Cancel(c *fiber.Ctx) error {
	return h.action(c, h.orchestrator.CancelEntry)
}

// Retry POST /api/queue/:id/retry — Devuelto/Error → Generado: reconstruye el
// XML y reinicia el intento.
func (h *QueueHandler) Retry(c *fiber.Ctx) error {
	return h.action(c, h.orchestrator.RetryEntry)
}

// Transitions GET /api/queue/:id/transitions
func (h *QueueHandler) Transitions(c *fiber.Ctx) error {
	e, err := h.entryOf(c)
	if err != nil {
		return respondError(c, err)
	}
	states, err := h.orchestrator.AllowedTransitions(e.ID)
	if err != nil {
		return respondError(c, err)
	}
	allowed := make([]string, 0, len(states))
	for _, s := range states {
		allowed = append(allowed, string(s))
	}
	return c.JSON(dto.TransitionsResponse{State: string(e.State), Allowed: allowed})
}

// ForceTransition POST /api/queue/:id/transition — mueve la entrada a un
// estado permitido sin ejecutar la acción asociada. Solo roles de gestión.
func (h *QueueHandler) ForceTransition(c *fiber.Ctx) error {
	e, err := h.entryOf(c)
	if err != nil {
		return respondError(c, err)
	}
	var in dto.TransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	to := queue.State(in.To)
	if !to.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "estado destino desconocido"})
	}
	actor := GetUserID(c)
	if in.Reason != "" {
		actor = actor + " (" + in.Reason + ")"
	}
	if err := h.orchestrator.ForceTransition(e.ID, to, actor); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.StatusResponse{Status: string(to)})
}

// XML GET /api/queue/:id/xml — vista previa del archivo XML de trabajo.
func (h *QueueHandler) XML(c *fiber.Ctx) error {
	e, err := h.entryOf(c)
	if err != nil {
		return respondError(c, err)
	}
	data, err := h.stager.Read(e.XMLFile)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.QueueXMLResponse{ID: e.ID, State: string(e.State), XML: string(data)})
}

// entryOf carga la entrada del path param y verifica que pertenezca a la
// empresa del token.
func (h *QueueHandler) entryOf(c *fiber.Ctx) (*entity.QueueEntry, error) {
	e, err := h.repo.GetByID(c.Params("id"))
	if err != nil {
		return nil, err
	}
	if e.CompanyID != GetCompanyID(c) {
		return nil, domain.ErrForbidden
	}
	return e, nil
}

// action patrón común de los endpoints de acción: autorizar, ejecutar y
// devolver la entrada actualizada.
func (h *QueueHandler) action(c *fiber.Ctx, fn func(ctx context.Context, queueID, actor string) error) error {
	e, err := h.entryOf(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := fn(c.Context(), e.ID, GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	updated, err := h.repo.GetByID(e.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(billing.ToQueueEntryResponse(updated))
}
