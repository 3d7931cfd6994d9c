package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/josfe/facturacion-sri/internal/application/billing"
	"github.com/josfe/facturacion-sri/internal/application/dto"
	appsri "github.com/josfe/facturacion-sri/internal/application/sri"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
)

// CreditNoteHandler maneja la creación, submit y consulta de notas de crédito.
type CreditNoteHandler struct {
	billing      *billing.Service
	orchestrator *appsri.Orchestrator
}

// NewCreditNoteHandler construye el handler de notas de crédito.
func NewCreditNoteHandler(b *billing.Service, o *appsri.Orchestrator) *CreditNoteHandler {
	return &CreditNoteHandler{billing: b, orchestrator: o}
}

// Create POST /api/credit-notes — persiste la nota contra su factura,
// le asigna numeración y la encola en Generado.
func (h *CreditNoteHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	var in dto.CreateCreditNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	ncID, err := h.billing.CreateCreditNote(c.Context(), companyID, in)
	if err != nil {
		return respondError(c, err)
	}
	if _, err := h.orchestrator.SubmitCreditNote(c.Context(), ncID, GetUserID(c)); err != nil {
		return respondError(c, err)
	}

	out, err := h.billing.GetCreditNote(companyID, ncID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID GET /api/credit-notes/:id
func (h *CreditNoteHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.billing.GetCreditNote(GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Delete DELETE /api/credit-notes/:id — elimina la nota y su entrada de cola;
// rechazado cuando la entrada ya es terminal.
func (h *CreditNoteHandler) Delete(c *fiber.Ctx) error {
	companyID, id := GetCompanyID(c), c.Params("id")
	if _, err := h.billing.GetCreditNote(companyID, id); err != nil {
		return respondError(c, err)
	}
	if err := h.orchestrator.OnSourceDeleted(entity.DocNotaCredito, id, GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	if err := h.billing.DeleteCreditNote(c.Context(), companyID, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Void POST /api/credit-notes/:id/void — anula el trámite SRI pendiente.
func (h *CreditNoteHandler) Void(c *fiber.Ctx) error {
	companyID, id := GetCompanyID(c), c.Params("id")
	if _, err := h.billing.GetCreditNote(companyID, id); err != nil {
		return respondError(c, err)
	}
	if err := h.orchestrator.OnSourceCancelled(entity.DocNotaCredito, id, GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.StatusResponse{Status: "Cancelado"})
}
