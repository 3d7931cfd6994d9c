package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/josfe/facturacion-sri/internal/application/billing"
	"github.com/josfe/facturacion-sri/internal/application/dto"
	appsri "github.com/josfe/facturacion-sri/internal/application/sri"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
)

// InvoiceHandler maneja la creación, submit y consulta de facturas.
type InvoiceHandler struct {
	billing      *billing.Service
	orchestrator *appsri.Orchestrator
}

// NewInvoiceHandler construye el handler de facturas.
func NewInvoiceHandler(b *billing.Service, o *appsri.Orchestrator) *InvoiceHandler {
	return &InvoiceHandler{billing: b, orchestrator: o}
}

// Create POST /api/invoices — persiste la factura, le asigna numeración y la
// encola en Generado. Devuelve la factura con su entrada de cola.
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	invoiceID, err := h.billing.CreateInvoice(c.Context(), companyID, in)
	if err != nil {
		return respondError(c, err)
	}
	if _, err := h.orchestrator.SubmitInvoice(c.Context(), invoiceID, GetUserID(c)); err != nil {
		return respondError(c, err)
	}

	out, err := h.billing.GetInvoice(companyID, invoiceID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.billing.GetInvoice(GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Delete DELETE /api/invoices/:id — elimina la factura y su entrada de cola.
// Con la entrada en estado terminal el borrado se rechaza: el comprobante ya
// existe ante el SRI.
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	companyID, id := GetCompanyID(c), c.Params("id")
	if _, err := h.billing.GetInvoice(companyID, id); err != nil {
		return respondError(c, err)
	}
	if err := h.orchestrator.OnSourceDeleted(entity.DocFactura, id, GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	if err := h.billing.DeleteInvoice(c.Context(), companyID, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Void POST /api/invoices/:id/void — anula el trámite SRI pendiente de la
// factura; el registro contable se conserva.
func (h *InvoiceHandler) Void(c *fiber.Ctx) error {
	companyID, id := GetCompanyID(c), c.Params("id")
	if _, err := h.billing.GetInvoice(companyID, id); err != nil {
		return respondError(c, err)
	}
	if err := h.orchestrator.OnSourceCancelled(entity.DocFactura, id, GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.StatusResponse{Status: "Cancelado"})
}
