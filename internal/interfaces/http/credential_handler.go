package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/josfe/facturacion-sri/internal/application/credentials"
	"github.com/josfe/facturacion-sri/internal/application/dto"
)

// CredentialHandler administra las firmas electrónicas de la empresa.
type CredentialHandler struct {
	svc *credentials.Service
}

// NewCredentialHandler construye el handler de credenciales.
func NewCredentialHandler(svc *credentials.Service) *CredentialHandler {
	return &CredentialHandler{svc: svc}
}

// Upload POST /api/credentials — registra el .p12, extrae el par PEM y lo
// activa como firma vigente de la empresa.
func (h *CredentialHandler) Upload(c *fiber.Ctx) error {
	var in dto.UploadCredentialRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.svc.Upload(GetCompanyID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetActive GET /api/credentials/active
func (h *CredentialHandler) GetActive(c *fiber.Ctx) error {
	out, err := h.svc.GetActive(GetCompanyID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
