package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/josfe/facturacion-sri/internal/application/directory"
	"github.com/josfe/facturacion-sri/internal/application/dto"
)

// DirectoryHandler maneja el catálogo base: empresas, clientes y
// establecimientos.
type DirectoryHandler struct {
	svc *directory.Service
}

// NewDirectoryHandler construye el handler de catálogo.
func NewDirectoryHandler(svc *directory.Service) *DirectoryHandler {
	return &DirectoryHandler{svc: svc}
}

// CreateCompany POST /api/companies (público: alta inicial del tenant).
func (h *DirectoryHandler) CreateCompany(c *fiber.Ctx) error {
	var in dto.CreateCompanyRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.svc.CreateCompany(in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetCompany GET /api/companies/me — la empresa del token.
func (h *DirectoryHandler) GetCompany(c *fiber.Ctx) error {
	out, err := h.svc.GetCompany(GetCompanyID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// CreateCustomer POST /api/customers
func (h *DirectoryHandler) CreateCustomer(c *fiber.Ctx) error {
	var in dto.CreateCustomerRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.svc.CreateCustomer(GetCompanyID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListCustomers GET /api/customers
func (h *DirectoryHandler) ListCustomers(c *fiber.Ctx) error {
	out, err := h.svc.ListCustomers(GetCompanyID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// CreateEstablishment POST /api/establishments
func (h *DirectoryHandler) CreateEstablishment(c *fiber.Ctx) error {
	var in dto.CreateEstablishmentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.svc.CreateEstablishment(GetCompanyID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListEstablishments GET /api/establishments
func (h *DirectoryHandler) ListEstablishments(c *fiber.Ctx) error {
	out, err := h.svc.ListEstablishments(GetCompanyID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
