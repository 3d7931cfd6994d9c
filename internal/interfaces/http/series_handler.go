package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/josfe/facturacion-sri/internal/application/dto"
	"github.com/josfe/facturacion-sri/internal/application/numbering"
)

// SeriesHandler administra los secuenciales legales: puntos de emisión,
// inicialización/edición de contadores, reseed y bitácora.
type SeriesHandler struct {
	admin *numbering.Admin
}

// NewSeriesHandler construye el handler de series.
func NewSeriesHandler(admin *numbering.Admin) *SeriesHandler {
	return &SeriesHandler{admin: admin}
}

// CreateEmissionPoint POST /api/series/emission-points
func (h *SeriesHandler) CreateEmissionPoint(c *fiber.Ctx) error {
	var in dto.CreateEmissionPointRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.admin.CreateEmissionPoint(in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListEmissionPoints GET /api/series/emission-points?location=<id>
func (h *SeriesHandler) ListEmissionPoints(c *fiber.Ctx) error {
	locationID := c.Query("location")
	if locationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetro location requerido"})
	}
	out, err := h.admin.ListEmissionPoints(locationID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Deactivate POST /api/series/emission-points/:id/deactivate
func (h *SeriesHandler) Deactivate(c *fiber.Ctx) error {
	if err := h.admin.Deactivate(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.StatusResponse{Status: "Inactivo"})
}

// Initiate POST /api/series/initiate — inicializa o edita un contador.
// Nunca retrocede; fijar el valor actual es un no-op.
func (h *SeriesHandler) Initiate(c *fiber.Ctx) error {
	var in dto.InitiateSeriesRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.admin.InitiateOrEdit(c.Context(), in, GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.StatusResponse{Status: "ok"})
}

// Peek GET /api/series/peek?location=<id> — próximos secuenciales sin asignar.
func (h *SeriesHandler) Peek(c *fiber.Ctx) error {
	locationID := c.Query("location")
	if locationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetro location requerido"})
	}
	out, err := h.admin.Peek(c.Context(), locationID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Reseed POST /api/series/reseed — recalcula el contador tras una remoción
// excepcional: próximo = máximo observado + 1.
func (h *SeriesHandler) Reseed(c *fiber.Ctx) error {
	var in dto.ReseedSeriesRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.admin.Reseed(c.Context(), numbering.ReseedInput{
		LocationID: in.LocationID,
		DocType:    in.DocType,
		Actor:      GetUserID(c),
		Note:       in.Note,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Log GET /api/series/log?emission_point=<id> — bitácora inmutable.
func (h *SeriesHandler) Log(c *fiber.Ctx) error {
	epID := c.Query("emission_point")
	if epID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetro emission_point requerido"})
	}
	out, err := h.admin.ListLog(epID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
