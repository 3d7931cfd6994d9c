// Package http expone la API REST sobre fiber: autenticación JWT, documentos
// tributarios, cola SRI y administración de series.
package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/josfe/facturacion-sri/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Auth        *AuthHandler
	Directory   *DirectoryHandler
	Credentials *CredentialHandler
	Invoices    *InvoiceHandler
	CreditNotes *CreditNoteHandler
	Queue       *QueueHandler
	Series      *SeriesHandler
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", deps.Auth.Register)
	authGroup.Post("/login", deps.Auth.Login)

	// Alta inicial del tenant (público)
	api.Post("/companies", deps.Directory.CreateCompany)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	protected.Get("/companies/me", deps.Directory.GetCompany)

	customers := protected.Group("/customers")
	customers.Post("/", deps.Directory.CreateCustomer)
	customers.Get("/", deps.Directory.ListCustomers)

	establishments := protected.Group("/establishments")
	establishments.Post("/", deps.Directory.CreateEstablishment)
	establishments.Get("/", deps.Directory.ListEstablishments)

	// Firmas electrónicas (solo gestión)
	credentials := protected.Group("/credentials",
		RequireRole(entity.RoleSystemManager, entity.RoleAccountsManager))
	credentials.Post("/", deps.Credentials.Upload)
	credentials.Get("/active", deps.Credentials.GetActive)

	// Documentos tributarios
	invoices := protected.Group("/invoices")
	invoices.Post("/", deps.Invoices.Create)
	invoices.Get("/:id", deps.Invoices.GetByID)
	invoices.Delete("/:id", deps.Invoices.Delete)
	invoices.Post("/:id/void", deps.Invoices.Void)

	creditNotes := protected.Group("/credit-notes")
	creditNotes.Post("/", deps.CreditNotes.Create)
	creditNotes.Get("/:id", deps.CreditNotes.GetByID)
	creditNotes.Delete("/:id", deps.CreditNotes.Delete)
	creditNotes.Post("/:id/void", deps.CreditNotes.Void)

	// Cola SRI
	queueGroup := protected.Group("/queue")
	queueGroup.Get("/", deps.Queue.List)
	queueGroup.Get("/:id", deps.Queue.GetByID)
	queueGroup.Get("/:id/transitions", deps.Queue.Transitions)
	queueGroup.Get("/:id/xml", deps.Queue.XML)
	queueGroup.Post("/:id/sign", deps.Queue.Sign)
	queueGroup.Post("/:id/send", deps.Queue.Send)
	queueGroup.Post("/:id/resend", deps.Queue.Resend)
	queueGroup.Post("/:id/cancel", deps.Queue.Cancel)
	queueGroup.Post("/:id/retry", deps.Queue.Retry)
	// La transición forzada salta las acciones del ciclo: solo gestión.
	queueGroup.Post("/:id/transition",
		RequireRole(entity.RoleSystemManager, entity.RoleAccountsManager),
		deps.Queue.ForceTransition)

	// Series legales
	series := protected.Group("/series")
	series.Get("/peek", deps.Series.Peek)
	series.Get("/log", deps.Series.Log)
	series.Get("/emission-points", deps.Series.ListEmissionPoints)
	// Las operaciones que mueven contadores son de gestión.
	seriesAdmin := series.Group("/",
		RequireRole(entity.RoleSystemManager, entity.RoleAccountsManager))
	seriesAdmin.Post("/initiate", deps.Series.Initiate)
	seriesAdmin.Post("/reseed", deps.Series.Reseed)
	seriesAdmin.Post("/emission-points", deps.Series.CreateEmissionPoint)
	seriesAdmin.Post("/emission-points/:id/deactivate", deps.Series.Deactivate)
}
