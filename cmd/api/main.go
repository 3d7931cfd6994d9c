package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/josfe/facturacion-sri/internal/application/auth"
	"github.com/josfe/facturacion-sri/internal/application/billing"
	"github.com/josfe/facturacion-sri/internal/application/credentials"
	"github.com/josfe/facturacion-sri/internal/application/directory"
	"github.com/josfe/facturacion-sri/internal/application/numbering"
	appsri "github.com/josfe/facturacion-sri/internal/application/sri"
	"github.com/josfe/facturacion-sri/internal/infrastructure/postgres"
	infrasri "github.com/josfe/facturacion-sri/internal/infrastructure/sri"
	"github.com/josfe/facturacion-sri/internal/infrastructure/storage"
	httpRouter "github.com/josfe/facturacion-sri/internal/interfaces/http"
	"github.com/josfe/facturacion-sri/pkg/config"
	"github.com/josfe/facturacion-sri/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	estabRepo := postgres.NewEstablishmentRepository(pool)
	epRepo := postgres.NewEmissionPointRepository(pool)
	logRepo := postgres.NewSequenceLogRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	creditRepo := postgres.NewCreditNoteRepository(pool)
	queueRepo := postgres.NewQueueRepository(pool)
	credRepo := postgres.NewCredentialRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Series legales: contador bloqueado fila a fila + bitácora en la misma tx.
	counterStore := postgres.NewCounterStore(pool)
	allocator := numbering.NewAllocator(counterStore, log)
	seriesAdmin := numbering.NewAdmin(allocator, epRepo, logRepo, invoiceRepo, creditRepo)

	// Área de trabajo de XML por etapa (GENERADOS, FIRMADOS, ...).
	stager, err := storage.NewStager(cfg.SRI.StorageRoot, log)
	if err != nil {
		log.Fatal().Err(err).Msg("preparar área de trabajo XML")
	}

	builder := infrasri.NewXMLBuilder(infrasri.BuilderOptions{
		CodigoNumerico: cfg.SRI.CodigoNumerico,
	}, log)
	signer := infrasri.NewXmlsecSigner(cfg.SRI.XMLSecBin, log)
	transmitter := infrasri.NewSOAPClient(cfg.SRI, log)

	queueSvc := appsri.NewQueueService(queueRepo, stager, log)
	poller := appsri.NewPoller(appsri.AfterFuncScheduler(), log)
	orchestrator := appsri.NewOrchestrator(
		queueRepo, invoiceRepo, creditRepo,
		companyRepo, customerRepo, estabRepo, credRepo, epRepo,
		allocator, builder, signer, transmitter,
		queueSvc, stager, poller,
		appsri.Options{
			AmbienteOverride: cfg.SRI.AmbienteOverride,
			SOAPTimeout:      cfg.SRI.SOAPTimeout,
		},
		log,
	)

	billingSvc := billing.NewService(txRunner, invoiceRepo, creditRepo, customerRepo, queueRepo)
	directorySvc := directory.NewService(companyRepo, customerRepo, estabRepo)
	converter := &infrasri.P12Converter{OutRoot: filepath.Join(cfg.SRI.StorageRoot, "FIRMAS")}
	credentialSvc := credentials.NewService(credRepo, converter)
	authUC := auth.NewAuthUseCase(userRepo, companyRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación SRI API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Auth:        httpRouter.NewAuthHandler(authUC),
		Directory:   httpRouter.NewDirectoryHandler(directorySvc),
		Credentials: httpRouter.NewCredentialHandler(credentialSvc),
		Invoices:    httpRouter.NewInvoiceHandler(billingSvc, orchestrator),
		CreditNotes: httpRouter.NewCreditNoteHandler(billingSvc, orchestrator),
		Queue:       httpRouter.NewQueueHandler(queueRepo, orchestrator, stager),
		Series:      httpRouter.NewSeriesHandler(seriesAdmin),
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("apagando servidor")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("apagado del servidor HTTP")
	}
}
