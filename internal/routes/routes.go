package routes

import (
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/farmfresh/internal/handlers"
	"github.com/example/farmfresh/internal/metrics"
	"github.com/example/farmfresh/internal/middleware"
	"github.com/example/farmfresh/internal/services"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Auth        *services.AuthService
	Sessions    *middleware.Auth
	Store       handlers.Pinger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
	CORSOrigins string
	// AccessLog receives one line per request. Nil disables the access log.
	AccessLog io.Writer

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewApp builds the Fiber application with middleware and all routes.
func NewApp(deps Deps) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:      "FarmFresh API",
		ErrorHandler: handlers.ErrorHandler(deps.Logger),
		BodyLimit:    4 * 1024 * 1024,
		ReadTimeout:  deps.ReadTimeout,
		WriteTimeout: deps.WriteTimeout,
		IdleTimeout:  deps.IdleTimeout,
	})

	app.Use(recover.New())
	if deps.AccessLog != nil {
		app.Use(logger.New(logger.Config{Output: deps.AccessLog}))
	}
	origins := deps.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(deps.Metrics.Middleware())

	Register(app, deps)
	app.Use(handlers.NotFound)
	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.Auth)
	resetHandler := handlers.NewPasswordResetHandler(deps.Auth)
	userHandler := handlers.NewUserHandler(deps.Auth)
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Logger)

	app.Get("/health", healthHandler.Health)
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Auth routes
	api.Post("/register", authHandler.Register)
	api.Post("/login", authHandler.Login)
	api.Post("/forgot-password", resetHandler.ForgotPassword)
	api.Post("/reset-password", resetHandler.ResetPassword)

	// Public reads
	optional := deps.Sessions.OptionalAuth()
	api.Get("/user/email/:email", optional, userHandler.GetUserByEmail)
	api.Get("/farmers", optional, userHandler.ListFarmers)

	// Session routes
	authed := deps.Sessions.Authenticate()
	owner := middleware.RequireOwner("id")
	api.Get("/user/:id", authed, userHandler.GetUserByID)
	api.Put("/user/:id", authed, owner, userHandler.UpdateUser)
	api.Put("/user/:id/password", authed, owner, userHandler.ChangePassword)
	api.Delete("/user/:id", authed, owner, userHandler.DeleteUser)
}
