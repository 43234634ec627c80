package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/recall/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/recall/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/recall/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/recall/internal/ws"
)

// Metrics is satisfied by *metrics.Manager.
type Metrics interface {
	middleware.RequestObserver
	Handler() http.Handler
}

// Dependencies are built and owned by the caller; the router only mounts
// them. Nil services leave the /v1 routes unmounted.
type Dependencies struct {
	Sessions    handler.SessionService
	Enrollment  handler.EnrollmentService
	Recognition handler.RecognitionService
	Hub         *ws.Hub
	Metrics     Metrics
	DB          handler.Pinger
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Recall API",
		BodyLimit:    12 * 1024 * 1024,
	})

	if deps == nil {
		deps = &Dependencies{}
	}

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	if r.deps.Metrics != nil {
		r.app.Use(middleware.Metrics(r.deps.Metrics))
	}
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler(r.deps.DB)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps.Metrics != nil {
		r.app.Get("/metrics", adaptor.HTTPHandler(r.deps.Metrics.Handler()))
	}

	v1 := r.app.Group("/v1")

	if r.deps.Sessions != nil {
		subjects := handler.NewSubjectHandler(r.deps.Sessions)
		v1.Post("/subjects", subjects.Create)
		v1.Get("/subjects/:subject_id", subjects.Get)
		v1.Post("/subjects/:subject_id/sessions", subjects.CreateSession)
		v1.Get("/sessions/:session_id", subjects.GetSession)

		if r.deps.Hub != nil {
			v1.Get("/subjects/:subject_id/ws", ws.UpgradeMiddleware(subjects.SubjectExists), ws.Handler(r.deps.Hub))
		}
	}

	if r.deps.Enrollment != nil {
		people := handler.NewPersonHandler(r.deps.Enrollment)
		v1.Get("/subjects/:subject_id/people", people.List)
		v1.Post("/subjects/:subject_id/people", people.Create)
		v1.Get("/people/:person_id", people.Get)
		v1.Delete("/people/:person_id", people.Delete)
		v1.Post("/people/:person_id/samples", people.AddSample)
		v1.Delete("/people/:person_id/samples/:sample_id", people.RemoveSample)
		v1.Post("/people/:person_id/centroid", people.RebuildCentroid)
	}

	if r.deps.Recognition != nil {
		recognition := handler.NewRecognitionHandler(r.deps.Recognition)
		v1.Post("/sessions/:session_id/frame", recognition.SubmitFrame)
		v1.Post("/sessions/:session_id/tiebreak", recognition.ResolveTieBreak)
		v1.Get("/sessions/:session_id/result/:event_id", recognition.GetResult)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires. Injected components are stopped by their owner.
func (r *Router) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}
