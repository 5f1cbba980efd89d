package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/cors"

	"github.com/machshop/kitting/pkg/domain/repositories"
	"github.com/machshop/kitting/pkg/infrastructure/events"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Service        KitService
	Shortages      repositories.ShortageRepository
	Locations      repositories.LocationRepository
	Events         events.EventStore
	AllowedOrigins []string
}

// NewRouter builds the engine's HTTP API.
func NewRouter(log *slog.Logger, deps RouterDeps) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	router.Use(corsHandler.Handler)

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/kits", CreateKit(log, deps.Service))
		r.Get("/kits", ListKits(log, deps.Service))
		r.Get("/kits/{kitID}", GetKit(log, deps.Service))
		r.Post("/kits/{kitID}/stage", StageKit(log, deps.Service))
		r.Post("/kits/{kitID}/scan", ScanItem(log, deps.Service))
		r.Post("/kits/{kitID}/resolve-exception", ResolveException(log, deps.Service))
		r.Post("/kits/{kitID}/complete", CompleteStaging(log, deps.Service))
		r.Post("/kits/{kitID}/issue", IssueKit(log, deps.Service))
		r.Post("/kits/{kitID}/consume", ConsumeKit(log, deps.Service))
		r.Post("/kits/{kitID}/hold", HoldKit(log, deps.Service))
		r.Post("/kits/{kitID}/resume", ResumeKit(log, deps.Service))
		r.Post("/kits/{kitID}/cancel", CancelKit(log, deps.Service))
		r.Post("/kits/{kitID}/refresh-shortages", RefreshShortages(log, deps.Service))

		r.Get("/shortages", QueryShortages(log, deps.Shortages))
		r.Get("/locations", ListLocations(log, deps.Locations))
		r.Get("/events", ReadEvents(log, deps.Events))
	})

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	return router
}
