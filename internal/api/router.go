package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/curiolabs/wondergate/internal/api/handlers"
	mw "github.com/curiolabs/wondergate/internal/api/middleware"
	"github.com/curiolabs/wondergate/internal/buildconfig"
	"github.com/curiolabs/wondergate/internal/checks"
	"github.com/curiolabs/wondergate/internal/config"
	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/curiolabs/wondergate/internal/service"
	"github.com/curiolabs/wondergate/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router *chi.Mux
	Drift  *service.DriftService

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	// Stores
	wonderStore := store.NewWonderStore(db)
	reliabilityStore := store.NewReliabilityStore(db)
	auditStore := store.NewAuditStore(db)
	associationStore := store.NewAssociationStore(db)

	// Check battery, with the configurable thresholds applied
	novelty := checks.NewNoveltyCheck()
	novelty.MaxZ = config.NoveltyMaxZ()

	battery := checks.NewRegistry()
	for _, c := range []domain.CredibilityCheck{
		checks.StructuralCheck{},
		checks.NewFloorCheck(config.ReliabilityFloor()),
		novelty,
		checks.NewSkewCheck(),
	} {
		if err := battery.Register(c); err != nil {
			return nil, err
		}
	}

	// Services
	reliabilitySvc := service.NewReliabilityService(reliabilityStore, logger)
	reliabilitySvc.Step = config.ReliabilityStep()

	wonderSvc, err := service.NewWonderService(wonderStore, reliabilitySvc, auditStore, battery.Checks(), logger)
	if err != nil {
		return nil, err
	}
	wonderSvc.FailureThreshold = config.FailureThreshold()
	wonderSvc.ReinforcementRate = config.ReinforcementRate()
	wonderSvc.MatchOpts.Threshold = config.MatchThreshold()

	assocSvc := service.NewAssociationService(associationStore, wonderStore, logger)
	assocSvc.Window = config.AssociationWindow()

	// Wire association building into admission
	wonderSvc.SetAssociationBuilder(assocSvc)

	driftSvc := service.NewDriftService(auditStore, logger)
	driftSvc.SetInterval(config.DriftInterval())
	driftSvc.SetWindow(config.DriftWindow())

	// Handlers
	observationHandler := handlers.NewObservationHandler(wonderSvc)
	wonderHandler := handlers.NewWonderHandler(wonderSvc, assocSvc)
	sourceHandler := handlers.NewSourceHandler(reliabilitySvc)
	auditHandler := handlers.NewAuditHandler(wonderSvc)
	driftHandler := handlers.NewDriftHandler(driftSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Drift:     driftSvc,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		// Observations (the filter's write side)
		r.Route("/observations", func(r chi.Router) {
			r.Post("/", observationHandler.Observe)
			r.Post("/evaluate", observationHandler.Evaluate)
		})

		// Wonders
		r.Route("/wonders", func(r chi.Router) {
			r.Get("/", wonderHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", wonderHandler.GetByID)
				r.Get("/history", wonderHandler.History)
				r.Get("/associations", wonderHandler.Associations)
			})
		})

		// Sources
		r.Route("/sources", func(r chi.Router) {
			r.Get("/", sourceHandler.List)
			r.Get("/{id}/reliability", sourceHandler.GetReliability)
		})

		// Audit log and drift reporting
		r.Get("/audit", auditHandler.List)
		r.Get("/drift/report", driftHandler.Report)
	})

	return app, nil
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"version":        buildconfig.Version(),
			"commit":         buildconfig.Commit(),
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy the domain contracts at compile time.
var (
	_ domain.WonderStore      = (*store.WonderStore)(nil)
	_ domain.ReliabilityStore = (*store.ReliabilityStore)(nil)
	_ domain.AuditStore       = (*store.AuditStore)(nil)
	_ domain.AssociationStore = (*store.AssociationStore)(nil)
)
