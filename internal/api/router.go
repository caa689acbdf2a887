package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"arena-survival/internal/config"
	"arena-survival/internal/game"
	"arena-survival/internal/observability"
)

// SimulationInterface is the slice of *game.Simulation the bridge uses.
// Reads come from published snapshots; writes are queued commands, so every
// method is safe to call from request goroutines.
type SimulationInterface interface {
	Snapshot() *game.Snapshot
	PlayerStats() game.PlayerStats
	WeaponStates() []game.WeaponState
	PassiveStates() []game.PassiveState
	Quality() (int, game.QualitySettings)
	EventLogStats() game.EventLogStats
	Enqueue(c game.Command) error
}

// FrameRenderer rasterizes a snapshot. *render.Renderer implements it.
type FrameRenderer interface {
	EncodePNG(w io.Writer, snap *game.Snapshot) error
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	limiter := api.NewIPRateLimiter(1000, 1000) // High limit for tests
//	defer limiter.Stop()
//	cfg := api.RouterConfig{
//	    Sim:         mockSim,
//	    RateLimiter: limiter,
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Sim is the simulation control surface (required)
	Sim SimulationInterface

	// Renderer backs /api/frame.png. Nil disables the endpoint.
	Renderer FrameRenderer

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, one is created with config.DefaultServer() limits.
	RateLimiter *IPRateLimiter

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, localhost on any port is allowed.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool

	Logger zerolog.Logger
}

type routerHandlers struct {
	sim      SimulationInterface
	renderer FrameRenderer
	log      zerolog.Logger
}

// DefaultCORSOrigins allows a renderer served from localhost.
var DefaultCORSOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE apart from the rate limiter's cleanup
// goroutine: no listeners are opened and nothing touches the simulation.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	r.Use(middleware.RequestID)
	if !cfg.DisableLogging {
		r.Use(requestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		def := config.DefaultServer()
		rateLimiter = NewIPRateLimiter(def.RateLimitRPS, def.RateLimitBurst)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultCORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &routerHandlers{
		sim:      cfg.Sim,
		renderer: cfg.Renderer,
		log:      cfg.Logger.With().Str("component", "api").Logger(),
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Published state
		r.Get("/state", h.handleGetState)
		r.Get("/player", h.handleGetPlayer)
		r.Get("/weapons", h.handleGetWeapons)
		r.Get("/passives", h.handleGetPassives)
		r.Get("/quality", h.handleGetQuality)
		r.Get("/events", h.handleGetEvents)
		r.Get("/frame.png", h.handleGetFrame)

		// Commands, applied at the next frame boundary
		r.Post("/input", h.handleCommand(cmdInput))
		r.Post("/pause", h.handleCommand(cmdPause))
		r.Post("/resume", h.handleCommand(cmdResume))
		r.Post("/reset", h.handleCommand(cmdReset))
		r.Post("/quality", h.handleCommand(cmdQuality))
		r.Post("/upgrade", h.handleCommand(cmdUpgrade))
		r.Post("/autopick", h.handleCommand(cmdAutoPick))
		r.Post("/spawning", h.handleCommand(cmdSpawning))
		r.Post("/boss", h.handleCommand(cmdBoss))
	})

	return r
}

// requestLogger logs one line per request with zerolog.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("🌐 Request")
		})
	}
}

// metricsMiddleware records request counts and latency by route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
