package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/carmarket/car-marketplace/internal/api/handler"
	"github.com/carmarket/car-marketplace/internal/api/middleware"
	"github.com/carmarket/car-marketplace/internal/core/ports"
)

const metricsNamespace = "carmarket"

// Deps are the collaborators the HTTP layer is wired to.
type Deps struct {
	Auth   ports.AuthService
	Cars   ports.CarService
	Tokens ports.TokenVerifier
	Mongo  handler.MongoPinger
	// Redis is nil when the car cache is disabled.
	Redis  handler.RedisPinger
	Logger zerolog.Logger
}

// Options tune the middleware stack. Zero values fall back to defaults.
type Options struct {
	BodyLimit   string
	CORSOrigins []string
	AuthRPS     float64
	AuthBurst   int
	// TrustProxy reads the client IP from X-Forwarded-For when the hop is a
	// private or loopback address. Otherwise the socket address is used.
	TrustProxy bool
	// Registerer and Gatherer default to the prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps, opts Options) *echo.Echo {
	opts = withDefaults(opts)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)
	e.IPExtractor = echo.ExtractIPDirect()
	if opts.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomiddleware.BodyLimit(opts.BodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  metricsNamespace,
		Registerer: opts.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health" || c.Path() == "/health/ready"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	carHandler := handler.NewCarHandler(deps.Cars)
	authMiddleware := middleware.Auth(deps.Tokens)
	authLimiter := middleware.RateLimit(opts.AuthRPS, opts.AuthBurst)

	v1 := e.Group("/api/v1")

	// --- Auth routes ---
	v1.POST("/register", authHandler.Register, authLimiter)
	v1.POST("/login", authHandler.Login, authLimiter)

	// --- Car routes ---
	v1.POST("/upload", carHandler.Create, authMiddleware)
	v1.GET("/usercars", carHandler.ListMine, authMiddleware)
	v1.PUT("/update/:id", carHandler.Update, authMiddleware)
	v1.DELETE("/delete/:id", carHandler.Delete, authMiddleware)
	v1.GET("/car/:id", carHandler.Get, authMiddleware)
	v1.GET("/search", carHandler.Search)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: opts.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func withDefaults(opts Options) Options {
	if opts.BodyLimit == "" {
		opts.BodyLimit = "20M"
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.AuthRPS <= 0 {
		opts.AuthRPS = 5
	}
	if opts.AuthBurst <= 0 {
		opts.AuthBurst = 10
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return opts
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			} else if v.Status >= http.StatusBadRequest {
				ev = log.Warn()
			}
			if userID, ok := handler.UserIDFromContext(c.Request().Context()); ok {
				ev = ev.Str("user_id", userID)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
