package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	apicontract "github.com/tuanvumaihuynh/product-tracker/api-contract"
	"github.com/tuanvumaihuynh/product-tracker/internal/apperr"
	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/http/apierr"
	"github.com/tuanvumaihuynh/product-tracker/internal/http/metric"
	"github.com/tuanvumaihuynh/product-tracker/internal/http/middleware"
	"github.com/tuanvumaihuynh/product-tracker/internal/http/swagger"
	"github.com/tuanvumaihuynh/product-tracker/internal/service"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/db"
	"github.com/tuanvumaihuynh/product-tracker/pkg/validator"
)

var tracer = otel.Tracer("github.com/tuanvumaihuynh/product-tracker/internal/http")

// Service represents the HTTP service.
type Service struct {
	cfg      config.HTTP
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metric.Metrics

	productSvc    service.ProductService
	healthChecker db.HealthChecker
}

type CleanupFunc func(ctx context.Context) error

// handlerFunc is an HTTP handler whose error is written by handleResponseError.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func New(
	cfg config.HTTP,
	log *slog.Logger,
	productSvc service.ProductService,
	healthChecker db.HealthChecker,
) *Service {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Service{
		cfg:           cfg,
		logger:        log.With(slog.String("service", "http")),
		registry:      registry,
		metrics:       metric.New(registry),
		productSvc:    productSvc,
		healthChecker: healthChecker,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	handler, err := s.Handler(ctx)
	if err != nil {
		return nil, err
	}

	return s.RunWithServer(ctx, handler)
}

// Handler builds the router with every middleware and route registered.
func (s *Service) Handler(ctx context.Context) (http.Handler, error) {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		swagger.Register(r)
	}

	if err := s.RegisterHandlers(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorContext(ctx, "http server stopped unexpectedly", slog.Any("error", err))
		}
	}()

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(s.cfg.CorsAllowedOrigins),
		middleware.Logging(s.logger),
	)

	if s.cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(s.cfg.RateLimit, s.cfg.RateBurst, s.handleResponseError))
	}
}

func (s *Service) RegisterHandlers(ctx context.Context, r chi.Router) error {
	v, err := validator.NewDefaultValidator()
	if err != nil {
		return fmt.Errorf("create validator: %w", err)
	}
	products := newProductHandler(s.productSvc, v)

	var validateRequests func(http.Handler) http.Handler
	if s.cfg.ValidateRequests {
		doc, err := apicontract.Load(ctx)
		if err != nil {
			return err
		}

		validateRequests, err = middleware.OpenAPIValidator(doc, s.handleRequestError)
		if err != nil {
			return err
		}
	}

	r.Get("/", s.handle(s.welcome))
	r.Get("/healthz", s.handle(s.healthz))

	r.Route("/api/product", func(r chi.Router) {
		r.Use(
			chimiddleware.NoCache,
			chimiddleware.RequestSize(s.cfg.MaxBodyBytes),
		)
		if validateRequests != nil {
			r.Use(validateRequests)
		}

		r.Get("/", s.handle(products.ListProducts))
		r.Post("/addProduct", s.handle(products.CreateProduct))
		r.Get("/{productId}", s.handle(products.GetProduct))
		r.Put("/{productId}", s.handle(products.UpdateProduct))
		r.Delete("/{productId}", s.handle(products.DeleteProduct))
	})

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
		Registry: s.registry,
	}))

	return nil
}

func (s *Service) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.handleResponseError(w, r, err)
		}
	}
}

func (s *Service) welcome(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, WelcomeResponse{Message: welcomeMessage})
}

func (s *Service) healthz(w http.ResponseWriter, r *http.Request) error {
	healthy, err := s.healthChecker.IsHealthy(r.Context())
	if err != nil || !healthy {
		s.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		return writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
	}

	return writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleRequestError writes errors raised before a handler runs, such as
// OpenAPI validation failures.
func (s *Service) handleRequestError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)
	if res.StatusCode >= http.StatusInternalServerError {
		res = apierr.New(apperr.ValidationErr.WrapParent(err))
	}

	s.logger.WarnContext(r.Context(), "http request error", slog.Any("error", err))
	s.writeError(w, r, res)
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	s.writeError(w, r, res)
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, res apierr.ErrorResponse) {
	if err := writeJSON(w, res.StatusCode, res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}

// writeJSON encodes body before sending the status, so an encoding error
// can still be answered with an error response. Write failures after the
// header belong to the client connection and are not reported.
func writeJSON(w http.ResponseWriter, status int, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	w.Write(append(data, '\n'))

	return nil
}
