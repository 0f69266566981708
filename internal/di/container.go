package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/AmolSonawane1026/order-service/internal/catalog"
	"github.com/AmolSonawane1026/order-service/internal/handlers"
	"github.com/AmolSonawane1026/order-service/internal/notifications"
	"github.com/AmolSonawane1026/order-service/internal/payments"
	"github.com/AmolSonawane1026/order-service/internal/platform/auth"
	"github.com/AmolSonawane1026/order-service/internal/platform/config"
	"github.com/AmolSonawane1026/order-service/internal/platform/events"
	pfirestore "github.com/AmolSonawane1026/order-service/internal/platform/firestore"
	"github.com/AmolSonawane1026/order-service/internal/platform/observability"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
	firestorerepo "github.com/AmolSonawane1026/order-service/internal/repositories/firestore"
	postgresrepo "github.com/AmolSonawane1026/order-service/internal/repositories/postgres"
	"github.com/AmolSonawane1026/order-service/internal/services"
)

const (
	meterName         = "github.com/AmolSonawane1026/order-service"
	storeProbeTimeout = 2 * time.Second
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Orders services.OrderService
	System services.SystemService
}

// Container wires repositories, services, and outbound clients for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Publisher    events.Publisher
	Mailer       *notifications.Mailer
	Services     Services
	Handler      http.Handler
}

type containerOptions struct {
	logger         *zap.Logger
	meter          metric.Meter
	registry       repositories.Registry
	publisher      events.Publisher
	metricsHandler http.Handler
	build          services.BuildInfo
	middlewares    []func(http.Handler) http.Handler
}

// Option customises NewContainer.
type Option func(*containerOptions)

func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) { o.logger = logger }
}

func WithMeter(meter metric.Meter) Option {
	return func(o *containerOptions) { o.meter = meter }
}

// WithRegistry bypasses store selection; tests hand in in-memory registries.
func WithRegistry(reg repositories.Registry) Option {
	return func(o *containerOptions) { o.registry = reg }
}

// WithPublisher bypasses the configured events backend.
func WithPublisher(pub events.Publisher) Option {
	return func(o *containerOptions) { o.publisher = pub }
}

// WithMetricsHandler exposes the scrape endpoint at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *containerOptions) { o.metricsHandler = h }
}

func WithBuildInfo(info services.BuildInfo) Option {
	return func(o *containerOptions) { o.build = info }
}

// WithMiddlewares replaces the HTTP middleware chain applied to every route.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(o *containerOptions) { o.middlewares = mw }
}

// NewContainer constructs the runtime dependencies. Anything opened before a
// failure is released before returning.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (_ *Container, err error) {
	o := containerOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.meter == nil {
		o.meter = otel.GetMeterProvider().Meter(meterName)
	}
	if o.middlewares == nil {
		o.middlewares = []func(http.Handler) http.Handler{
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(o.logger.Named("http")),
			observability.RecoveryMiddleware(o.logger.Named("http")),
		}
	}

	c := &Container{Config: cfg}
	defer func() {
		if err != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = c.Close(closeCtx)
		}
	}()

	reg := o.registry
	if reg == nil {
		if reg, err = openRegistry(ctx, cfg, o.logger); err != nil {
			return nil, err
		}
	}
	c.Repositories = reg

	pub := o.publisher
	if pub == nil {
		if pub, err = newPublisher(ctx, cfg.Events); err != nil {
			return nil, err
		}
	}
	c.Publisher = pub

	metrics, err := observability.NewOrderMetrics(o.meter)
	if err != nil {
		return nil, fmt.Errorf("build order metrics: %w", err)
	}

	catalogClient, err := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
	if err != nil {
		return nil, fmt.Errorf("build catalog client: %w", err)
	}

	mailer, err := notifications.NewMailer(cfg.Mailer.BaseURL, cfg.Mailer.Timeout,
		notifications.WithLogger(o.logger.Named("notifier")),
		notifications.WithFailureHook(metrics.NotificationFailed),
	)
	if err != nil {
		return nil, fmt.Errorf("build mailer: %w", err)
	}
	c.Mailer = mailer

	var stripe *payments.StripeProvider
	if cfg.Stripe.SecretKey != "" {
		stripe, err = payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey:        cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Logger:        payments.StripeLogger(observability.EventLogger(o.logger.Named("stripe"))),
		})
		if err != nil {
			return nil, fmt.Errorf("build stripe provider: %w", err)
		}
	} else {
		o.logger.Warn("stripe is not configured; card orders and webhooks are disabled")
	}

	c.Services, err = buildServices(cfg, reg, pub, catalogClient, mailer, stripe, metrics, o)
	if err != nil {
		return nil, err
	}

	c.Handler = buildRouter(cfg, c.Services, stripe, o)
	return c, nil
}

// Close drains pending notifications, then releases the broker and the store.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Mailer != nil {
		if err := c.Mailer.Drain(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain mailer: %w", err))
		}
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close repositories: %w", err))
		}
	}
	return errors.Join(errs...)
}

func openRegistry(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.Registry, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := postgresrepo.Open(ctx, cfg.Store.Postgres.URL)
		if err != nil {
			return nil, err
		}
		if err := postgresrepo.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("postgres store ready")
		reg, err := postgresrepo.NewRegistry(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return reg, nil
	case config.StoreDriverFirestore, "":
		provider := pfirestore.NewProvider(cfg.Store.Firestore)
		reg, err := firestorerepo.NewRegistry(provider)
		if err != nil {
			_ = provider.Close(ctx)
			return nil, err
		}
		logger.Info("firestore store ready", zap.String("projectId", cfg.Store.Firestore.ProjectID))
		return reg, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func newPublisher(ctx context.Context, cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Backend {
	case config.EventsBackendPubSub:
		pub, err := events.NewPubSubPublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.Topic)
		if err != nil {
			return nil, fmt.Errorf("build pubsub publisher: %w", err)
		}
		return pub, nil
	case config.EventsBackendKafka:
		return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
	case config.EventsBackendNone, "":
		return events.Noop{}, nil
	default:
		return nil, fmt.Errorf("unsupported events backend %q", cfg.Backend)
	}
}

func buildServices(
	cfg config.Config,
	reg repositories.Registry,
	pub events.Publisher,
	catalogClient *catalog.Client,
	mailer *notifications.Mailer,
	stripe *payments.StripeProvider,
	metrics *observability.OrderMetrics,
	o containerOptions,
) (Services, error) {
	var gateway payments.Gateway
	if stripe != nil {
		gateway = stripe
	}

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:      reg.Orders(),
		Counters:    reg.Counters(),
		Catalog:     catalogClient,
		Payments:    gateway,
		Notifier:    mailer,
		Events:      pub,
		Metrics:     metrics,
		FrontendURL: cfg.Service.FrontendURL,
		Location:    cfg.Service.Location,
		Logger:      observability.EventLogger(o.logger),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}

	health, err := repositories.NewProbeHealthRepository([]repositories.DependencyCheck{
		{Name: "database", Timeout: storeProbeTimeout, Check: reg.Ping},
	})
	if err != nil {
		return Services{}, fmt.Errorf("build health repository: %w", err)
	}

	build := o.build
	if build.Environment == "" {
		build.Environment = cfg.Service.Environment
	}
	if build.Version == "" {
		build.Version = cfg.Service.Version
	}
	if build.Service == "" {
		build.Service = cfg.Service.Name
	}
	system, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: health,
		Build:            build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}

	return Services{Orders: orders, System: system}, nil
}

func buildRouter(cfg config.Config, svc Services, stripe *payments.StripeProvider, o containerOptions) http.Handler {
	var local, remote auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		local = auth.NewHS256Verifier(cfg.Auth.JWTSecret)
	}
	if cfg.Auth.ServiceURL != "" {
		remote = auth.NewRemoteVerifier(cfg.Auth.ServiceURL, cfg.Auth.VerifyTimeout, nil)
	}
	authn := auth.NewAuthenticator(local, remote)

	var verifier payments.WebhookVerifier
	if stripe != nil {
		verifier = stripe
	}

	opts := []handlers.Option{
		handlers.WithMiddlewares(o.middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(handlers.WithHealthSystemService(svc.System))),
		handlers.WithOrderMiddlewares(authn.Authenticate),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(svc.Orders).Routes),
		handlers.WithWebhookRoutes(handlers.NewWebhookHandlers(verifier).Routes),
	}
	if o.metricsHandler != nil {
		opts = append(opts, handlers.WithMetricsHandler(o.metricsHandler))
	}
	return handlers.NewRouter(opts...)
}
