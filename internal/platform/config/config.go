package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "3003"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultEnvironment     = "local"
	defaultServiceName     = "order-service"
	defaultServiceVersion  = "dev"
	defaultFrontendURL     = "http://localhost:3000"
	defaultCatalogURL      = "http://localhost:3002"
	defaultCatalogTimeout  = 5 * time.Second
	defaultMailerURL       = "http://localhost:3004"
	defaultMailerTimeout   = 10 * time.Second
	defaultAuthURL         = "http://localhost:3001"
	defaultAuthTimeout     = 5 * time.Second
	defaultOrderTimezone   = "Local"
	defaultEventsTopic     = "order-events"
	defaultLogLevel        = "info"

	// StoreDriverFirestore keeps orders in Cloud Firestore.
	StoreDriverFirestore = "firestore"
	// StoreDriverPostgres keeps orders in PostgreSQL.
	StoreDriverPostgres = "postgres"

	EventsBackendNone   = "none"
	EventsBackendPubSub = "pubsub"
	EventsBackendKafka  = "kafka"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Service   ServiceConfig
	Catalog   UpstreamConfig
	Mailer    UpstreamConfig
	Auth      AuthConfig
	Stripe    StripeConfig
	Store     StoreConfig
	Events    EventsConfig
	Telemetry TelemetryConfig
	Secrets   SecretsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// ServiceConfig describes the running deployment.
type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
	FrontendURL string
	// OrderTimezone names the zone used to pick the order-number day.
	OrderTimezone string
	Location      *time.Location
}

// UpstreamConfig points at a peer HTTP service.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig controls bearer token verification.
type AuthConfig struct {
	JWTSecret     string
	ServiceURL    string
	VerifyTimeout time.Duration
}

// StripeConfig holds payment provider credentials.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// StoreConfig selects and configures the order store.
type StoreConfig struct {
	Driver    string
	Firestore FirestoreConfig
	Postgres  PostgresConfig
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID       string
	EmulatorHost    string
	CredentialsFile string
}

// PostgresConfig stores the connection string.
type PostgresConfig struct {
	URL string
}

// EventsConfig selects where order lifecycle events go.
type EventsConfig struct {
	Backend string
	PubSub  PubSubConfig
	Kafka   KafkaConfig
}

type PubSubConfig struct {
	ProjectID string
	Topic     string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// TelemetryConfig configures logs, traces and metrics.
type TelemetryConfig struct {
	LogLevel     string
	OTLPEndpoint string
}

// SecretsConfig points secret:// references at a Secret Manager project.
type SecretsConfig struct {
	ProjectID    string
	FallbackFile string
}

// IsLocal reports whether the service runs on a developer machine.
func (c Config) IsLocal() bool {
	return c.Service.Environment == defaultEnvironment
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets are empty after resolution.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.names) == 0 {
		return "missing required secrets"
	}
	redacted := make([]string, 0, len(e.names))
	for _, name := range e.names {
		redacted = append(redacted, redactSecretName(name))
	}
	sort.Strings(redacted)
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(redacted, ", "))
}

// Names returns the config field names of the missing secrets.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take precedence
// over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Lookup returns a single raw value using the same precedence as Load. It lets
// callers read bootstrap keys (such as SECRETS_PROJECT_ID) before building a resolver.
func Lookup(key string, opts ...Option) (string, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	lookup, err := options.lookup()
	if err != nil {
		return "", err
	}
	value, _ := lookup(key)
	return value, nil
}

func defaultOptions() loaderOptions {
	return loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
}

// lookup layers explicit map over process env over the dotenv file.
func (o loaderOptions) lookup() (func(string) (string, bool), error) {
	dotEnvValues, err := loadDotEnv(o.envFile)
	if err != nil {
		return nil, err
	}
	return func(key string) (string, bool) {
		if o.envMap != nil {
			if value, ok := o.envMap[key]; ok {
				return value, true
			}
		}
		if o.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}, nil
}

// Load assembles the configuration from defaults, the .env file, environment
// variables and Secret Manager references.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	lookup, err := options.lookup()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "PORT", defaultPort),
			ReadTimeout:     durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Service: ServiceConfig{
			Name:          defaultServiceName,
			Version:       stringWithDefault(lookup, "SERVICE_VERSION", defaultServiceVersion),
			Environment:   strings.ToLower(stringWithDefault(lookup, "ENVIRONMENT", defaultEnvironment)),
			FrontendURL:   strings.TrimRight(stringWithDefault(lookup, "FRONTEND_URL", defaultFrontendURL), "/"),
			OrderTimezone: stringWithDefault(lookup, "ORDER_TIMEZONE", defaultOrderTimezone),
		},
		Catalog: UpstreamConfig{
			BaseURL: strings.TrimRight(stringWithDefault(lookup, "PRODUCT_SERVICE_URL", defaultCatalogURL), "/"),
			Timeout: durationWithDefault(lookup, "CATALOG_TIMEOUT", defaultCatalogTimeout),
		},
		Mailer: UpstreamConfig{
			BaseURL: strings.TrimRight(stringWithDefault(lookup, "MAILER_SERVICE_URL", defaultMailerURL), "/"),
			Timeout: durationWithDefault(lookup, "MAILER_TIMEOUT", defaultMailerTimeout),
		},
		Auth: AuthConfig{
			JWTSecret:     stringWithDefault(lookup, "JWT_SECRET", ""),
			ServiceURL:    strings.TrimRight(stringWithDefault(lookup, "AUTH_SERVICE_URL", defaultAuthURL), "/"),
			VerifyTimeout: durationWithDefault(lookup, "AUTH_VERIFY_TIMEOUT", defaultAuthTimeout),
		},
		Stripe: StripeConfig{
			SecretKey:     stringWithDefault(lookup, "STRIPE_SECRET_KEY", ""),
			WebhookSecret: stringWithDefault(lookup, "STRIPE_WEBHOOK_SECRET", ""),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(stringWithDefault(lookup, "STORE_DRIVER", StoreDriverFirestore)),
			Firestore: FirestoreConfig{
				ProjectID:       stringWithDefault(lookup, "FIRESTORE_PROJECT_ID", ""),
				EmulatorHost:    stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
				CredentialsFile: stringWithDefault(lookup, "FIRESTORE_CREDENTIALS_FILE", ""),
			},
			Postgres: PostgresConfig{
				URL: stringWithDefault(lookup, "POSTGRES_URL", ""),
			},
		},
		Events: EventsConfig{
			Backend: strings.ToLower(stringWithDefault(lookup, "EVENTS_BACKEND", EventsBackendNone)),
			PubSub: PubSubConfig{
				ProjectID: stringWithDefault(lookup, "PUBSUB_PROJECT_ID", ""),
				Topic:     stringWithDefault(lookup, "PUBSUB_TOPIC", defaultEventsTopic),
			},
			Kafka: KafkaConfig{
				Brokers: csvWithDefault(lookup, "KAFKA_BROKERS"),
				Topic:   stringWithDefault(lookup, "KAFKA_TOPIC", defaultEventsTopic),
			},
		},
		Telemetry: TelemetryConfig{
			LogLevel:     strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
			OTLPEndpoint: stringWithDefault(lookup, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
		Secrets: SecretsConfig{
			ProjectID:    stringWithDefault(lookup, "SECRETS_PROJECT_ID", ""),
			FallbackFile: stringWithDefault(lookup, "SECRETS_FALLBACK_FILE", ".secrets.local"),
		},
	}

	if cfg.Store.Firestore.ProjectID == "" {
		cfg.Store.Firestore.ProjectID = stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")
	}
	if cfg.Events.PubSub.ProjectID == "" {
		cfg.Events.PubSub.ProjectID = cfg.Store.Firestore.ProjectID
	}

	secretFields := []struct {
		name  string
		field *string
	}{
		{"Auth.JWTSecret", &cfg.Auth.JWTSecret},
		{"Stripe.SecretKey", &cfg.Stripe.SecretKey},
		{"Stripe.WebhookSecret", &cfg.Stripe.WebhookSecret},
		{"Store.Postgres.URL", &cfg.Store.Postgres.URL},
	}
	resolved := make(map[string]string, len(secretFields))
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(&cfg); err != nil {
		return Config{}, err
	}

	if missing := findMissingSecrets(requiredSecrets(cfg), resolved); missing != nil {
		return Config{}, missing
	}

	return cfg, nil
}

// requiredSecrets relaxes the Stripe credentials for local runs.
func requiredSecrets(cfg Config) []string {
	required := []string{"Auth.JWTSecret"}
	if !cfg.IsLocal() {
		required = append(required, "Stripe.SecretKey", "Stripe.WebhookSecret")
	}
	if cfg.Store.Driver == StoreDriverPostgres {
		required = append(required, "Store.Postgres.URL")
	}
	return required
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg *Config) error {
	var invalid []string

	if cfg.Server.Port == "" {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		invalid = append(invalid, "Server.ShutdownTimeout")
	}

	location, err := time.LoadLocation(cfg.Service.OrderTimezone)
	if err != nil {
		invalid = append(invalid, "Service.OrderTimezone")
	} else {
		cfg.Service.Location = location
	}

	if cfg.Catalog.Timeout <= 0 {
		invalid = append(invalid, "Catalog.Timeout")
	}
	if cfg.Mailer.Timeout <= 0 {
		invalid = append(invalid, "Mailer.Timeout")
	}

	switch cfg.Store.Driver {
	case StoreDriverFirestore:
		if cfg.Store.Firestore.ProjectID == "" {
			invalid = append(invalid, "Store.Firestore.ProjectID")
		}
	case StoreDriverPostgres:
	default:
		invalid = append(invalid, "Store.Driver")
	}

	switch cfg.Events.Backend {
	case EventsBackendNone:
	case EventsBackendPubSub:
		if cfg.Events.PubSub.ProjectID == "" {
			invalid = append(invalid, "Events.PubSub.ProjectID")
		}
		if cfg.Events.PubSub.Topic == "" {
			invalid = append(invalid, "Events.PubSub.Topic")
		}
	case EventsBackendKafka:
		if len(cfg.Events.Kafka.Brokers) == 0 {
			invalid = append(invalid, "Events.Kafka.Brokers")
		}
		if cfg.Events.Kafka.Topic == "" {
			invalid = append(invalid, "Events.Kafka.Topic")
		}
	default:
		invalid = append(invalid, "Events.Backend")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	var missing []string
	for _, name := range required {
		if resolved[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{names: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
