package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"FIRESTORE_PROJECT_ID": "orders-dev",
		"JWT_SECRET":           "jwt-secret",
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(baseEnv()), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "3003" {
		t.Errorf("expected default port 3003, got %s", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("unexpected shutdown timeout: %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Catalog.BaseURL != defaultCatalogURL || cfg.Catalog.Timeout != 5*time.Second {
		t.Errorf("unexpected catalog config: %+v", cfg.Catalog)
	}
	if cfg.Mailer.Timeout != 10*time.Second {
		t.Errorf("unexpected mailer timeout: %s", cfg.Mailer.Timeout)
	}
	if cfg.Auth.VerifyTimeout != 5*time.Second {
		t.Errorf("unexpected auth verify timeout: %s", cfg.Auth.VerifyTimeout)
	}
	if cfg.Store.Driver != StoreDriverFirestore {
		t.Errorf("expected firestore store, got %s", cfg.Store.Driver)
	}
	if cfg.Events.Backend != EventsBackendNone {
		t.Errorf("expected events disabled, got %s", cfg.Events.Backend)
	}
	if cfg.Events.PubSub.ProjectID != "orders-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.Events.PubSub.ProjectID)
	}
	if cfg.Service.Location == nil {
		t.Fatalf("expected order timezone to be loaded")
	}
	if !cfg.IsLocal() {
		t.Errorf("expected local environment")
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"PORT":                  "9090",
		"ENVIRONMENT":           "PRODUCTION",
		"FRONTEND_URL":          "https://shop.example.com/",
		"ORDER_TIMEZONE":        "Asia/Kolkata",
		"STORE_DRIVER":          "postgres",
		"POSTGRES_URL":          "secret://orders/postgres",
		"JWT_SECRET":            "sm://orders/jwt",
		"STRIPE_SECRET_KEY":     "secret://stripe/api",
		"STRIPE_WEBHOOK_SECRET": "whsec_plain",
		"EVENTS_BACKEND":        "kafka",
		"KAFKA_BROKERS":         "kafka-1:9092, kafka-2:9092",
		"CATALOG_TIMEOUT":       "2s",
	}
	resolver := SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
		switch ref {
		case "secret://orders/postgres":
			return "postgres://orders@db/orders", nil
		case "secret://orders/jwt":
			return "resolved-jwt", nil
		case "secret://stripe/api":
			return "sk_live", nil
		}
		return "", errors.New("unknown secret")
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("unexpected port %s", cfg.Server.Port)
	}
	if cfg.Service.Environment != "production" || cfg.IsLocal() {
		t.Errorf("expected production environment, got %s", cfg.Service.Environment)
	}
	if cfg.Service.FrontendURL != "https://shop.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Service.FrontendURL)
	}
	if cfg.Service.Location.String() != "Asia/Kolkata" {
		t.Errorf("unexpected location %s", cfg.Service.Location)
	}
	if cfg.Store.Postgres.URL != "postgres://orders@db/orders" {
		t.Errorf("unexpected postgres url %s", cfg.Store.Postgres.URL)
	}
	if cfg.Auth.JWTSecret != "resolved-jwt" {
		t.Errorf("expected sm:// reference to resolve, got %s", cfg.Auth.JWTSecret)
	}
	if cfg.Stripe.SecretKey != "sk_live" || cfg.Stripe.WebhookSecret != "whsec_plain" {
		t.Errorf("unexpected stripe config %+v", cfg.Stripe)
	}
	if len(cfg.Events.Kafka.Brokers) != 2 || cfg.Events.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Events.Kafka.Brokers)
	}
	if cfg.Catalog.Timeout != 2*time.Second {
		t.Errorf("unexpected catalog timeout %s", cfg.Catalog.Timeout)
	}
}

func TestLoadReportsInvalidFields(t *testing.T) {
	env := map[string]string{
		"JWT_SECRET":     "jwt",
		"STORE_DRIVER":   "mongo",
		"EVENTS_BACKEND": "kafka",
		"ORDER_TIMEZONE": "Mars/Olympus",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string]bool{"Store.Driver": true, "Events.Kafka.Brokers": true, "Service.OrderTimezone": true}
	for _, field := range verr.Fields() {
		delete(want, field)
	}
	if len(want) != 0 {
		t.Fatalf("missing invalid fields %v in %v", want, verr.Fields())
	}
}

func TestLoadRequiresSecretsOutsideLocal(t *testing.T) {
	env := baseEnv()
	env["ENVIRONMENT"] = "production"

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected missing secrets error, got %v", err)
	}
	names := missing.Names()
	if len(names) != 2 || names[0] != "Stripe.SecretKey" || names[1] != "Stripe.WebhookSecret" {
		t.Fatalf("unexpected missing secrets %v", names)
	}
	if msg := missing.Error(); msg == "" || strings.Contains(msg, "Stripe") {
		t.Fatalf("expected redacted names in message, got %q", msg)
	}
}

func TestLoadFailsWhenResolverErrors(t *testing.T) {
	env := baseEnv()
	env["JWT_SECRET"] = "secret://orders/jwt"

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var serr *SecretError
	if !errors.As(err, &serr) {
		t.Fatalf("expected secret error, got %v", err)
	}
	if serr.Ref != "secret://orders/jwt" {
		t.Fatalf("unexpected ref %s", serr.Ref)
	}
}

func TestLoadReadsDotEnvBelowExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport PORT=4000\nFIRESTORE_PROJECT_ID=\"from-file\"\nJWT_SECRET=file-secret\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{"PORT": "5000"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "5000" {
		t.Errorf("expected explicit map to win, got %s", cfg.Server.Port)
	}
	if cfg.Store.Firestore.ProjectID != "from-file" {
		t.Errorf("expected quoted dotenv value, got %s", cfg.Store.Firestore.ProjectID)
	}

	value, err := Lookup("JWT_SECRET", WithEnvFile(path), WithoutSystemEnv())
	if err != nil || value != "file-secret" {
		t.Fatalf("Lookup returned %q, %v", value, err)
	}
}
