package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Backend.URL != defaultBackendURL {
		t.Errorf("unexpected backend url: %s", cfg.Backend.URL)
	}
	if cfg.Storage.Driver != "file" || cfg.Storage.Path != ".nutricart" {
		t.Errorf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Catalog.DefaultCategory != "snacks" {
		t.Errorf("expected default category snacks, got %s", cfg.Catalog.DefaultCategory)
	}
	if cfg.Display.Currency != "INR" || cfg.Display.Locale != "en-IN" {
		t.Errorf("unexpected display defaults: %+v", cfg.Display)
	}
	if cfg.Notify.Delay != 3*time.Second {
		t.Errorf("unexpected toast delay: %s", cfg.Notify.Delay)
	}
	if cfg.Upload.MaxBytes != 5*1024*1024 {
		t.Errorf("unexpected upload limit: %d", cfg.Upload.MaxBytes)
	}
	if cfg.Session.SigningKey != developmentSigningKey {
		t.Errorf("expected development signing key in local env")
	}
	if !cfg.IsLocal() {
		t.Errorf("expected local environment")
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"NUTRICART_ENV":                 "Production",
		"NUTRICART_SERVER_PORT":         "9090",
		"NUTRICART_SERVER_READ_TIMEOUT": "20s",
		"NUTRICART_BACKEND_URL":         "https://shop.example.com/",
		"NUTRICART_BACKEND_TIMEOUT":     "3s",
		"NUTRICART_STORAGE_DRIVER":      "SQLite",
		"NUTRICART_STORAGE_PATH":        "/var/lib/nutricart/slots.db",
		"NUTRICART_DEFAULT_CATEGORY":    "Dairy",
		"NUTRICART_CURRENCY":            "usd",
		"NUTRICART_LOCALE":              "en-US",
		"NUTRICART_NOTIFY_DELAY":        "1500ms",
		"NUTRICART_UPLOAD_MAX_BYTES":    "1048576",
		"NUTRICART_SESSION_SIGNING_KEY": "0123456789abcdef0123",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Environment != "production" || cfg.IsLocal() {
		t.Errorf("unexpected environment: %s", cfg.Environment)
	}
	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Backend.URL != "https://shop.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 3*time.Second {
		t.Errorf("unexpected backend timeout: %s", cfg.Backend.Timeout)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Catalog.DefaultCategory != "dairy" {
		t.Errorf("expected lowercased category, got %s", cfg.Catalog.DefaultCategory)
	}
	if cfg.Display.Currency != "USD" {
		t.Errorf("expected uppercased currency, got %s", cfg.Display.Currency)
	}
	if cfg.Notify.Delay != 1500*time.Millisecond {
		t.Errorf("unexpected notify delay: %s", cfg.Notify.Delay)
	}
	if cfg.Upload.MaxBytes != 1<<20 {
		t.Errorf("unexpected upload limit: %d", cfg.Upload.MaxBytes)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"NUTRICART_ENV":            "production",
		"NUTRICART_BACKEND_URL":    "ftp://nope",
		"NUTRICART_STORAGE_DRIVER": "redis",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	want := map[string]bool{"Backend.URL": true, "Storage.Driver": true, "Session.SigningKey": true}
	fields := vErr.Fields()
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	for _, f := range fields {
		if !want[f] {
			t.Errorf("unexpected field %s", f)
		}
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport NUTRICART_SERVER_PORT=7070\nNUTRICART_CURRENCY=\"eur\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	env := map[string]string{"NUTRICART_SERVER_PORT": "6060"}
	cfg, err := Load(context.Background(), WithEnvFile(path), WithEnvMap(env), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected env map to win over .env, got %s", cfg.Server.Port)
	}
	if cfg.Display.Currency != "EUR" {
		t.Errorf("expected currency from .env, got %s", cfg.Display.Currency)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load(context.Background(), WithEnvFile(filepath.Join(t.TempDir(), "absent.env")), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}
