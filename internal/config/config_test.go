package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("expected default port 8080 got %d", cfg.AppPort)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected default session ttl got %v", cfg.SessionTTL)
	}
	if cfg.ObjectStore.Driver != StorageDriverS3 {
		t.Fatalf("expected s3 driver got %q", cfg.ObjectStore.Driver)
	}
	if cfg.ObjectStore.Folder != "share-frame" {
		t.Fatalf("unexpected folder %q", cfg.ObjectStore.Folder)
	}
	if cfg.RateLimit.Requests != 10 || cfg.RateLimit.Window != time.Minute {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHAREFRAME_PORT", "9090")
	t.Setenv("SHAREFRAME_STORAGE_DRIVER", " MinIO ")
	t.Setenv("SHAREFRAME_STORAGE_BUCKET", "videos")
	t.Setenv("SHAREFRAME_SMTP_HOST", "smtp.example.com")
	t.Setenv("SHAREFRAME_SESSION_TTL", "2h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 9090 {
		t.Fatalf("expected port override got %d", cfg.AppPort)
	}
	if cfg.ObjectStore.Driver != StorageDriverMinio {
		t.Fatalf("expected normalized driver got %q", cfg.ObjectStore.Driver)
	}
	if cfg.ObjectStore.Bucket != "videos" {
		t.Fatalf("expected bucket override got %q", cfg.ObjectStore.Bucket)
	}
	if cfg.Mail.Host != "smtp.example.com" {
		t.Fatalf("expected smtp host override got %q", cfg.Mail.Host)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("expected ttl override got %v", cfg.SessionTTL)
	}
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("SHAREFRAME_PORT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		JWTSecret:   "secret",
		SessionTTL:  time.Hour,
		ObjectStore: ObjectStoreConfig{Driver: StorageDriverS3, Bucket: "videos"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missingSecret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"missingBucket", func(c *Config) { c.ObjectStore.Bucket = "" }, "BUCKET"},
		{"minioEndpoint", func(c *Config) { c.ObjectStore.Driver = StorageDriverMinio }, "ENDPOINT"},
		{"unknownDriver", func(c *Config) { c.ObjectStore.Driver = "ftp" }, "unknown storage driver"},
		{"zeroTTL", func(c *Config) { c.SessionTTL = 0 }, "SESSION_TTL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q got %v", tc.want, err)
			}
		})
	}

	memory := Config{JWTSecret: "secret", SessionTTL: time.Hour, ObjectStore: ObjectStoreConfig{Driver: StorageDriverMemory}}
	if err := memory.Validate(); err != nil {
		t.Fatalf("memory driver should not require a bucket: %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Fatalf("level %q: got %v want %v", in, got, want)
		}
	}
}
