package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(FileEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8000)
	}
	if cfg.Storage.UploadsDir != "uploads" || cfg.Storage.StorageDir != "storage" || cfg.Storage.WorkDir != "." {
		t.Errorf("Storage dirs = %q %q %q", cfg.Storage.UploadsDir, cfg.Storage.StorageDir, cfg.Storage.WorkDir)
	}
	if cfg.Storage.Retention != 720*time.Hour {
		t.Errorf("Storage.Retention = %v, want 720h", cfg.Storage.Retention)
	}
	if cfg.Upload.MaxFileSize != 104857600 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 104857600)
	}
	if cfg.Identifier.Column != "Uid" {
		t.Errorf("Identifier.Column = %q, want Uid", cfg.Identifier.Column)
	}
	if cfg.Identifier.Separator != "-" || cfg.Identifier.SampleSize != 5 {
		t.Errorf("Identifier = %+v", cfg.Identifier)
	}
	if len(cfg.Identifier.Aliases) != 7 || cfg.Identifier.Aliases[0] != "uid" {
		t.Errorf("Identifier.Aliases = %v", cfg.Identifier.Aliases)
	}
	if got := cfg.Security.CORSAllowedOrigins; len(got) != 1 || got[0] != "http://localhost:3000" {
		t.Errorf("Security.CORSAllowedOrigins = %v", got)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate.RequestsPerMinute = %d, want %d", cfg.Rate.RequestsPerMinute, 100)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DIR", "/var/lib/groups")
	t.Setenv("IDENTIFIER_SAMPLE_SIZE", "10")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Storage.StorageDir != "/var/lib/groups" {
		t.Errorf("Storage.StorageDir = %q", cfg.Storage.StorageDir)
	}
	if cfg.Identifier.SampleSize != 10 {
		t.Errorf("Identifier.SampleSize = %d, want %d", cfg.Identifier.SampleSize, 10)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("UPLOAD_DIR", "spool")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 7070)
	}
	if cfg.Storage.UploadsDir != "spool" {
		t.Errorf("Storage.UploadsDir = %q, want %q", cfg.Storage.UploadsDir, "spool")
	}
}

func TestLoad_PrimaryBeatsAlt(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for non-numeric SERVER_PORT")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("error should mention SERVER_PORT: %v", err)
	}
}

func TestLoad_Duration(t *testing.T) {
	t.Setenv("SERVER_READ_TIMEOUT", "45s")
	t.Setenv("UPLOAD_MAX_WAIT_TIME", "1m30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want %v", cfg.Server.ReadTimeout, 45*time.Second)
	}
	if cfg.Upload.MaxWaitTime != 90*time.Second {
		t.Errorf("Upload.MaxWaitTime = %v, want %v", cfg.Upload.MaxWaitTime, 90*time.Second)
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12 , 192.168.0.0/16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if len(cfg.Security.TrustedProxies) != len(expected) {
		t.Fatalf("TrustedProxies length = %d, want %d", len(cfg.Security.TrustedProxies), len(expected))
	}
	for i, v := range expected {
		if cfg.Security.TrustedProxies[i] != v {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.Security.TrustedProxies[i], v)
		}
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.yaml")
	doc := `
server:
  port: 8123
storage:
  storage_dir: archives
  retention: 48h
identifier:
  column: client_id
  aliases: [cid]
  pattern: '^[A-Z0-9-]+$'
metrics:
  enabled: false
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(FileEnv, path)
	// Environment wins over the file.
	t.Setenv("SERVER_PORT", "8999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8999 {
		t.Errorf("Server.Port = %d, want env value 8999", cfg.Server.Port)
	}
	if cfg.Storage.StorageDir != "archives" {
		t.Errorf("Storage.StorageDir = %q, want archives", cfg.Storage.StorageDir)
	}
	if cfg.Storage.Retention != 48*time.Hour {
		t.Errorf("Storage.Retention = %v, want 48h", cfg.Storage.Retention)
	}
	if cfg.Storage.UploadsDir != "uploads" {
		t.Errorf("Storage.UploadsDir = %q, keys absent from the file keep defaults", cfg.Storage.UploadsDir)
	}
	if cfg.Identifier.Column != "client_id" || len(cfg.Identifier.Aliases) != 1 {
		t.Errorf("Identifier = %+v", cfg.Identifier)
	}
	if cfg.Identifier.Pattern != "^[A-Z0-9-]+$" {
		t.Errorf("Identifier.Pattern = %q", cfg.Identifier.Pattern)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false from file")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for missing config file")
	}
}

func TestCheckRequired(t *testing.T) {
	type section struct {
		Token string `env:"TEST_TOKEN" required:"true"`
	}
	type root struct {
		S section
	}

	var r root
	if err := checkRequired(reflectValue(&r)); err == nil {
		t.Fatal("checkRequired() expected error for empty TEST_TOKEN")
	}

	r.S.Token = "set"
	if err := checkRequired(reflectValue(&r)); err != nil {
		t.Errorf("checkRequired() error = %v", err)
	}
}

func reflectValue(p any) reflect.Value { return reflect.ValueOf(p).Elem() }

func validConfig() *Config {
	return &Config{
		Server:     ServerConfig{Port: 8000, ShutdownTimeout: time.Second},
		Storage:    StorageConfig{UploadsDir: "u", StorageDir: "s", WorkDir: ".", Retention: time.Hour, SweepInterval: time.Minute, SweepEnabled: true},
		Upload:     UploadConfig{MaxFileSize: 1, MaxWaitTime: time.Second, Timeout: time.Minute},
		Identifier: IdentifierConfig{Column: "Uid", Separator: "-", SampleSize: 5},
		Rate:       RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 10},
		Logging:    LoggingConfig{Level: "info", Format: "text"},
		Metrics:    MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"empty storage dir", func(c *Config) { c.Storage.StorageDir = " " }, "STORAGE_DIR"},
		{"zero retention", func(c *Config) { c.Storage.Retention = 0 }, "STORAGE_RETENTION"},
		{"bad pattern", func(c *Config) { c.Identifier.Pattern = "([" }, "IDENTIFIER_PATTERN"},
		{"zero sample size", func(c *Config) { c.Identifier.SampleSize = 0 }, "IDENTIFIER_SAMPLE_SIZE"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "METRICS_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %s: %v", tt.want, err)
			}
		})
	}

	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() on valid config = %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"SERVER_PORT", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
		{"localhost", 443, "localhost:443"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		got := cfg.Addr()
		if got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString(t *testing.T) {
	str := validConfig().String()
	for _, want := range []string{"Port: 8000", `Column: "Uid"`} {
		if !strings.Contains(str, want) {
			t.Errorf("String() = %q, want it to contain %q", str, want)
		}
	}
}
