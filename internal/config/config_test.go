package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENVIRONMENT", "PORT", "DATABASE_URL", "STORAGE_DRIVER", "REDIS_URL", "LOG_LEVEL",
		"FRONTEND_URL", "AUTH_PROVIDER", "JWT_SECRET", "CASDOOR_ENDPOINT", "CASDOOR_CERTIFICATE",
		"KAFKA_BROKERS", "KAFKA_TOPIC_PREFIX", "EXPIRY_SWEEP_INTERVAL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
	if cfg.StorageDriver != StoragePostgres {
		t.Errorf("StorageDriver = %q, want %q", cfg.StorageDriver, StoragePostgres)
	}
	if cfg.AuthProvider != AuthJWT {
		t.Errorf("AuthProvider = %q, want %q", cfg.AuthProvider, AuthJWT)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.ExpirySweepInterval != 0 {
		t.Errorf("ExpirySweepInterval = %v, want 0", cfg.ExpirySweepInterval)
	}
	if cfg.IsProduction() {
		t.Error("IsProduction() = true, want false")
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "test.env")
	content := "ENVIRONMENT=production\nSTORAGE_DRIVER=memory\nJWT_SECRET=abc\nKAFKA_BROKERS=a:9092, b:9092\nEXPIRY_SWEEP_INTERVAL=30s\nLOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		for _, k := range []string{"ENVIRONMENT", "STORAGE_DRIVER", "JWT_SECRET", "KAFKA_BROKERS", "EXPIRY_SWEEP_INTERVAL", "LOG_LEVEL"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("expected production environment")
	}
	if cfg.StorageDriver != StorageMemory {
		t.Errorf("StorageDriver = %q, want memory", cfg.StorageDriver)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.ExpirySweepInterval != 30*time.Second {
		t.Errorf("ExpirySweepInterval = %v, want 30s", cfg.ExpirySweepInterval)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"jwt ok", Config{StorageDriver: StorageMemory, AuthProvider: AuthJWT, JWTSecret: "x"}, false},
		{"jwt missing secret", Config{StorageDriver: StorageMemory, AuthProvider: AuthJWT}, true},
		{"casdoor missing endpoint", Config{StorageDriver: StoragePostgres, AuthProvider: AuthCasdoor}, true},
		{"casdoor ok", Config{StorageDriver: StoragePostgres, AuthProvider: AuthCasdoor, Casdoor: CasdoorConfig{Endpoint: "http://c", Cert: "cert"}}, false},
		{"bad storage", Config{StorageDriver: "mongo", AuthProvider: AuthJWT, JWTSecret: "x"}, true},
		{"bad auth", Config{StorageDriver: StorageMemory, AuthProvider: "ldap"}, true},
		{"negative sweep", Config{StorageDriver: StorageMemory, AuthProvider: AuthJWT, JWTSecret: "x", ExpirySweepInterval: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
