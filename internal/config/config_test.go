package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StorageDriver != StorageMemory {
		t.Fatalf("unexpected storage driver: %q", cfg.StorageDriver)
	}
	if cfg.PaymentProvider != PaymentProviderStub {
		t.Fatalf("unexpected payment provider: %q", cfg.PaymentProvider)
	}
	if cfg.ServiceName != "peg-league-api" {
		t.Fatalf("unexpected service name: %q", cfg.ServiceName)
	}
	if !cfg.AnubisCircuit.Enabled || cfg.AnubisCircuit.FailureThreshold != 5 {
		t.Fatalf("unexpected anubis circuit defaults: %+v", cfg.AnubisCircuit)
	}
	if cfg.NotificationWorkers != 4 {
		t.Fatalf("unexpected notification workers: %d", cfg.NotificationWorkers)
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `foo=bar, uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected uptrace dsn: %q", cfg.UptraceDSN)
	}
}

func TestLoad_StorageDriverValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "sqlite")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for unknown STORAGE_DRIVER")
		}
	})

	t.Run("postgres needs explicit url in prod", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvProd)
		t.Setenv("STAFF_TOKEN", "staff")
		t.Setenv("STORAGE_DRIVER", StoragePostgres)
		t.Setenv("DB_URL", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when DB_URL is missing in prod")
		}
	})
}

func TestLoad_StaffTokenRequiredInProd(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("STAFF_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when STAFF_TOKEN is empty in prod")
	}
}

func TestLoad_PaymentProvider(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("stripe requires secret key", func(t *testing.T) {
		t.Setenv("PAYMENT_PROVIDER", PaymentProviderStripe)
		t.Setenv("PAYMENT_SECRET_KEY", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when PAYMENT_SECRET_KEY is empty")
		}
	})

	t.Run("stripe with key", func(t *testing.T) {
		t.Setenv("PAYMENT_PROVIDER", "Stripe")
		t.Setenv("PAYMENT_SECRET_KEY", "sk_test_123")
		t.Setenv("PAYMENT_TIMEOUT", "4s")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.PaymentProvider != PaymentProviderStripe {
			t.Fatalf("unexpected payment provider: %q", cfg.PaymentProvider)
		}
		if cfg.PaymentTimeout != 4*time.Second {
			t.Fatalf("unexpected payment timeout: %s", cfg.PaymentTimeout)
		}
	})

	t.Run("invalid stub status", func(t *testing.T) {
		t.Setenv("PAYMENT_PROVIDER", PaymentProviderStub)
		t.Setenv("PAYMENT_STUB_STATUS", "refunded")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid PAYMENT_STUB_STATUS")
		}
	})
}

func TestLoad_CircuitConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("override", func(t *testing.T) {
		t.Setenv("PAYMENT_CIRCUIT_ENABLED", "false")
		t.Setenv("PAYMENT_CIRCUIT_FAILURE_COUNT", "3")
		t.Setenv("PAYMENT_CIRCUIT_OPEN_TIMEOUT", "20s")
		t.Setenv("PAYMENT_CIRCUIT_HALF_OPEN_MAX_REQ", "1")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.PaymentCircuit.Enabled {
			t.Fatalf("expected payment circuit disabled")
		}
		if cfg.PaymentCircuit.FailureThreshold != 3 || cfg.PaymentCircuit.OpenTimeout != 20*time.Second || cfg.PaymentCircuit.HalfOpenMaxReq != 1 {
			t.Fatalf("unexpected payment circuit: %+v", cfg.PaymentCircuit)
		}
	})

	t.Run("invalid failure count", func(t *testing.T) {
		t.Setenv("ANUBIS_CIRCUIT_FAILURE_COUNT", "0")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for ANUBIS_CIRCUIT_FAILURE_COUNT=0")
		}
	})

	t.Run("invalid open timeout", func(t *testing.T) {
		t.Setenv("ANUBIS_CIRCUIT_OPEN_TIMEOUT", "soon")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid ANUBIS_CIRCUIT_OPEN_TIMEOUT")
		}
	})
}

func TestLoad_NotificationConfig(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("enabled requires endpoint", func(t *testing.T) {
		t.Setenv("NOTIFICATION_ENABLED", "true")
		t.Setenv("NOTIFICATION_ENDPOINT", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when NOTIFICATION_ENDPOINT is empty")
		}
	})

	t.Run("workers must be positive", func(t *testing.T) {
		t.Setenv("NOTIFICATION_WORKERS", "0")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for NOTIFICATION_WORKERS=0")
		}
	})
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_SERVICE_NAME", "peg-league-api-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "peg-league-api-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsDefaultAndParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("default wildcard", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
			t.Fatalf("unexpected default CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("comma separated parsing", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, http://localhost:5173 ")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Fatalf("unexpected CORS origins length: %d", len(cfg.CORSAllowedOrigins))
		}
		if cfg.CORSAllowedOrigins[0] != "https://a.example.com" || cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})
}

func TestLoad_CacheConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("CACHE_ENABLED", "")
		t.Setenv("CACHE_TTL", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.CacheEnabled || cfg.CacheTTL != 30*time.Second {
			t.Fatalf("unexpected cache defaults: enabled=%v ttl=%s", cfg.CacheEnabled, cfg.CacheTTL)
		}
	})

	t.Run("invalid ttl", func(t *testing.T) {
		t.Setenv("CACHE_TTL", "0s")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for CACHE_TTL=0s")
		}
	})

	t.Run("invalid enabled", func(t *testing.T) {
		t.Setenv("CACHE_ENABLED", "maybe")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid CACHE_ENABLED")
		}
	})
}

func TestLoad_DBDisablePreparedBinaryResultParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "not-bool")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid DB_DISABLE_PREPARED_BINARY_RESULT")
	}
}
