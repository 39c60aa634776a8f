package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "DATABASE_DSN", "INVOICE_FALLBACK_AUTHOR", "NUMBER_RETRIES", "REDIS_ADDR", "CACHE_DRIVER"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Invoice.FallbackAuthor {
		t.Error("FallbackAuthor should default to false")
	}
	if cfg.Invoice.NumberRetries != 3 {
		t.Errorf("NumberRetries = %d, want 3", cfg.Invoice.NumberRetries)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Cache.RedisAddr != "" || cfg.Cache.Driver != "" {
		t.Errorf("Cache = %+v, want disabled", cfg.Cache)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_NAME", "shop")
	t.Setenv("INVOICE_FALLBACK_AUTHOR", "yes")
	t.Setenv("NUMBER_RETRIES", "5")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("CACHE_DRIVER", "Memory")

	cfg := Load()
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if got := cfg.Database.DSN(); got != "shop.db" {
		t.Errorf("DSN() = %q, want shop.db", got)
	}
	if !cfg.Invoice.FallbackAuthor {
		t.Error("FallbackAuthor should be true")
	}
	if cfg.Invoice.NumberRetries != 5 {
		t.Errorf("NumberRetries = %d, want 5", cfg.Invoice.NumberRetries)
	}
	if cfg.Cache.Driver != "memory" {
		t.Errorf("Cache.Driver = %q, want memory", cfg.Cache.Driver)
	}
}

func TestDatabaseDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "postgres key value",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "faktur", SSLMode: "disable"},
			want: "host=db port=5432 user=u password=p dbname=faktur sslmode=disable",
		},
		{
			name: "mysql",
			cfg:  DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", DBName: "faktur"},
			want: "u:p@tcp(db:3306)/faktur?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name: "raw dsn wins",
			cfg:  DatabaseConfig{Driver: "postgres", RawDSN: "postgres://x@y/z"},
			want: "postgres://x@y/z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "faktur", SSLMode: "disable"}
	if got, want := d.URL(), "postgres://u:p@db:5432/faktur?sslmode=disable"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
	d.RawDSN = "postgresql://a@b/c"
	if got := d.URL(); got != d.RawDSN {
		t.Errorf("URL() = %q, want raw dsn", got)
	}
}
