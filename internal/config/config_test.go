package config

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"fineclub/internal/adapters/storage/document"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Location.String() != "Asia/Seoul" {
		t.Errorf("Location = %v", cfg.Location)
	}
	if cfg.Store.Driver != document.DriverFile || cfg.Store.DataDir != "data" || cfg.Store.SlowQuery != 50*time.Millisecond {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if !cfg.AutoTasks || cfg.RateLimitPerSecond != 10 || cfg.MemberCacheTTL != 30*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if len(cfg.CSRFKey) != 32 || cfg.SecureCookies {
		t.Errorf("dev CSRF settings wrong: key=%d secure=%v", len(cfg.CSRFKey), cfg.SecureCookies)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"PORT":             "8080",
		"CLUB_TIMEZONE":    "UTC",
		"STORE_DRIVER":     "redis",
		"REDIS_ADDR":       "cache:6379",
		"REDIS_DB":         "2",
		"AUTO_TASKS":       "false",
		"MEMBER_CACHE_TTL": "0s",
		"SLOW_QUERY_MS":    "120",
		"TRUSTED_ORIGINS":  "a.example, b.example",
		"CSRF_KEY":         strings.Repeat("ab", 32),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Location != time.UTC {
		t.Errorf("Addr=%q Location=%v", cfg.Addr, cfg.Location)
	}
	if cfg.Store.Redis.Addr != "cache:6379" || cfg.Store.Redis.DB != 2 || cfg.Store.SlowQuery != 120*time.Millisecond {
		t.Errorf("Redis = %+v", cfg.Store.Redis)
	}
	if cfg.AutoTasks || cfg.MemberCacheTTL != 0 {
		t.Errorf("AutoTasks=%v TTL=%v", cfg.AutoTasks, cfg.MemberCacheTTL)
	}
	if len(cfg.TrustedOrigins) != 2 || cfg.TrustedOrigins[1] != "b.example" {
		t.Errorf("TrustedOrigins = %v", cfg.TrustedOrigins)
	}
	if cfg.CSRFKey[0] != 0xab {
		t.Errorf("CSRFKey not decoded")
	}
}

func TestFromEnv_AddrWinsOverPort(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"ADDR": "127.0.0.1:9000", "PORT": "8080"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"timezone", map[string]string{"CLUB_TIMEZONE": "Mars/Olympus"}, "CLUB_TIMEZONE"},
		{"driver", map[string]string{"STORE_DRIVER": "cassandra"}, "STORE_DRIVER"},
		{"postgres dsn", map[string]string{"STORE_DRIVER": "postgres"}, "POSTGRES_DSN"},
		{"rate limit", map[string]string{"RATE_LIMIT_PER_SECOND": "0"}, "RATE_LIMIT_PER_SECOND"},
		{"slow query", map[string]string{"SLOW_QUERY_MS": "fast"}, "SLOW_QUERY_MS"},
		{"auto tasks", map[string]string{"AUTO_TASKS": "maybe"}, "AUTO_TASKS"},
		{"cache ttl", map[string]string{"MEMBER_CACHE_TTL": "-1s"}, "MEMBER_CACHE_TTL"},
		{"csrf short", map[string]string{"CSRF_KEY": "abcd"}, "CSRF_KEY"},
		{"production csrf", map[string]string{"APP_ENV": "production", "ADMIN_TOKEN": "x"}, "CSRF_KEY is required"},
		{"production admin", map[string]string{"APP_ENV": "production", "CSRF_KEY": strings.Repeat("00", 32)}, "ADMIN_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envOf(tt.env))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestFromEnv_Production(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"APP_ENV":            "production",
		"CSRF_KEY":           strings.Repeat("01", 32),
		"ADMIN_TOKEN_BCRYPT": "$2a$10$abcdefghijklmnopqrstuv",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.IsProduction() || !cfg.SecureCookies {
		t.Errorf("expected production with secure cookies")
	}
}
