// Package config loads server settings from the environment.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"fineclub/internal/adapters/storage"
	"fineclub/internal/adapters/storage/document"
	"fineclub/internal/domain/week"

	"github.com/joho/godotenv"
)

// EnvProduction is the APP_ENV value that enables strict checks.
const EnvProduction = "production"

const (
	defaultEmailFrom      = "Fine Club <noreply@fineclub.local>"
	defaultMemberCacheTTL = 30 * time.Second
	csrfKeyBytes          = 32
)

// Config holds every setting the server reads at startup.
type Config struct {
	Env  string
	Addr string

	AdminToken       string
	AdminTokenBcrypt string

	Location *time.Location
	Store    document.Config

	ResendAPIKey string
	EmailFrom    string
	EmailReplyTo string
	ClubName     string

	CSRFKey            []byte
	SecureCookies      bool
	TrustedOrigins     []string
	RateLimitPerSecond int

	AutoTasks      bool
	MemberCacheTTL time.Duration
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads an optional .env file, then the process environment.
// PRE: none
// POST: Returns a validated Config, or an error describing every bad key
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}
	var errs []error

	cfg := Config{
		Env:              get("APP_ENV", "development"),
		AdminToken:       getenv("ADMIN_TOKEN"),
		AdminTokenBcrypt: getenv("ADMIN_TOKEN_BCRYPT"),
		ResendAPIKey:     getenv("RESEND_API_KEY"),
		EmailFrom:        get("EMAIL_FROM", defaultEmailFrom),
		EmailReplyTo:     getenv("EMAIL_REPLY_TO"),
		ClubName:         get("CLUB_NAME", ""),
		Store: document.Config{
			Driver:      get("STORE_DRIVER", document.DriverFile),
			DataDir:     get("DATA_DIR", "data"),
			SQLitePath:  get("SQLITE_PATH", "fineclub.db"),
			PostgresDSN: getenv("POSTGRES_DSN"),
			Redis: document.RedisOptions{
				Addr:     get("REDIS_ADDR", "localhost:6379"),
				Password: getenv("REDIS_PASSWORD"),
				Prefix:   get("REDIS_PREFIX", "fineclub:"),
			},
			MongoURI:      get("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: get("MONGO_DATABASE", "fineclub"),
		},
	}

	cfg.Addr = get("ADDR", "")
	if cfg.Addr == "" {
		cfg.Addr = ":" + get("PORT", "3000")
	}

	tz := get("CLUB_TIMEZONE", week.DefaultTimezone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("CLUB_TIMEZONE %q: %w", tz, err))
	}
	cfg.Location = loc

	switch cfg.Store.Driver {
	case document.DriverMemory, document.DriverFile, document.DriverSQLite,
		document.DriverPostgres, document.DriverRedis, document.DriverMongo:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not supported", cfg.Store.Driver))
	}
	if cfg.Store.Driver == document.DriverPostgres && cfg.Store.PostgresDSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres"))
	}

	if cfg.Store.Redis.DB, err = intOr(getenv("REDIS_DB"), 0); err != nil {
		errs = append(errs, fmt.Errorf("REDIS_DB: %w", err))
	}
	if cfg.RateLimitPerSecond, err = intOr(getenv("RATE_LIMIT_PER_SECOND"), 10); err != nil || cfg.RateLimitPerSecond <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_SECOND must be a positive integer"))
	}
	if n, err := intOr(getenv("SLOW_REQUEST_MS"), 1); err != nil || n <= 0 {
		errs = append(errs, errors.New("SLOW_REQUEST_MS must be a positive integer"))
	}
	if n, err := intOr(getenv("SLOW_QUERY_MS"), int(storage.DefaultSlowQuery/time.Millisecond)); err != nil || n <= 0 {
		errs = append(errs, errors.New("SLOW_QUERY_MS must be a positive integer"))
	} else {
		cfg.Store.SlowQuery = time.Duration(n) * time.Millisecond
	}
	if cfg.AutoTasks, err = boolOr(getenv("AUTO_TASKS"), true); err != nil {
		errs = append(errs, fmt.Errorf("AUTO_TASKS: %w", err))
	}
	cfg.MemberCacheTTL = defaultMemberCacheTTL
	if v := getenv("MEMBER_CACHE_TTL"); v != "" {
		if cfg.MemberCacheTTL, err = time.ParseDuration(v); err != nil || cfg.MemberCacheTTL < 0 {
			errs = append(errs, fmt.Errorf("MEMBER_CACHE_TTL %q must be a non-negative duration", v))
		}
	}

	cfg.SecureCookies = cfg.IsProduction()
	if v := getenv("TRUSTED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.TrustedOrigins = append(cfg.TrustedOrigins, o)
			}
		}
	}

	if v := getenv("CSRF_KEY"); v != "" {
		key, err := hex.DecodeString(v)
		if err != nil || len(key) != csrfKeyBytes {
			errs = append(errs, fmt.Errorf("CSRF_KEY must be %d bytes of hex", csrfKeyBytes))
		}
		cfg.CSRFKey = key
	}

	if cfg.IsProduction() {
		if cfg.CSRFKey == nil {
			errs = append(errs, errors.New("CSRF_KEY is required in production"))
		}
		if cfg.AdminToken == "" && cfg.AdminTokenBcrypt == "" {
			errs = append(errs, errors.New("ADMIN_TOKEN or ADMIN_TOKEN_BCRYPT is required in production"))
		}
	} else if cfg.CSRFKey == nil {
		// A fixed development key keeps form tokens valid across restarts.
		cfg.CSRFKey = []byte("fineclub-dev-csrf-key-32-bytes!!")
		slog.Warn("csrf_dev_key", "hint", "set CSRF_KEY for production")
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func intOr(v string, fallback int) (int, error) {
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(strings.TrimSpace(v))
}

func boolOr(v string, fallback bool) (bool, error) {
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}
