package document

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"fineclub/internal/adapters/metrics"
	"fineclub/internal/adapters/storage"
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Driver        string
	DataDir       string
	SQLitePath    string
	PostgresDSN   string
	Redis         RedisOptions
	MongoURI      string
	MongoDatabase string
	SlowQuery     time.Duration // SQL backends only; zero uses the default
}

// Open builds the configured store, wrapped with timing instrumentation.
// PRE: cfg.Driver is one of the Driver constants
// POST: Returns a ready store; SQL backends are migrated
func Open(ctx context.Context, cfg Config, collector *metrics.Collector) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case DriverMemory:
		s = NewMemoryStore()
	case DriverFile, "":
		s, err = NewFileStore(cfg.DataDir)
	case DriverSQLite:
		dsn := cfg.SQLitePath + "?_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
		s, err = openSQL(ctx, storage.DialectSQLite, dsn, cfg.SlowQuery, collector)
	case DriverPostgres:
		s, err = openSQL(ctx, storage.DialectPostgres, cfg.PostgresDSN, cfg.SlowQuery, collector)
	case DriverRedis:
		s, err = NewRedisStore(ctx, cfg.Redis)
	case DriverMongo:
		s, err = NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("store_opened", "driver", cfg.Driver)
	return NewTimedStore(s, collector), nil
}

func openSQL(ctx context.Context, d storage.Dialect, dsn string, slow time.Duration, collector *metrics.Collector) (*SQLStore, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s unreachable: %w", d, err)
	}
	if err := storage.MigrateDB(ctx, db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", d, err)
	}
	slog.Info("schema_migrated", "dialect", string(d), "version", storage.LatestSchemaVersion())
	return NewSQLStore(storage.NewTimedDB(db, d, collector, slow), db.Close), nil
}
