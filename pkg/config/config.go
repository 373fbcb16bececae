package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gitlab.connectwisedev.com/catalog-insights/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultBatchSize = 5000
	DefaultBlockSize = 64 << 20
	DefaultCacheTTL  = 5 * time.Minute
	maxWorkers       = 8
)

// Config is everything the ingestion engine and the analytics layer need
// from the environment. It is built once in main and passed down.
type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	DBSchema  string
	TableName string

	BatchSize int
	Workers   int
	BlockSize int64

	RedisAddr   string
	CacheTTL    time.Duration
	MetricsAddr string
}

// DefaultWorkers caps parallelism to be gentle with the database.
func DefaultWorkers() int {
	return min(runtime.NumCPU(), maxWorkers)
}

// Load reads Config from the process environment. Call LoadEnv first to
// pick up .env.local in local mode.
func Load() (Config, error) {
	cfg := Config{
		DBDriver:    getenv("DB_DRIVER", DriverPostgres),
		DBHost:      getenv("DB_HOST", "localhost"),
		DBPort:      getenv("DB_PORT", "5432"),
		DBUser:      os.Getenv("DB_USER"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      os.Getenv("DB_NAME"),
		DBSSLMode:   getenv("DB_SSLMODE", "disable"),
		SQLitePath:  getenv("SQLITE_PATH", "catalog.db"),
		TableName:   getenv("TABLE_NAME", "products"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		cfg.DBSchema = getenv("DB_SCHEMA", "trent")
	case DriverSQLite:
		cfg.DBSchema = getenv("DB_SCHEMA", "main")
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	var err error
	if cfg.BatchSize, err = intEnv("BATCH_SIZE", DefaultBatchSize); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = intEnv("WORKERS", DefaultWorkers()); err != nil {
		return Config{}, err
	}
	blockSize, err := intEnv("BLOCK_SIZE", DefaultBlockSize)
	if err != nil {
		return Config{}, err
	}
	cfg.BlockSize = int64(blockSize)

	cfg.CacheTTL = DefaultCacheTTL
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if cfg.CacheTTL, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("invalid CACHE_TTL %q: %w", v, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the engine relies on.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.BlockSize < 1 {
		return fmt.Errorf("block size must be positive, got %d", c.BlockSize)
	}
	return c.Table().Validate()
}

// Table returns the destination table identity.
func (c Config) Table() models.TableRef {
	return models.TableRef{Schema: c.DBSchema, Name: c.TableName}
}

// DSN returns the driver-specific data source name.
func (c Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return SQLiteDSN(c.SQLitePath)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// SQLiteDSN opens the file in WAL mode with a busy timeout so that
// several ingestion workers can write to the same file.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)", path)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
