package cfg

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type ConfigDatabase struct {
	Driver string `env:"DB_DRIVER"`
	DbConn string `env:"DB_CONNECTION_STRING"`
}

type Cache struct {
	Enabled     bool          `env:"CACHE_ENABLED" env-default:"true"`
	Driver      string        `env:"CACHE_DRIVER" env-default:"memory"`
	CacheAddr   string        `env:"CACHE_ADDR" env-default:"localhost:6379"`
	Prefix      string        `env:"CACHE_PREFIX" env-default:"cachefn"`
	DefaultTTL  float64       `env:"CACHE_DEFAULT_TTL" env-default:"1.1"`
	TTLUnit     time.Duration `env:"CACHE_TTL_UNIT" env-default:"1m"`
	FunctionTTL FunctionTTL   `env:"CACHE_FUNCTION_TTL"`
}

// FunctionTTL is the per-function TTL table read from a JSON object such as
// {"total": 30, "breakdown": 5}.
type FunctionTTL map[string]float64

// SetValue implements cleanenv.Setter.
func (f *FunctionTTL) SetValue(s string) error {
	if s == "" {
		*f = FunctionTTL{}
		return nil
	}

	table := make(FunctionTTL)
	if err := json.Unmarshal([]byte(s), &table); err != nil {
		return fmt.Errorf("invalid CACHE_FUNCTION_TTL: %w", err)
	}

	for name, ttl := range table {
		if ttl <= 0 {
			return fmt.Errorf("invalid CACHE_FUNCTION_TTL: ttl for %q must be positive", name)
		}
	}

	*f = table
	return nil
}

type Log struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
	JSON  bool   `env:"LOG_JSON" env-default:"true"`
}

type Server struct {
	Port            int           `env:"HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type Config struct {
	ConfigDatabase ConfigDatabase
	Cache          Cache
	Log            Log
	Server         Server
}

func (c Config) Validate() error {
	switch c.Cache.Driver {
	case DriverMemory, DriverRedis:
	case DriverMongo, DriverPostgres:
		if c.ConfigDatabase.DbConn == "" {
			return fmt.Errorf("CACHE_DRIVER=%s requires DB_CONNECTION_STRING", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q", c.Cache.Driver)
	}

	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("CACHE_DEFAULT_TTL must be positive")
	}

	if c.Cache.TTLUnit <= 0 {
		return fmt.Errorf("CACHE_TTL_UNIT must be positive")
	}

	return nil
}

var (
	cfg    Config
	loaded bool
	mu     sync.Mutex
)

// Get reads the environment once and returns the config. It panics on an
// invalid environment.
func Get() Config {
	mu.Lock()
	defer mu.Unlock()

	if loaded {
		return cfg
	}

	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		panic(err)
	}

	if err := c.Validate(); err != nil {
		panic(err)
	}

	cfg = c
	loaded = true
	return cfg
}

func SetConfig(c Config) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// Reset forgets the loaded config so the next Get reads the environment again.
func Reset() {
	mu.Lock()
	cfg = Config{}
	loaded = false
	mu.Unlock()
}
