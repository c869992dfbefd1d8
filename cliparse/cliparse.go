package cliparse

import (
	"errors"
	"flag"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/danielhkuo/quickly-poll/store"
)

type Config struct {
	Port          int
	Env           string
	AuthSecret    string
	CORSOrigins   []string
	RabbitMQURL   string
	RabbitMQQueue string
	Backends      BackendConfig
}

// BackendConfig holds every storage profile variable. Profiles turns it
// into the ordered list the selector probes.
type BackendConfig struct {
	KVURL         string `env:"KV_URL"`
	KVToken       string `env:"KV_REST_API_TOKEN"`
	UpstashURL    string `env:"UPSTASH_REDIS_URL"`
	UpstashToken  string `env:"UPSTASH_REDIS_TOKEN"`
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"SQLITE_PATH"`
}

type envConfig struct {
	Port          int      `env:"PORT" env-default:"3318"`
	Env           string   `env:"APP_ENV" env-default:"local"`
	AuthSecret    string   `env:"AUTH_SECRET"`
	CORSOrigins   []string `env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
	RabbitMQURL   string   `env:"RABBITMQ_URL"`
	RabbitMQQueue string   `env:"RABBITMQ_QUEUE" env-default:"poll-votes"`
	Backends      BackendConfig
}

// Profiles lists the storage profiles in probe order
func (b BackendConfig) Profiles() []store.Profile {
	return []store.Profile{
		{Name: "kv", Kind: store.KindRedis, URL: b.KVURL, Token: b.KVToken, TokenRequired: true},
		{Name: "upstash", Kind: store.KindRedis, URL: b.UpstashURL, Token: b.UpstashToken, TokenRequired: true},
		{Name: "redis", Kind: store.KindRedis, URL: b.RedisURL, Token: b.RedisPassword},
		{Name: "postgres", Kind: store.KindPostgres, URL: b.DatabaseURL},
		{Name: "sqlite", Kind: store.KindSQLite, URL: b.SQLitePath},
	}
}

// ParseFlags reads the environment and lets flags override it
func ParseFlags(args []string) (Config, error) {
	var env envConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}

	var cfg Config
	var redisURL string

	fs := flag.NewFlagSet("quickly-poll", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.Env, "env", "", "Environment: local, dev or prod")

	// Storage profiles
	fs.StringVar(&redisURL, "redis", "", "Redis URL")
	fs.StringVar(&cfg.Backends.DatabaseURL, "d", "", "PostgreSQL URL")
	fs.StringVar(&cfg.Backends.SQLitePath, "sqlite", "", "SQLite database file")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AuthSecret, "auth-secret", "", "Token signing secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		cfg.Port = env.Port
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, errors.New("invalid port")
	}
	if cfg.Env == "" {
		cfg.Env = env.Env
	}

	databaseURL, sqlitePath := cfg.Backends.DatabaseURL, cfg.Backends.SQLitePath
	cfg.Backends = env.Backends
	if redisURL != "" {
		cfg.Backends.RedisURL = redisURL
	}
	if databaseURL != "" {
		cfg.Backends.DatabaseURL = databaseURL
	}
	if sqlitePath != "" {
		cfg.Backends.SQLitePath = sqlitePath
	}

	cfg.CORSOrigins = env.CORSOrigins
	cfg.RabbitMQURL = env.RabbitMQURL
	cfg.RabbitMQQueue = env.RabbitMQQueue

	// Secrets - MUST be provided
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = env.AuthSecret
	}
	if cfg.AuthSecret == "" {
		return Config{}, errors.New("AUTH_SECRET required")
	}

	return cfg, nil
}
