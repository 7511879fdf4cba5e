package api_gateway_config

import (
	"fmt"
	"time"

	"github.com/NordCoder/Recipebox/internal/obs"
	"github.com/NordCoder/Recipebox/internal/outbox"
	pg "github.com/NordCoder/Recipebox/internal/repository/postgres"
	redisrepo "github.com/NordCoder/Recipebox/internal/repository/redis"
)

const MinJWTSecretBytes = 32

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"

	NotifyLog    = "log"
	NotifyOutbox = "outbox"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    "recipebox/" + c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

type Auth struct {
	JWTSecret           string        `mapstructure:"jwt_secret"`
	Issuer              string        `mapstructure:"issuer"`
	Audience            string        `mapstructure:"audience"`
	Realm               string        `mapstructure:"realm"`
	AccessTTL           time.Duration `mapstructure:"access_ttl"`
	RefreshTTL          time.Duration `mapstructure:"refresh_ttl"`
	VerifyTTL           time.Duration `mapstructure:"verify_ttl"`
	BcryptCost          int           `mapstructure:"bcrypt_cost"`
	MaxConcurrentHashes int           `mapstructure:"max_concurrent_hashes"`
	Store               string        `mapstructure:"store"`
	PurgeInterval       time.Duration `mapstructure:"purge_interval"`
}

type Notify struct {
	Mode          string        `mapstructure:"mode"`
	Timeout       time.Duration `mapstructure:"timeout"`
	VerifyBaseURL string        `mapstructure:"verify_base_url"`
}

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type CORS struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Secrets struct {
	AWSSecretID string `mapstructure:"aws_secret_id"`
	AWSRegion   string `mapstructure:"aws_region"`
}

type Config struct {
	App     App                 `mapstructure:"app"`
	Server  Server              `mapstructure:"server"`
	DB      pg.Config           `mapstructure:"db"`
	Redis   redisrepo.Config    `mapstructure:"redis"`
	Auth    Auth                `mapstructure:"auth"`
	Notify  Notify              `mapstructure:"notify"`
	Outbox  outbox.RunnerConfig `mapstructure:"outbox"`
	Kafka   Kafka               `mapstructure:"kafka"`
	CORS    CORS                `mapstructure:"cors"`
	OTEL    OTEL                `mapstructure:"otel"`
	Log     Log                 `mapstructure:"log"`
	Secrets Secrets             `mapstructure:"secrets"`
}

// NeedsPostgres reports whether any configured component reads or writes postgres.
// Accounts live in postgres unless the whole credential state is in memory.
func (c *Config) NeedsPostgres() bool {
	return c.Auth.Store != StoreMemory || c.Notify.Mode == NotifyOutbox
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < MinJWTSecretBytes {
		return ErrConfig(fmt.Sprintf("auth.jwt_secret must be at least %d bytes", MinJWTSecretBytes))
	}
	if c.Auth.Issuer == "" || c.Auth.Audience == "" {
		return ErrConfig("auth.issuer and auth.audience are required")
	}
	switch c.Auth.Store {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		return ErrConfig(fmt.Sprintf("auth.store %q is not one of postgres, redis, memory", c.Auth.Store))
	}
	switch c.Notify.Mode {
	case NotifyLog:
	case NotifyOutbox:
		if len(c.Kafka.Brokers) == 0 {
			return ErrConfig("notify.mode outbox requires kafka.brokers")
		}
	default:
		return ErrConfig(fmt.Sprintf("notify.mode %q is not one of log, outbox", c.Notify.Mode))
	}
	if c.NeedsPostgres() && c.DB.DSN == "" {
		return ErrConfig("db.dsn is required")
	}
	if c.Auth.Store == StoreRedis && c.Redis.Addr == "" {
		return ErrConfig("redis.addr is required")
	}
	return nil
}
