package email_notifier_config

import (
	"time"

	"github.com/NordCoder/Recipebox/internal/obs"
	pginfra "github.com/NordCoder/Recipebox/internal/repository/postgres"
)

const (
	SenderLog  = "log"
	SenderSMTP = "smtp"
)

type KafkaIn struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	FromBeginning bool     `mapstructure:"from_beginning"`
}

type SMTP struct {
	Addr       string        `mapstructure:"addr"`
	From       string        `mapstructure:"from"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	UseTLS     bool          `mapstructure:"use_tls"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SubjPrefix string        `mapstructure:"subj_prefix"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	DB            pginfra.Config `mapstructure:"db"`
	In            KafkaIn        `mapstructure:"kafka_in"`
	Sender        string         `mapstructure:"sender"`
	SMTP          SMTP           `mapstructure:"smtp"`
	VerifyBaseURL string         `mapstructure:"verify_base_url"`
	Server        Server         `mapstructure:"server"`
	OTEL          obs.OTELConfig `mapstructure:"otel"`
	Log           obs.LogConfig  `mapstructure:"log"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

func (c *Config) Validate() error {
	if c.DB.DSN == "" {
		return ErrConfig("db.dsn is required")
	}
	if len(c.In.Brokers) == 0 || c.In.Topic == "" {
		return ErrConfig("kafka_in.brokers and kafka_in.topic are required")
	}
	switch c.Sender {
	case SenderLog:
	case SenderSMTP:
		if c.SMTP.Addr == "" || c.SMTP.From == "" {
			return ErrConfig("smtp.addr and smtp.from are required for the smtp sender")
		}
	default:
		return ErrConfig("sender must be log or smtp")
	}
	return nil
}
