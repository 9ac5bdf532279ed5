package config

import (
	"time"

	"github.com/gotify/configor"
)

type Configuration struct {
	App struct {
		ListenAddr string `default:"" env:"APP_HOST"`
		Port       int    `default:"8080"  env:"APP_PORT"`
	}
	Database struct {
		Host           string `default:"127.0.0.1" env:"DB_HOST"`
		Port           string `default:"5432" env:"DB_PORT"`
		Name           string `default:"proposals" env:"DB_NAME"`
		User           string `default:"postgres" env:"DB_USER"`
		Password       string `default:"postgres" env:"DB_PASSWORD"`
		MigrateOnStart *bool  `default:"true" env:"DB_MIGRATE_ON_START"`
		DebugMode      *bool  `default:"false" env:"DB_DEBUG_MODE"`
	}
	Auth struct {
		JWTSecret string `default:"" env:"JWT_SECRET"`
	}
	Redis struct {
		Addr          string `default:"127.0.0.1:6379" env:"REDIS_ADDR"`
		Password      string `default:"" env:"REDIS_PASSWORD"`
		DB            int    `default:"0" env:"REDIS_DB"`
		DialTimeoutMs int    `default:"5000" env:"REDIS_DIAL_TIMEOUT_MS"`
	}
	Events struct {
		Topic            string `default:"domain_events" env:"EVENTS_TOPIC"`
		MaxLen           int64  `default:"100000" env:"EVENTS_MAX_LEN"`
		PublishTimeoutMs int    `default:"5000" env:"EVENTS_PUBLISH_TIMEOUT_MS"`
		ArchiveBucket    string `default:"" env:"EVENTS_ARCHIVE_BUCKET"`
	}
	Sweeper struct {
		InProcess           *bool `default:"false" env:"SWEEPER_IN_PROCESS"`
		IntervalMin         int   `default:"360" env:"SWEEPER_INTERVAL_MIN"`
		FirstRunDelaySec    int   `default:"60" env:"SWEEPER_FIRST_RUN_DELAY_SEC"`
		CallTimeoutSec      int   `default:"10" env:"SWEEPER_CALL_TIMEOUT_SEC"`
		SoftDeadlineSec     int   `default:"300" env:"SWEEPER_SOFT_DEADLINE_SEC"`
		MaxAttempts         int   `default:"3" env:"SWEEPER_MAX_ATTEMPTS"`
		Concurrency         int   `default:"1" env:"SWEEPER_CONCURRENCY"`
		ResponseWindowHours int   `default:"72" env:"PROPOSAL_RESPONSE_WINDOW_HOURS"`
	}
	Notification struct {
		Enabled        *bool  `default:"false" env:"NOTIFICATION_ENABLED"`
		Group          string `default:"notifications" env:"NOTIFICATION_GROUP"`
		Consumer       string `default:"" env:"NOTIFICATION_CONSUMER"`
		From           string `default:"noreply@proposals.local" env:"NOTIFICATION_FROM"`
		DedupTTLHours  int    `default:"168" env:"NOTIFICATION_DEDUP_TTL_HOURS"`
		BlockTimeoutMs int    `default:"5000" env:"NOTIFICATION_BLOCK_TIMEOUT_MS"`
	}
	Smtp struct {
		User       string `default:"" env:"SMTP_USER"`
		Password   string `default:"" env:"SMTP_PASSWORD"`
		Host       string `default:"" env:"SMTP_HOST"`
		Port       string `default:"" env:"SMTP_PORT"`
		TLSEnabled *bool  `default:"true" env:"SMTP_TLS_ENABLED"`
	}
	S3 struct {
		Endpoint        string `default:"" env:"S3_ENDPOINT"`
		AccessKeyID     string `default:"" env:"S3_ACCESS_KEY_ID"`
		SecretAccessKey string `default:"" env:"S3_SECRET_ACCESS_KEY"`
		UseSSL          *bool  `default:"false" env:"S3_USE_SSL"`
	}
	Metrics struct {
		PushGatewayURL string `default:"" env:"METRICS_PUSHGATEWAY_URL"`
		Job            string `default:"proposal_timeout_sweeper" env:"METRICS_JOB"`
	}
}

func configFiles() []string {
	return []string{"config.yml"}
}

func InitConfig() *Configuration {
	conf := new(Configuration)
	err := configor.New(&configor.Config{}).Load(conf, configFiles()...)
	if err != nil {
		panic(err)
	}
	return conf
}

func (c *Configuration) SweepInterval() time.Duration {
	return time.Duration(c.Sweeper.IntervalMin) * time.Minute
}

func (c *Configuration) SweepFirstRunDelay() time.Duration {
	return time.Duration(c.Sweeper.FirstRunDelaySec) * time.Second
}

func (c *Configuration) SweepCallTimeout() time.Duration {
	return time.Duration(c.Sweeper.CallTimeoutSec) * time.Second
}

func (c *Configuration) SweepSoftDeadline() time.Duration {
	return time.Duration(c.Sweeper.SoftDeadlineSec) * time.Second
}

func (c *Configuration) ResponseWindow() time.Duration {
	return time.Duration(c.Sweeper.ResponseWindowHours) * time.Hour
}

func (c *Configuration) PublishTimeout() time.Duration {
	return time.Duration(c.Events.PublishTimeoutMs) * time.Millisecond
}

func (c *Configuration) RedisDialTimeout() time.Duration {
	return time.Duration(c.Redis.DialTimeoutMs) * time.Millisecond
}

func (c *Configuration) NotificationDedupTTL() time.Duration {
	return time.Duration(c.Notification.DedupTTLHours) * time.Hour
}

func (c *Configuration) NotificationBlockTimeout() time.Duration {
	return time.Duration(c.Notification.BlockTimeoutMs) * time.Millisecond
}
