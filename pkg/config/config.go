package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Cart         CartConfig
	Cron         CronConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Eventing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PIZZERIA_APP_ENV" required:"true"`
	Port         string `envconfig:"PIZZERIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PIZZERIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PIZZERIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PIZZERIA_SERVICE_KIND" default:"api"`
	// MetricsPort exposes /metrics from the background workers; empty disables it.
	MetricsPort string `envconfig:"PIZZERIA_METRICS_PORT"`
}

type DBConfig struct {
	DSN    string `envconfig:"PIZZERIA_DB_DSN"`
	Driver string `envconfig:"PIZZERIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PIZZERIA_DB_HOST"`
	LegacyPort     int    `envconfig:"PIZZERIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PIZZERIA_DB_USER"`
	LegacyPassword string `envconfig:"PIZZERIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PIZZERIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PIZZERIA_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"PIZZERIA_SQLITE_PATH" default:"pizzeria.db"`

	MaxOpenConns    int           `envconfig:"PIZZERIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PIZZERIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PIZZERIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PIZZERIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PIZZERIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PIZZERIA_REDIS_ADDR"`
	Password     string        `envconfig:"PIZZERIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PIZZERIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PIZZERIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PIZZERIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PIZZERIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PIZZERIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PIZZERIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies tokens minted by the hosted auth provider.
type JWTConfig struct {
	Secret            string `envconfig:"PIZZERIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PIZZERIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PIZZERIA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PIZZERIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PIZZERIA_AUTO_MIGRATE" default:"false"`
	// CatalogPush subscribes the API to catalog_changed events.
	CatalogPush bool `envconfig:"PIZZERIA_CATALOG_PUSH" default:"true"`
}

type EventingConfig struct {
	Transport            string        `envconfig:"PIZZERIA_EVENT_TRANSPORT" default:"pubsub"`
	ConsumerDedupeTTL    time.Duration `envconfig:"PIZZERIA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	CatalogRefreshPeriod time.Duration `envconfig:"PIZZERIA_CATALOG_REFRESH_PERIOD" default:"5m"`
}

func (e EventingConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(e.Transport)) {
	case TransportPubSub, TransportKafka:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s", EnvEventTransport, TransportPubSub, TransportKafka)
}

// UsesKafka reports whether outbox rows are shipped through Kafka instead of Pub/Sub.
func (e EventingConfig) UsesKafka() bool {
	return strings.EqualFold(strings.TrimSpace(e.Transport), TransportKafka)
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PIZZERIA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PIZZERIA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PIZZERIA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic         string `envconfig:"PIZZERIA_PUBSUB_ORDERS_TOPIC" default:"pz-order-events"`
	OrdersSubscription  string `envconfig:"PIZZERIA_PUBSUB_ORDERS_SUBSCRIPTION" default:"pz-order-events-analytics"`
	CatalogTopic        string `envconfig:"PIZZERIA_PUBSUB_CATALOG_TOPIC" default:"pz-catalog-events"`
	CatalogSubscription string `envconfig:"PIZZERIA_PUBSUB_CATALOG_SUBSCRIPTION" default:"pz-catalog-events-api"`
}

type KafkaConfig struct {
	Brokers      string        `envconfig:"PIZZERIA_KAFKA_BROKERS" default:"localhost:9092"`
	ClientID     string        `envconfig:"PIZZERIA_KAFKA_CLIENT_ID" default:"pizzeria-outbox"`
	WriteTimeout time.Duration `envconfig:"PIZZERIA_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

// BrokerList splits the comma separated broker string.
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"PIZZERIA_BIGQUERY_DATASET" default:"pizzeria"`
	OrderFactsTable string `envconfig:"PIZZERIA_BIGQUERY_ORDER_FACTS_TABLE" default:"order_facts"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PIZZERIA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PIZZERIA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PIZZERIA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"PIZZERIA_OUTBOX_RETENTION_DAYS" default:"30"`
}

// CartConfig controls session carts. IdleEviction drops in-memory sessions not
// touched for that long; the redis snapshot outlives them until TTL.
type CartConfig struct {
	TTL          time.Duration `envconfig:"PIZZERIA_CART_TTL" default:"72h"`
	IdleEviction time.Duration `envconfig:"PIZZERIA_SESSION_IDLE_EVICTION" default:"30m"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"PIZZERIA_CRON_INTERVAL" default:"1h"`
	LockTTL    time.Duration `envconfig:"PIZZERIA_CRON_LOCK_TTL" default:"55m"`
	RollupDays int           `envconfig:"PIZZERIA_CRON_ROLLUP_DAYS" default:"3"`
	ReportZone string        `envconfig:"PIZZERIA_REPORT_TIMEZONE" default:"America/Sao_Paulo"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PIZZERIA_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite || db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
