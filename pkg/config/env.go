package config

const EnvPrefix = "PIZZERIA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	TransportPubSub = "pubsub"
	TransportKafka  = "kafka"
)

const (
	EnvAppEnv   = "PIZZERIA_APP_ENV"
	EnvPort     = "PIZZERIA_APP_PORT"
	EnvLogLevel = "PIZZERIA_LOG_LEVEL"

	EnvDBDSN  = "PIZZERIA_DB_DSN"
	EnvDBHost = "PIZZERIA_DB_HOST"
	EnvDBUser = "PIZZERIA_DB_USER"
	EnvDBName = "PIZZERIA_DB_NAME"

	EnvUseSQLite = "PIZZERIA_USE_SQLITE"

	EnvRedisURL = "PIZZERIA_REDIS_URL"

	EnvJWTSecret = "PIZZERIA_JWT_SECRET"
	EnvJWTIssuer = "PIZZERIA_JWT_ISSUER"

	EnvEventTransport = "PIZZERIA_EVENT_TRANSPORT"
	EnvKafkaBrokers   = "PIZZERIA_KAFKA_BROKERS"

	EnvPubSubCatalogTopic = "PIZZERIA_PUBSUB_CATALOG_TOPIC"
	EnvCartTTL            = "PIZZERIA_CART_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
