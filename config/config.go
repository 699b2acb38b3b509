package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"bramble-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL (character registry store)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"bramble"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Tracing
	TracingEnabled      bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingOTLPEndpoint string `env:"TRACING_OTLP_ENDPOINT" env-default:"localhost:4317"`
	TracingOTLPProtocol string `env:"TRACING_OTLP_PROTOCOL" env-default:"grpc"`
	TracingOTLPInsecure bool   `env:"TRACING_OTLP_INSECURE" env-default:"true"`

	// Graph projection
	GraphSyncEnabled bool   `env:"GRAPH_SYNC_ENABLED" env-default:"false"`
	GraphDBHost      string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort      int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser      string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword  string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Kafka producer (lifecycle events)
	KafkaBrokers        []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaEventsEnabled  bool     `env:"KAFKA_EVENTS_ENABLED" env-default:"false"`
	KafkaCharacterTopic string   `env:"KAFKA_CHARACTER_TOPIC" env-default:"character-events"`
	KafkaBatchSize      int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeoutMS int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks   int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`

	// MCP server
	MCPEnabled bool `env:"MCP_ENABLED" env-default:"false"`

	// Character registry sync (PayloadCMS-compatible)
	RegistryURL            string        `env:"REGISTRY_URL" env-default:""`
	RegistryAPIKey         string        `env:"REGISTRY_API_KEY" env-default:""`
	RegistryTimeout        time.Duration `env:"REGISTRY_TIMEOUT" env-default:"30s"`
	RegistryEnabled        bool          `env:"REGISTRY_ENABLED" env-default:"false"`
	RegistryCharactersPath string        `env:"REGISTRY_CHARACTERS_PATH" env-default:"/api/characters"`

	// LLM provider (profile generation)
	LLMProviderURL        string        `env:"LLM_PROVIDER_URL" env-default:"https://api.openai.com/v1"`
	LLMAPIKey             string        `env:"LLM_API_KEY" env-default:""`
	LLMModelName          string        `env:"LLM_MODEL_NAME" env-default:"gpt-4o-mini"`
	LLMTimeout            time.Duration `env:"LLM_TIMEOUT" env-default:"60s"`
	LLMMaxTokens          int           `env:"LLM_MAX_TOKENS" env-default:"400"`
	LLMTemperature        float64       `env:"LLM_TEMPERATURE" env-default:"0.7"`
	MaxProfilesPerRequest int           `env:"MAX_PROFILES_PER_REQUEST" env-default:"4"`
	MotivationWordLimit   int           `env:"MOTIVATION_WORD_LIMIT" env-default:"50"`
	SignatureWordLimit    int           `env:"VISUAL_SIGNATURE_WORD_LIMIT" env-default:"40"`

	// Relationship network traversal
	NetworkDefaultDepth int `env:"NETWORK_DEFAULT_DEPTH" env-default:"2"`
	NetworkMaxDepth     int `env:"NETWORK_MAX_DEPTH" env-default:"5"`
}
