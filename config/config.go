package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config содержит все настройки движка
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	Postgres struct {
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
		SSLMode  string
		Timeout  time.Duration
		PoolSize int // размер пула соединений
	}

	Redis struct {
		Enabled  bool
		Host     string
		Port     int
		Password string
		DB       int
	}

	Kafka struct {
		Enabled     bool
		Brokers     string
		EventsTopic string
	}

	Autoscout struct {
		BaseURL  string
		Username string
		Password string
		Timeout  time.Duration
	}

	Motornet struct {
		TokenURL    string
		ClientID    string
		Username    string
		Password    string
		Timeout     time.Duration
		AutoWLTPURL string
		VcomWLTPURL string
	}

	Engine struct {
		SyncInterval      time.Duration
		SyncBatchSize     int
		EnrichInterval    time.Duration
		EnrichBatchSize   int
		CatalogInterval   time.Duration
		ImageFetchTimeout time.Duration
	}

	Metrics struct {
		Enabled  bool
		Endpoint string
	}

	Security struct {
		JWTSecret        string
		JWTExpirationMin time.Duration
	}
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	configFile := "config"
	if configPath != "" {
		configFile = configPath
	}

	var cfg Config

	// Настройка Viper
	viper.SetConfigName(configFile)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("../config")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Чтение конфигурационного файла
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		// Продолжаем, если файл не найден, будем использовать только переменные окружения
	}

	// Установка значений по умолчанию
	setDefaults()

	// Привязка переменных окружения
	bindEnvVariables()

	// Чтение конфигурации в структуру
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка десериализации конфигурации: %w", err)
	}

	// Получаем окружение
	cfg.ENV = viper.GetString("env")
	if cfg.ENV == "" {
		cfg.ENV = "development"
		if envVar := os.Getenv("APP_ENV"); envVar != "" {
			cfg.ENV = envVar
		}
	}

	return &cfg, nil
}

// setDefaults устанавливает значения по умолчанию
func setDefaults() {
	// Основные настройки
	viper.SetDefault("appName", "azurenet-engine")
	viper.SetDefault("version", "1.0.0")
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("env", "development")

	// Настройки сервера
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", "10s")
	viper.SetDefault("server.writeTimeout", "10s")
	viper.SetDefault("server.shutdownTimeout", "5s")

	// Настройки Postgres
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.user", "postgres")
	viper.SetDefault("postgres.password", "postgres")
	viper.SetDefault("postgres.dbname", "azurenet")
	viper.SetDefault("postgres.sslmode", "disable")
	viper.SetDefault("postgres.timeout", "5s")
	viper.SetDefault("postgres.poolSize", 10)

	// Настройки Redis
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Настройки Kafka
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", "localhost:9092")
	viper.SetDefault("kafka.eventsTopic", "autoscout-listing-events")

	// Настройки AutoScout24
	viper.SetDefault("autoscout.baseURL", "https://listing-creation.api.autoscout24.com")
	viper.SetDefault("autoscout.timeout", "30s")

	// Настройки Motornet
	viper.SetDefault("motornet.tokenURL", "https://webservice.motornet.it/auth/realms/webservices/protocol/openid-connect/token")
	viper.SetDefault("motornet.clientID", "webservice")
	viper.SetDefault("motornet.timeout", "30s")
	viper.SetDefault("motornet.autoWLTPURL",
		"https://webservice.motornet.it/api/v2_0/rest/public/usato/auto/dettaglio/wltp?codice_motornet={codice}")
	viper.SetDefault("motornet.vcomWLTPURL",
		"https://webservice.motornet.it/api/v3_0/rest/public/usato/vcom/dettaglio/wltp?codice_motornet_uni={codice}")

	// Настройки движка
	viper.SetDefault("engine.syncInterval", "60s")
	viper.SetDefault("engine.syncBatchSize", 5)
	viper.SetDefault("engine.enrichInterval", "300s")
	viper.SetDefault("engine.enrichBatchSize", 20)
	viper.SetDefault("engine.catalogInterval", "24h")
	viper.SetDefault("engine.imageFetchTimeout", "20s")

	// Настройки метрик
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.endpoint", "/metrics")

	// Настройки безопасности
	viper.SetDefault("security.jwtSecret", "your-secret-key")
	viper.SetDefault("security.jwtExpirationMin", "60m")
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables() {
	// Основные настройки
	viper.BindEnv("appName", "APP_NAME")
	viper.BindEnv("version", "APP_VERSION")
	viper.BindEnv("logLevel", "LOG_LEVEL")
	viper.BindEnv("env", "APP_ENV")

	// Настройки сервера
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.readTimeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.writeTimeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.shutdownTimeout", "SERVER_SHUTDOWN_TIMEOUT")

	// Настройки Postgres
	viper.BindEnv("postgres.host", "POSTGRES_HOST")
	viper.BindEnv("postgres.port", "POSTGRES_PORT")
	viper.BindEnv("postgres.user", "POSTGRES_USER")
	viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	viper.BindEnv("postgres.dbname", "POSTGRES_DBNAME")
	viper.BindEnv("postgres.sslmode", "POSTGRES_SSLMODE")
	viper.BindEnv("postgres.timeout", "POSTGRES_TIMEOUT")
	viper.BindEnv("postgres.poolSize", "POSTGRES_POOL_SIZE")

	// Настройки Redis
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	// Настройки Kafka
	viper.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	viper.BindEnv("kafka.eventsTopic", "KAFKA_EVENTS_TOPIC")

	// Настройки AutoScout24
	viper.BindEnv("autoscout.baseURL", "AUTOSCOUT_BASE_URL")
	viper.BindEnv("autoscout.username", "AUTOSCOUT_USERNAME")
	viper.BindEnv("autoscout.password", "AUTOSCOUT_PASSWORD")
	viper.BindEnv("autoscout.timeout", "AUTOSCOUT_TIMEOUT")

	// Настройки Motornet
	viper.BindEnv("motornet.tokenURL", "MOTORNET_TOKEN_URL")
	viper.BindEnv("motornet.clientID", "MOTORNET_CLIENT_ID")
	viper.BindEnv("motornet.username", "MOTORNET_USERNAME")
	viper.BindEnv("motornet.password", "MOTORNET_PASSWORD")
	viper.BindEnv("motornet.timeout", "MOTORNET_TIMEOUT")
	viper.BindEnv("motornet.autoWLTPURL", "MOTORNET_AUTO_WLTP_URL")
	viper.BindEnv("motornet.vcomWLTPURL", "MOTORNET_VCOM_WLTP_URL")

	// Настройки движка
	viper.BindEnv("engine.syncInterval", "ENGINE_SYNC_INTERVAL")
	viper.BindEnv("engine.syncBatchSize", "ENGINE_SYNC_BATCH_SIZE")
	viper.BindEnv("engine.enrichInterval", "ENGINE_ENRICH_INTERVAL")
	viper.BindEnv("engine.enrichBatchSize", "ENGINE_ENRICH_BATCH_SIZE")
	viper.BindEnv("engine.catalogInterval", "ENGINE_CATALOG_INTERVAL")
	viper.BindEnv("engine.imageFetchTimeout", "ENGINE_IMAGE_FETCH_TIMEOUT")

	// Настройки метрик
	viper.BindEnv("metrics.enabled", "METRICS_ENABLED")
	viper.BindEnv("metrics.endpoint", "METRICS_ENDPOINT")

	// Настройки безопасности
	viper.BindEnv("security.jwtSecret", "JWT_SECRET")
	viper.BindEnv("security.jwtExpirationMin", "JWT_EXPIRATION_MIN")
}
