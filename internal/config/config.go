package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	env "github.com/Skotchmaster/ebooks_storefront/pkg/config"
)

type Config struct {
	ServiceName string `yaml:"service_name"`
	LogLevel    string `yaml:"log_level"`

	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Cart     CartConfig     `yaml:"cart"`
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	CSRF              bool          `yaml:"csrf"`
}

// APIConfig points at the remote bookstore REST API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	Secret          string        `yaml:"secret"`
	CookieName      string        `yaml:"cookie_name"`
	TTL             time.Duration `yaml:"ttl"`
	RestoreInterval time.Duration `yaml:"restore_interval"`
	SecureCookie    bool          `yaml:"secure_cookie"`
}

// DatabaseConfig selects postgres when URL is set, sqlite otherwise.
type DatabaseConfig struct {
	URL        string `yaml:"url"`
	SQLitePath string `yaml:"sqlite_path"`
}

type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	KeyPrefix     string        `yaml:"key_prefix"`
	StaleTime     time.Duration `yaml:"stale_time"`
	GCTime        time.Duration `yaml:"gc_time"`
	SearchStale   time.Duration `yaml:"search_stale_time"`
	SearchGC      time.Duration `yaml:"search_gc_time"`
}

type SearchConfig struct {
	ElasticURL string `yaml:"elastic_url"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Index      string `yaml:"index"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type PricingConfig struct {
	TaxRate     float64 `yaml:"tax_rate"`
	ShippingFee float64 `yaml:"shipping_fee"`
}

type CartConfig struct {
	RemoteSync bool `yaml:"remote_sync"`
}

func Defaults() Config {
	return Config{
		ServiceName: "storefront",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:              8080,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			ReadHeaderTimeout: 3 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CSRF:              true,
		},
		API: APIConfig{
			BaseURL: "http://localhost:5117/api",
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			CookieName:      "sid",
			TTL:             7 * 24 * time.Hour,
			RestoreInterval: 5 * time.Minute,
		},
		Database: DatabaseConfig{
			SQLitePath: "storefront.db",
		},
		Cache: CacheConfig{
			KeyPrefix:   "storefront:catalog:",
			StaleTime:   5 * time.Minute,
			GCTime:      10 * time.Minute,
			SearchStale: 2 * time.Minute,
			SearchGC:    5 * time.Minute,
		},
		Search: SearchConfig{
			Index: "books",
		},
		Kafka: KafkaConfig{
			Topic: "storefront_events",
		},
		Pricing: PricingConfig{
			TaxRate: 0.08,
		},
	}
}

// Load reads .env, then the optional YAML file named by STOREFRONT_CONFIG, then
// environment overrides. Later sources win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("env_file_skipped", "reason", err.Error())
	}

	cfg := Defaults()
	if path := os.Getenv("STOREFRONT_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ServiceName = env.EnvDefault("SERVICE_NAME", cfg.ServiceName)
	cfg.LogLevel = env.EnvDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.Server.Port = env.EnvIntDefault("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ShutdownTimeout = env.EnvDurationDefault("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.AllowedOrigins = env.EnvCSVDefault("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)
	cfg.Server.CSRF = env.EnvBoolDefault("CSRF_ENABLED", cfg.Server.CSRF)

	cfg.API.BaseURL = env.EnvDefault("API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout = env.EnvDurationDefault("API_TIMEOUT", cfg.API.Timeout)

	cfg.Session.Secret = env.EnvDefault("SESSION_SECRET", cfg.Session.Secret)
	cfg.Session.CookieName = env.EnvDefault("SESSION_COOKIE", cfg.Session.CookieName)
	cfg.Session.TTL = env.EnvDurationDefault("SESSION_TTL", cfg.Session.TTL)
	cfg.Session.RestoreInterval = env.EnvDurationDefault("SESSION_RESTORE_INTERVAL", cfg.Session.RestoreInterval)
	cfg.Session.SecureCookie = env.EnvBoolDefault("SESSION_SECURE_COOKIE", cfg.Session.SecureCookie)

	cfg.Database.URL = env.EnvDefault("DATABASE_URL", cfg.Database.URL)
	cfg.Database.SQLitePath = env.EnvDefault("SQLITE_PATH", cfg.Database.SQLitePath)

	cfg.Cache.RedisAddr = env.EnvDefault("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = env.EnvDefault("REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = env.EnvIntDefault("REDIS_DB", cfg.Cache.RedisDB)

	cfg.Search.ElasticURL = env.EnvDefault("ES_URL", cfg.Search.ElasticURL)
	cfg.Search.User = env.EnvDefault("ES_USER", cfg.Search.User)
	cfg.Search.Password = env.EnvDefault("ES_PASSWORD", cfg.Search.Password)
	cfg.Search.Index = env.EnvDefault("ES_INDEX", cfg.Search.Index)

	cfg.Kafka.Brokers = env.EnvCSVDefault("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = env.EnvDefault("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Pricing.TaxRate = env.EnvFloatDefault("TAX_RATE", cfg.Pricing.TaxRate)
	cfg.Pricing.ShippingFee = env.EnvFloatDefault("SHIPPING_FEE", cfg.Pricing.ShippingFee)

	cfg.Cart.RemoteSync = env.EnvBoolDefault("CART_REMOTE_SYNC", cfg.Cart.RemoteSync)
}

func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Pricing.TaxRate < 0 || c.Pricing.ShippingFee < 0 {
		return fmt.Errorf("pricing values must not be negative")
	}
	if c.Cache.StaleTime > c.Cache.GCTime || c.Cache.SearchStale > c.Cache.SearchGC {
		return fmt.Errorf("cache stale time must not exceed gc time")
	}
	return nil
}
