package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Crawler  CrawlerConfig
	Sites    SitesConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Relay    RelayConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type CrawlerConfig struct {
	Workers      int
	MaxPages     int
	FetchTimeout time.Duration
	RateLimitMin time.Duration
	RateLimitMax time.Duration
	Adaptive     bool
	UserAgents   []string
}

// SitesConfig holds per-site entry points. Country, language and currency
// ride along with every request spawned from the site's homepage.
type SitesConfig struct {
	TheSting   SiteSeed
	Mohagni    SiteSeed
	MarcJacobs SiteSeed
	Arket      SiteSeed
}

type SiteSeed struct {
	HomeURL  string
	Country  string
	Language string
	Currency string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Crawler: CrawlerConfig{
			Workers:      getIntOrDefault("CRAWLER_WORKERS", 4),
			MaxPages:     getIntOrDefault("CRAWLER_MAX_PAGES", 50),
			FetchTimeout: getDurationOrDefault("CRAWLER_FETCH_TIMEOUT", 30*time.Second),
			RateLimitMin: getDurationOrDefault("CRAWLER_RATE_LIMIT_MIN", 2*time.Second),
			RateLimitMax: getDurationOrDefault("CRAWLER_RATE_LIMIT_MAX", 8*time.Second),
			Adaptive:     getBoolOrDefault("CRAWLER_ADAPTIVE_RATE_LIMIT", true),
			UserAgents:   getStringSliceOrDefault("CRAWLER_USER_AGENTS", nil),
		},
		Sites: SitesConfig{
			TheSting: SiteSeed{
				HomeURL:  getEnvOrDefault("THESTING_HOME_URL", "https://www.thesting.com/nl-nl"),
				Country:  getEnvOrDefault("THESTING_COUNTRY", "NL"),
				Language: getEnvOrDefault("THESTING_LANGUAGE", "nl"),
				Currency: getEnvOrDefault("THESTING_CURRENCY", "EUR"),
			},
			Mohagni: SiteSeed{
				HomeURL:  getEnvOrDefault("MOHAGNI_HOME_URL", "https://mohagni.com"),
				Country:  getEnvOrDefault("MOHAGNI_COUNTRY", "PK"),
				Language: getEnvOrDefault("MOHAGNI_LANGUAGE", "en"),
				Currency: getEnvOrDefault("MOHAGNI_CURRENCY", "PKR"),
			},
			MarcJacobs: SiteSeed{
				HomeURL:  getEnvOrDefault("MARCJACOBS_HOME_URL", "https://www.marcjacobs.com"),
				Country:  getEnvOrDefault("MARCJACOBS_COUNTRY", "US"),
				Language: getEnvOrDefault("MARCJACOBS_LANGUAGE", "en"),
				Currency: getEnvOrDefault("MARCJACOBS_CURRENCY", "USD"),
			},
			Arket: SiteSeed{
				HomeURL:  getEnvOrDefault("ARKET_HOME_URL", "https://www.arket.com/ko-kr/index.html"),
				Country:  getEnvOrDefault("ARKET_COUNTRY", "KR"),
				Language: getEnvOrDefault("ARKET_LANGUAGE", "ko"),
				Currency: getEnvOrDefault("ARKET_CURRENCY", "KRW"),
			},
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "catalog_crawler"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
			MinConns: int32(getIntOrDefault("DB_MIN_CONNS", 2)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Relay: RelayConfig{
			PollInterval: getDurationOrDefault("RELAY_POLL_INTERVAL", 5*time.Second),
			BatchSize:    getIntOrDefault("RELAY_BATCH_SIZE", 100),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Crawler.Workers < 1 {
		return fmt.Errorf("CRAWLER_WORKERS must be at least 1")
	}

	if c.Crawler.MaxPages < 1 {
		return fmt.Errorf("CRAWLER_MAX_PAGES must be at least 1")
	}

	if c.Crawler.RateLimitMin > c.Crawler.RateLimitMax {
		return fmt.Errorf("CRAWLER_RATE_LIMIT_MIN cannot be greater than CRAWLER_RATE_LIMIT_MAX")
	}

	if c.Relay.BatchSize < 1 {
		return fmt.Errorf("RELAY_BATCH_SIZE must be at least 1")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// Seed returns the configured entry point for a registered site name.
func (s SitesConfig) Seed(name string) (SiteSeed, bool) {
	switch name {
	case "thesting":
		return s.TheSting, true
	case "mohagni":
		return s.Mohagni, true
	case "marcjacobs":
		return s.MarcJacobs, true
	case "arket":
		return s.Arket, true
	default:
		return SiteSeed{}, false
	}
}
