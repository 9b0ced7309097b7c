package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB       DBConfig
	Telegram TelegramConfig
	API      APIConfig
	Store    StoreConfig
	Cart     CartConfig
	Log      LogConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token         string
	NotifyDismiss time.Duration // how long "added to cart" notices stay visible
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration // 0 means no client-side timeout
}

// StoreConfig selects the backend of the per-user persistent store.
type StoreConfig struct {
	Driver      string // "memory", "postgres" or "sqlite"
	SQLitePath  string
	AutoMigrate bool
}

type CartConfig struct {
	MaxItemQuantity int
}

type LogConfig struct {
	Level  string
	Pretty bool
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	maxQty, err := strconv.Atoi(getEnv("MAX_ITEM_QUANTITY", "10"))
	if err != nil || maxQty <= 0 {
		maxQty = 10
	}

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "delivery"),
		},
		Telegram: TelegramConfig{
			Token:         getEnv("TOKEN", ""),
			NotifyDismiss: getDuration("NOTIFY_DISMISS", 3*time.Second),
		},
		API: APIConfig{
			BaseURL: getEnv("API_BASE_URL", "http://127.0.0.1:8000/"),
			Timeout: getDuration("API_TIMEOUT", 0),
		},
		Store: StoreConfig{
			Driver:      getEnv("STORE_DRIVER", StoreMemory),
			SQLitePath:  getEnv("SQLITE_PATH", "storefront.db"),
			AutoMigrate: getBool("AUTO_MIGRATE"),
		},
		Cart: CartConfig{
			MaxItemQuantity: maxQty,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getBool("LOG_PRETTY"),
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// getBool accepts "1" or "true" (any case), like AUTO_MIGRATE always did.
func getBool(key string) bool {
	v := os.Getenv(key)
	if v == "1" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
