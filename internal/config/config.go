package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Scanner ScannerConfig
	Cache   CacheConfig
	Printer PrinterConfig
	Catalog CatalogConfig
	Redis   RedisConfig
	JWT     JWTConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

// StoreConfig is the receipt header identity of this register.
type StoreConfig struct {
	Name     string
	Address1 string
	Address2 string
}

type ScannerConfig struct {
	DebounceWindow time.Duration
	DedupWindow    time.Duration
	RearmDelay     time.Duration
}

type CacheConfig struct {
	TTL          time.Duration
	MaxSize      int
	SaveDebounce time.Duration
}

type PrinterConfig struct {
	DefaultName string
	BridgeURL   string
	SendTimeout time.Duration
}

type CatalogConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("STORE_NAME", "YZY STORE")
	viper.SetDefault("STORE_ADDRESS1", "Eastern Slide, Tuding")
	viper.SetDefault("SCANNER_DEBOUNCE_MS", 80)
	viper.SetDefault("SCANNER_DEDUP_MS", 450)
	viper.SetDefault("SCANNER_REARM_MS", 20)
	viper.SetDefault("CACHE_TTL_MINUTES", 30)
	viper.SetDefault("CACHE_MAX_SIZE", 1000)
	viper.SetDefault("CACHE_SAVE_DEBOUNCE_MS", 500)
	viper.SetDefault("PRINTER_BRIDGE_URL", "http://localhost:8182")
	viper.SetDefault("PRINTER_SEND_TIMEOUT_SECONDS", 10)
	viper.SetDefault("CATALOG_BASE_URL", "http://localhost:5000/api")
	viper.SetDefault("CATALOG_TIMEOUT_SECONDS", 5)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Store: StoreConfig{
			Name:     viper.GetString("STORE_NAME"),
			Address1: viper.GetString("STORE_ADDRESS1"),
			Address2: viper.GetString("STORE_ADDRESS2"),
		},
		Scanner: ScannerConfig{
			DebounceWindow: time.Duration(viper.GetInt("SCANNER_DEBOUNCE_MS")) * time.Millisecond,
			DedupWindow:    time.Duration(viper.GetInt("SCANNER_DEDUP_MS")) * time.Millisecond,
			RearmDelay:     time.Duration(viper.GetInt("SCANNER_REARM_MS")) * time.Millisecond,
		},
		Cache: CacheConfig{
			TTL:          time.Duration(viper.GetInt("CACHE_TTL_MINUTES")) * time.Minute,
			MaxSize:      viper.GetInt("CACHE_MAX_SIZE"),
			SaveDebounce: time.Duration(viper.GetInt("CACHE_SAVE_DEBOUNCE_MS")) * time.Millisecond,
		},
		Printer: PrinterConfig{
			DefaultName: viper.GetString("PRINTER_DEFAULT_NAME"),
			BridgeURL:   viper.GetString("PRINTER_BRIDGE_URL"),
			SendTimeout: time.Duration(viper.GetInt("PRINTER_SEND_TIMEOUT_SECONDS")) * time.Second,
		},
		Catalog: CatalogConfig{
			BaseURL: viper.GetString("CATALOG_BASE_URL"),
			Token:   viper.GetString("CATALOG_TOKEN"),
			Timeout: time.Duration(viper.GetInt("CATALOG_TIMEOUT_SECONDS")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
	}
}
