package config

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv" // 引入這個庫來讀取 .env 檔案
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

// Config 結構體用於儲存應用程式的配置
type Config struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	StoreDriver        string        `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoDBURI         string        `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	DBName             string        `envconfig:"DB_NAME" default:"chat_app_db"`
	SQLitePath         string        `envconfig:"SQLITE_PATH" default:"chat.db"`
	RedisAddr          string        `envconfig:"REDIS_ADDR"`
	RedisChannelPrefix string        `envconfig:"REDIS_CHANNEL_PREFIX" default:"chat"`
	JWTSecret          string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL             time.Duration `envconfig:"JWT_TTL" default:"24h"`
	AllowedOrigins     []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig 載入配置，優先從環境變數讀取，其次從 .env 檔案讀取
func LoadConfig() (*Config, error) {
	// 嘗試載入 .env 檔案，如果不存在也不會報錯
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreSQLite, c.StoreDriver)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel 將 LOG_LEVEL 轉為 slog.Level
func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	return l, nil
}
