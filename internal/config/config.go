// backend-go/internal/config/config.go
package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Model      ModelConfig
	Operations OperationsConfig
	Routing    RoutingConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ReportTTLSeconds   int
	ForecastTTLSeconds int
}

// ModelConfig selects where the trained model handle lives and how it is trained.
type ModelConfig struct {
	Store       string // local or s3
	LocalPath   string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	Bucket      string
	Key         string
	UseSSL      bool
	NumTrees    int
	MaxDepth    int
	MinLeafSize int
	Seed        int64
}

type OperationsConfig struct {
	LeadTimeDays        int
	SafetyStockFactor   float64
	ExpiryHorizonDays   int
	ForecastHorizonDays int
	MaxParallelStores   int
	ReportDir           string
	DataSource          string // postgres or csv
	DataDir             string
}

type RoutingConfig struct {
	SpeedKmh          float64
	ServiceMinutes    int
	PrepMinutes       int
	LatePenalty       float64
	DropPenalty       float64
	MaxIterations     int
	TimeBudgetSeconds int
	Workers           int
	DepartHour        int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		setDefaults(v)

		// Read from environment variables
		v.AutomaticEnv()

		instance = fromViper(v)
		ensureDir(instance.Operations.ReportDir)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "shelflife")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DATABASE_URL", "")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 3600)
	v.SetDefault("CACHE_FORECAST_TTL_SECONDS", 7*24*3600)

	v.SetDefault("MODEL_STORE", "local")
	v.SetDefault("MODEL_LOCAL_PATH", "./data/models/model.json")
	v.SetDefault("MODEL_S3_ENDPOINT", "")
	v.SetDefault("MODEL_S3_ACCESS_KEY", "")
	v.SetDefault("MODEL_S3_SECRET_KEY", "")
	v.SetDefault("MODEL_S3_BUCKET", "models")
	v.SetDefault("MODEL_S3_KEY", "demand/model.json")
	v.SetDefault("MODEL_S3_USE_SSL", false)
	v.SetDefault("MODEL_NUM_TREES", 100)
	v.SetDefault("MODEL_MAX_DEPTH", 10)
	v.SetDefault("MODEL_MIN_LEAF_SIZE", 3)
	v.SetDefault("MODEL_SEED", 42)

	v.SetDefault("OPS_LEAD_TIME_DAYS", 3)
	v.SetDefault("OPS_SAFETY_STOCK_FACTOR", 1.65)
	v.SetDefault("OPS_EXPIRY_HORIZON_DAYS", 2)
	v.SetDefault("OPS_FORECAST_HORIZON_DAYS", 7)
	v.SetDefault("OPS_MAX_PARALLEL_STORES", 4)
	v.SetDefault("OPS_REPORT_DIR", "./data/reports")
	v.SetDefault("OPS_DATA_SOURCE", "postgres")
	v.SetDefault("OPS_DATA_DIR", "./data/input")

	v.SetDefault("ROUTING_SPEED_KMH", 24.0)
	v.SetDefault("ROUTING_SERVICE_MINUTES", 5)
	v.SetDefault("ROUTING_PREP_MINUTES", 10)
	v.SetDefault("ROUTING_LATE_PENALTY", 100.0)
	v.SetDefault("ROUTING_DROP_PENALTY", 150.0)
	v.SetDefault("ROUTING_MAX_ITERATIONS", 500)
	v.SetDefault("ROUTING_TIME_BUDGET_SECONDS", 5)
	v.SetDefault("ROUTING_WORKERS", 0)
	v.SetDefault("ROUTING_DEPART_HOUR", 8)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			URL:      v.GetString("DATABASE_URL"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			ReportTTLSeconds:   v.GetInt("CACHE_REPORT_TTL_SECONDS"),
			ForecastTTLSeconds: v.GetInt("CACHE_FORECAST_TTL_SECONDS"),
		},
		Model: ModelConfig{
			Store:       v.GetString("MODEL_STORE"),
			LocalPath:   v.GetString("MODEL_LOCAL_PATH"),
			Endpoint:    v.GetString("MODEL_S3_ENDPOINT"),
			AccessKey:   v.GetString("MODEL_S3_ACCESS_KEY"),
			SecretKey:   v.GetString("MODEL_S3_SECRET_KEY"),
			Bucket:      v.GetString("MODEL_S3_BUCKET"),
			Key:         v.GetString("MODEL_S3_KEY"),
			UseSSL:      v.GetBool("MODEL_S3_USE_SSL"),
			NumTrees:    v.GetInt("MODEL_NUM_TREES"),
			MaxDepth:    v.GetInt("MODEL_MAX_DEPTH"),
			MinLeafSize: v.GetInt("MODEL_MIN_LEAF_SIZE"),
			Seed:        v.GetInt64("MODEL_SEED"),
		},
		Operations: OperationsConfig{
			LeadTimeDays:        v.GetInt("OPS_LEAD_TIME_DAYS"),
			SafetyStockFactor:   v.GetFloat64("OPS_SAFETY_STOCK_FACTOR"),
			ExpiryHorizonDays:   v.GetInt("OPS_EXPIRY_HORIZON_DAYS"),
			ForecastHorizonDays: v.GetInt("OPS_FORECAST_HORIZON_DAYS"),
			MaxParallelStores:   v.GetInt("OPS_MAX_PARALLEL_STORES"),
			ReportDir:           v.GetString("OPS_REPORT_DIR"),
			DataSource:          v.GetString("OPS_DATA_SOURCE"),
			DataDir:             v.GetString("OPS_DATA_DIR"),
		},
		Routing: RoutingConfig{
			SpeedKmh:          v.GetFloat64("ROUTING_SPEED_KMH"),
			ServiceMinutes:    v.GetInt("ROUTING_SERVICE_MINUTES"),
			PrepMinutes:       v.GetInt("ROUTING_PREP_MINUTES"),
			LatePenalty:       v.GetFloat64("ROUTING_LATE_PENALTY"),
			DropPenalty:       v.GetFloat64("ROUTING_DROP_PENALTY"),
			MaxIterations:     v.GetInt("ROUTING_MAX_ITERATIONS"),
			TimeBudgetSeconds: v.GetInt("ROUTING_TIME_BUDGET_SECONDS"),
			Workers:           v.GetInt("ROUTING_WORKERS"),
			DepartHour:        v.GetInt("ROUTING_DEPART_HOUR"),
		},
	}
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Failed to create directory")
		}
	}
}
