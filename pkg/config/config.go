package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Chat      ChatConfig      `mapstructure:"chat"`
}

type ServerConfig struct {
	Port            int     `mapstructure:"port"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"` // postgres | sqlite | memory
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	Path        string `mapstructure:"path"` // sqlite file
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type PredictorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatasetConfig struct {
	Path string `mapstructure:"path"`
}

type ChatConfig struct {
	TitleMaxRunes          int `mapstructure:"title_max_runes"`
	HistoryLimit           int `mapstructure:"history_limit"`
	PredictionHistoryLimit int `mapstructure:"prediction_history_limit"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.rate_limit_per_sec", 100.0/(15*60)) // 100 requests / 15 min
	v.SetDefault("server.rate_limit_burst", 100)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "chatbot.db")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("auth.jwt_secret", "secret_key")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("predictor.base_url", "http://localhost:8000")
	v.SetDefault("predictor.timeout", 10*time.Second)
	v.SetDefault("dataset.path", "data/Dataset_Talento.csv")
	v.SetDefault("chat.title_max_runes", 50)
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("chat.prediction_history_limit", 20)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		useInMemory := config.Database.UseInMemory
		config.Database = dbConfig
		config.Database.UseInMemory = useInMemory
	}

	// Get other environment variables
	if secret := v.GetString("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	if mlURL := v.GetString("ML_SERVICE_URL"); mlURL != "" {
		config.Predictor.BaseURL = mlURL
	}

	if port := v.GetInt("PORT"); port != 0 {
		config.Server.Port = port
	}

	return &config, nil
}
