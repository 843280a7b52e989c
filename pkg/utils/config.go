package utils

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Payments PaymentsConfig
}

type AppConfig struct {
	Name        string
	Port        string
	Debug       bool
	LogPath     string
	FrontendURL string
}

type DatabaseConfig struct {
	Driver   string // postgres or memory
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type GatewayConfig struct {
	Mode          string // omise or simulated
	BaseURL       string
	PublicKey     string
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

type PaymentsConfig struct {
	HoldTTL       time.Duration
	SweepInterval time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("GATEWAY_MODE", "omise")
	viper.SetDefault("GATEWAY_BASE_URL", "https://api.omise.co")
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", 10)
	viper.SetDefault("PAYMENT_HOLD_MINUTES", 15)
	viper.SetDefault("SWEEP_INTERVAL_MINUTES", 5)

	if err := viper.ReadInConfig(); err != nil {
		// .env is optional; environment variables alone are enough
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:        viper.GetString("APP_NAME"),
			Port:        viper.GetString("PORT"),
			Debug:       viper.GetBool("DEBUG"),
			LogPath:     viper.GetString("LOG_PATH"),
			FrontendURL: viper.GetString("FRONTEND_URL"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Gateway: GatewayConfig{
			Mode:          viper.GetString("GATEWAY_MODE"),
			BaseURL:       viper.GetString("GATEWAY_BASE_URL"),
			PublicKey:     viper.GetString("OMISE_PUBLIC_KEY"),
			SecretKey:     viper.GetString("OMISE_SECRET_KEY"),
			WebhookSecret: viper.GetString("OMISE_WEBHOOK_SECRET"),
			Timeout:       time.Duration(viper.GetInt("GATEWAY_TIMEOUT_SECONDS")) * time.Second,
		},
		Payments: PaymentsConfig{
			HoldTTL:       time.Duration(viper.GetInt("PAYMENT_HOLD_MINUTES")) * time.Minute,
			SweepInterval: time.Duration(viper.GetInt("SWEEP_INTERVAL_MINUTES")) * time.Minute,
		},
	}

	return config, nil
}
