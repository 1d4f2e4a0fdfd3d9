package domain

import "time"

type Config struct {
	DatabasePath      string        `mapstructure:"database_path"`
	ListenAddr        string        `mapstructure:"listen_addr"`
	LogLevel          string        `mapstructure:"log_level"`
	CORSOrigins       []string      `mapstructure:"cors_origins"`
	MerchantID        string        `mapstructure:"merchant_id"`
	PaymentExpiry     time.Duration `mapstructure:"payment_expiry"`
	VerificationTTL   time.Duration `mapstructure:"verification_ttl"`
	DiscordWebhookURL string        `mapstructure:"discord_webhook_url"`
	RedisAddr         string        `mapstructure:"redis_addr"`
	RedisPassword     string        `mapstructure:"redis_password"`
	RedisDB           int           `mapstructure:"redis_db"`
	RedisTTL          time.Duration `mapstructure:"redis_ttl"`
	APIBaseURL        string        `mapstructure:"api_base_url"`
}
