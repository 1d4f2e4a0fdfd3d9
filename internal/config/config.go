package config

import (
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

const (
	DefaultDatabasePath    = "tickets.db"
	DefaultListenAddr      = ":8080"
	DefaultLogLevel        = "info"
	DefaultPaymentExpiry   = 15 * time.Minute
	DefaultVerificationTTL = 15 * time.Minute
	DefaultRedisTTL        = 30 * time.Second
	DefaultAPIBaseURL      = "http://localhost:8080"
)

// SetDefaults registers the fallback for every key Load reads.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("payment_expiry", DefaultPaymentExpiry)
	v.SetDefault("verification_ttl", DefaultVerificationTTL)
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_ttl", DefaultRedisTTL)
	v.SetDefault("api_base_url", DefaultAPIBaseURL)
}

// Load reads the configuration from the global viper instance, which the CLI
// has already pointed at the config file, TICKETS_* environment variables
// and flags.
func Load() (*domain.Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (*domain.Config, error) {
	SetDefaults(v)

	cfg := &domain.Config{
		DatabasePath:      v.GetString("database_path"),
		ListenAddr:        v.GetString("listen_addr"),
		LogLevel:          strings.ToLower(v.GetString("log_level")),
		CORSOrigins:       origins(v.GetStringSlice("cors_origins")),
		MerchantID:        v.GetString("merchant_id"),
		PaymentExpiry:     v.GetDuration("payment_expiry"),
		VerificationTTL:   v.GetDuration("verification_ttl"),
		DiscordWebhookURL: v.GetString("discord_webhook_url"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		RedisDB:           v.GetInt("redis_db"),
		RedisTTL:          v.GetDuration("redis_ttl"),
		APIBaseURL:        strings.TrimRight(v.GetString("api_base_url"), "/"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *domain.Config) error {
	if cfg.DatabasePath == "" {
		return errors.New("database_path is required (set via config file, --database or TICKETS_DATABASE_PATH)")
	}

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return errors.Errorf("invalid log_level: %q (must be trace, debug, info, warn or error)", cfg.LogLevel)
	}

	if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		return errors.Wrapf(err, "invalid listen_addr %q", cfg.ListenAddr)
	}

	durations := map[string]time.Duration{
		"payment_expiry":   cfg.PaymentExpiry,
		"verification_ttl": cfg.VerificationTTL,
		"redis_ttl":        cfg.RedisTTL,
	}
	for key, d := range durations {
		if d <= 0 {
			return errors.Errorf("%s must be a positive duration, got %s", key, d)
		}
	}

	if cfg.RedisDB < 0 {
		return errors.Errorf("redis_db must not be negative, got %d", cfg.RedisDB)
	}

	return nil
}

// origins accepts both a YAML list and a comma separated environment value.
func origins(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, o := range strings.Split(r, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
