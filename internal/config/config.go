package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config reúne tudo que a API precisa ler do ambiente.
type Config struct {
	Port         string
	DatabasePath string
	LogLevel     slog.Level

	Stripe StripeConfig
	Planos PlanosConfig

	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string

	// TrustProxy só deve ser ligado atrás de um proxy que reescreve X-Forwarded-For.
	TrustProxy bool
}

// StripeConfig guarda as credenciais da Stripe.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// APIURL permite apontar o cliente para o stripe-mock ou para um servidor de teste.
	APIURL string
}

// PlanosConfig guarda os preços (em unidades da moeda) vendidos no checkout.
type PlanosConfig struct {
	PrecoBasico   float64
	PrecoCoaching float64
	Moeda         string
}

// ErrStripeNaoConfigurada é devolvido quando STRIPE_SECRET_KEY não está definida.
var ErrStripeNaoConfigurada = errors.New("STRIPE_SECRET_KEY is not set")

// Load carrega o .env (se existir) e monta a configuração a partir das variáveis de ambiente.
func Load() (*Config, error) {
	// O .env é opcional; em produção as variáveis vêm do ambiente.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("erro ao ler .env: %w", err)
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./sqlite-database.db"),
		LogLevel:     parseLevel(getEnv("LOG_LEVEL", "info")),
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			APIURL:        os.Getenv("STRIPE_API_URL"),
		},
		Planos: PlanosConfig{
			Moeda: strings.ToLower(getEnv("CURRENCY", "usd")),
		},
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	var err error
	if cfg.Planos.PrecoBasico, err = getFloat("PLAN_PRICE", 25); err != nil {
		return nil, err
	}
	if cfg.Planos.PrecoCoaching, err = getFloat("COACHING_PRICE", 275); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	burst, err := getFloat("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitBurst = int(burst)
	if cfg.TrustProxy, err = getBool("TRUST_PROXY_HEADERS", false); err != nil {
		return nil, err
	}

	if cfg.Stripe.SecretKey == "" {
		return nil, ErrStripeNaoConfigurada
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("valor inválido para %s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("valor inválido para %s: %w", key, err)
	}
	return b, nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
