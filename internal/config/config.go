package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Config собирает настройки приложения из окружения.
// Пустой PostgresDSN переключает сервис на in-memory хранилища,
// пустой список брокеров отключает публикацию событий в Kafka.
type Config struct {
	MetricsAddr string

	PostgresDSN  string
	KafkaBrokers []string

	TaxRateBasisPoints int64
	ShippingFeeMinor   int64
	PaidShippingMethod domain.ShippingMethod

	MergeRejectsOverflow bool
	StrictTransitions    bool
}

// Load читает .env (если он есть) и переменные окружения с префиксом CHECKOUT_.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		MetricsAddr:        getenv("CHECKOUT_METRICS_ADDR", ":9090"),
		PostgresDSN:        getenv("CHECKOUT_POSTGRES_DSN", ""),
		KafkaBrokers:       splitCSV(getenv("CHECKOUT_KAFKA_BROKERS", "")),
		PaidShippingMethod: domain.ShippingMethod(getenv("CHECKOUT_PAID_SHIPPING_METHOD", string(domain.ShippingPrepaid))),
	}

	var err error
	if cfg.TaxRateBasisPoints, err = getenvInt64("CHECKOUT_TAX_RATE_BP", 1800); err != nil {
		return Config{}, err
	}
	if cfg.ShippingFeeMinor, err = getenvInt64("CHECKOUT_SHIPPING_FEE_MINOR", 30); err != nil {
		return Config{}, err
	}
	if cfg.MergeRejectsOverflow, err = getenvBool("CHECKOUT_MERGE_REJECTS_OVERFLOW", false); err != nil {
		return Config{}, err
	}
	if cfg.StrictTransitions, err = getenvBool("CHECKOUT_STRICT_TRANSITIONS", false); err != nil {
		return Config{}, err
	}

	if cfg.TaxRateBasisPoints < 0 {
		return Config{}, fmt.Errorf("CHECKOUT_TAX_RATE_BP must be non-negative, got %d", cfg.TaxRateBasisPoints)
	}
	if cfg.ShippingFeeMinor < 0 {
		return Config{}, fmt.Errorf("CHECKOUT_SHIPPING_FEE_MINOR must be non-negative, got %d", cfg.ShippingFeeMinor)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getenvBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
