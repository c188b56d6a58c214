package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string
	LogLevel     string
	PublicDomain string

	StripeSecretKey  string
	StripePriceID    string
	StripeAPIURL     string
	CheckoutAmount   int64
	CheckoutCurrency string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	UploadDir   string
	MaxUploadMB int
	StaticDir   string

	ProviderTimeoutSeconds int
	UploadTimeoutSeconds   int
	BreakerEnabled         bool

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int
	APIMaxConnections     int
}

// Load reads configuration from the environment. When CONFIG_FILE names a YAML
// file, its values act as defaults that the environment overrides. A named
// file that cannot be read or parsed is an error.
func Load() (Config, error) {
	src := source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		values, err := readYAMLFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
		src.file = values
	}
	return src.load(), nil
}

func (s source) load() Config {
	return Config{
		Port:         s.mustEnv("PORT", "5001"),
		LogLevel:     s.mustEnv("LOG_LEVEL", "info"),
		PublicDomain: s.mustEnv("PUBLIC_DOMAIN", ""),

		StripeSecretKey:  s.mustEnv("STRIPE_SECRET_KEY", ""),
		StripePriceID:    s.mustEnv("STRIPE_PRICE_ID", ""),
		StripeAPIURL:     s.mustEnv("STRIPE_API_URL", ""),
		CheckoutAmount:   int64(s.mustEnvInt("CHECKOUT_AMOUNT", 1000)),
		CheckoutCurrency: strings.ToLower(s.mustEnv("CHECKOUT_CURRENCY", "usd")),

		OpenAIAPIKey:  s.mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: s.mustEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   s.mustEnv("OPENAI_MODEL", "gpt-4o-mini"),

		UploadDir:   s.mustEnv("UPLOAD_DIR", filepath.Join(os.TempDir(), "contract-qa-uploads")),
		MaxUploadMB: s.mustEnvInt("MAX_UPLOAD_MB", 32),
		StaticDir:   s.mustEnv("STATIC_DIR", ""),

		ProviderTimeoutSeconds: s.mustEnvInt("PROVIDER_TIMEOUT_SECONDS", 30),
		UploadTimeoutSeconds:   s.mustEnvInt("UPLOAD_TIMEOUT_SECONDS", 0),
		BreakerEnabled:         s.mustEnvBool("BREAKER_ENABLED", true),

		APIRateLimitRPS:       s.mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:     s.mustEnvInt("API_RATE_LIMIT_BURST", 0),
		APIMaxInFlight:        s.mustEnvInt("API_MAX_INFLIGHT", 0),
		APIBackpressureWaitMS: s.mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),
		APIMaxConnections:     s.mustEnvInt("API_MAX_CONNECTIONS", 0),
	}
}

// PublicBaseURL is the origin used for checkout redirect targets.
func (c Config) PublicBaseURL() string {
	domain := strings.TrimRight(strings.TrimSpace(c.PublicDomain), "/")
	if domain == "" {
		return "http://localhost:" + c.Port
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return domain
}

func (c Config) ProviderTimeout() time.Duration {
	if c.ProviderTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ProviderTimeoutSeconds) * time.Second
}

// UploadTimeout bounds reading a whole request body. Zero means no bound.
func (c Config) UploadTimeout() time.Duration {
	if c.UploadTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.UploadTimeoutSeconds) * time.Second
}

// ResponseTimeout bounds a request from the end of its headers to the end of
// its response: the upload plus one provider call. Zero means no bound.
func (c Config) ResponseTimeout() time.Duration {
	upload := c.UploadTimeout()
	if upload == 0 {
		return 0
	}
	return upload + c.ProviderTimeout() + 30*time.Second
}

func (c Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 32 << 20
	}
	return int64(c.MaxUploadMB) << 20
}

type source struct {
	file map[string]string
}

func readYAMLFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return values, nil
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return strings.TrimSpace(s.file[key])
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvFloat(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
