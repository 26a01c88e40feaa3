package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultDisclaimer is appended to patient-facing replies unless MEDICAL_DISCLAIMER overrides it.
const DefaultDisclaimer = "⚠️ MEDICAL DISCLAIMER: This information is for educational purposes only " +
	"and should not be considered medical advice. Always consult with a qualified healthcare " +
	"professional for diagnosis and treatment decisions."

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	AppName     string `mapstructure:"APP_NAME"`
	AppVersion  string `mapstructure:"APP_VERSION"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	LLMAPIKey      string        `mapstructure:"LLM_API_KEY"`
	LLMBaseURL     string        `mapstructure:"LLM_BASE_URL"`
	LLMModel       string        `mapstructure:"LLM_MODEL"`
	LLMVisionModel string        `mapstructure:"LLM_VISION_MODEL"`
	LLMTimeout     time.Duration `mapstructure:"LLM_TIMEOUT"`
	OCRTimeout     time.Duration `mapstructure:"OCR_TIMEOUT"`

	UploadDir        string   `mapstructure:"UPLOAD_DIR"`
	StorageBackend   string   `mapstructure:"STORAGE_BACKEND"`
	MaxFileSizeMB    int      `mapstructure:"MAX_FILE_SIZE_MB"`
	AllowedMIMETypes []string `mapstructure:"ALLOWED_MIME_TYPES"`

	AdminEmails []string `mapstructure:"ADMIN_EMAILS"`
	Disclaimer  string   `mapstructure:"MEDICAL_DISCLAIMER"`
}

var envKeys = []string{
	"PORT", "ENV", "APP_NAME", "APP_VERSION",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL", "LLM_VISION_MODEL", "LLM_TIMEOUT", "OCR_TIMEOUT",
	"UPLOAD_DIR", "STORAGE_BACKEND", "MAX_FILE_SIZE_MB", "ALLOWED_MIME_TYPES",
	"ADMIN_EMAILS", "MEDICAL_DISCLAIMER",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_NAME", "CareBridge API")
	v.SetDefault("APP_VERSION", "2.0.0")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("RATE_LIMIT_RPS", 100.0/60.0)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "180s")
	v.SetDefault("LLM_BASE_URL", "https://integrate.api.nvidia.com/v1")
	v.SetDefault("LLM_MODEL", "meta/llama-3.1-70b-instruct")
	v.SetDefault("LLM_VISION_MODEL", "microsoft/phi-3.5-vision-instruct")
	v.SetDefault("LLM_TIMEOUT", "90s")
	v.SetDefault("OCR_TIMEOUT", "120s")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("STORAGE_BACKEND", "disk")
	v.SetDefault("MAX_FILE_SIZE_MB", 50)
	v.SetDefault("ALLOWED_MIME_TYPES", "application/pdf,image/png,image/jpeg,image/tiff,image/bmp,image/webp")
	v.SetDefault("MEDICAL_DISCLAIMER", DefaultDisclaimer)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.AllowedMIMETypes = splitList(cfg.AllowedMIMETypes, v.GetString("ALLOWED_MIME_TYPES"))
	cfg.AdminEmails = splitList(cfg.AdminEmails, v.GetString("ADMIN_EMAILS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active, requests are not authenticated.")
	}

	return cfg, nil
}

// splitList normalises comma separated env values. Viper only splits
// space separated strings on its own, so a single element holding commas
// is split again here.
func splitList(parsed []string, raw string) []string {
	if len(parsed) > 1 {
		return trimAll(parsed)
	}
	if raw == "" {
		return nil
	}
	return trimAll(strings.Split(raw, ","))
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MaxFileSize returns the upload limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// Validate checks that the configuration is safe to run. Outside development
// either AUTH_ISSUER (JWKS) or AUTH_SIGNING_KEY (HMAC) must be set.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_ISSUER or AUTH_SIGNING_KEY must be set when ENV=%q. "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.MaxFileSizeMB)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive, got %s", c.LLMTimeout)
	}
	if c.OCRTimeout <= 0 {
		return fmt.Errorf("OCR_TIMEOUT must be positive, got %s", c.OCRTimeout)
	}
	if c.RequestTimeout < c.LLMTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must not be shorter than LLM_TIMEOUT (%s)", c.RequestTimeout, c.LLMTimeout)
	}
	switch c.StorageBackend {
	case "disk", "memory":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be \"disk\" or \"memory\", got %q", c.StorageBackend)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}
