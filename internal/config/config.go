package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinJWTSecretLen: минимальная длина ключа подписи HS256.
const MinJWTSecretLen = 32

type Config struct {
	Port      string
	DbHost    string
	DbPort    string
	DbUser    string
	DbPass    string
	DbName    string
	DbSSLMode string

	JWTSecret        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	PasswordResetTTL time.Duration
	BcryptCost       int

	Log      string
	LogLevel string
	Env      string // dev|prod

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	EmailWorkers int

	FrontendURL          string
	CORSOrigins          []string
	SentryDSN            string
	ResetCleanupInterval time.Duration

	ProjectName string
	Version     string
}

// LoadConfig загружает .env, читает переменные окружения и выставляет дефолты.
// Ничего не логирует, чтобы не создавать зависимость от logger.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")
	return FromLookup(os.Getenv)
}

// FromLookup собирает конфиг из произвольного источника переменных (env, тесты).
func FromLookup(get func(string) string) (*Config, error) {
	def := func(v, d string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		return v
	}

	var errs []string
	dur := func(key, d string) time.Duration {
		raw := def(get(key), d)
		v, err := time.ParseDuration(raw)
		if err != nil || v <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, raw))
			return 0
		}
		return v
	}
	num := func(key string, d int) int {
		raw := strings.TrimSpace(get(key))
		if raw == "" {
			return d
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid number %q", key, raw))
			return d
		}
		return v
	}

	cfg := &Config{
		Port:      def(get("PORT"), "8080"),
		DbHost:    get("DB_HOST"),
		DbPort:    def(get("DB_PORT"), "5432"),
		DbUser:    get("DB_USER"),
		DbPass:    get("DB_PASSWORD"),
		DbName:    get("DB_NAME"),
		DbSSLMode: def(get("DB_SSLMODE"), "disable"),

		JWTSecret:        get("JWT_SECRET"),
		AccessTokenTTL:   dur("ACCESS_TOKEN_EXPIRY", "15m"),
		RefreshTokenTTL:  dur("REFRESH_TOKEN_EXPIRY", "168h"),
		PasswordResetTTL: dur("PASSWORD_RESET_EXPIRY", "1h"),
		BcryptCost:       num("BCRYPT_COST", 12),

		Log:      get("LOG"),
		LogLevel: strings.ToLower(def(get("LOGLEVEL"), "info")),
		Env:      strings.ToLower(def(get("ENV"), "prod")),

		SMTPHost:     get("SMTP_HOST"),
		SMTPPort:     def(get("SMTP_PORT"), "587"),
		SMTPUser:     get("SMTP_USER"),
		SMTPPassword: get("SMTP_PASSWORD"),
		SMTPFrom:     def(get("SMTP_FROM"), get("SMTP_USER")),
		EmailWorkers: num("EMAIL_WORKERS", 3),

		FrontendURL:          strings.TrimRight(def(get("FRONTEND_URL"), "http://localhost:5173"), "/"),
		SentryDSN:            get("SENTRY_DSN"),
		ResetCleanupInterval: dur("RESET_CLEANUP_INTERVAL", "1h"),

		ProjectName: def(get("PROJECT_NAME"), "Auth System"),
		Version:     def(get("VERSION"), "1.0.0"),
	}

	cfg.CORSOrigins = splitList(def(get("CORS_ORIGINS"), cfg.FrontendURL))

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate возвращает предупреждения и фатальную ошибку (если критично).
func (c *Config) Validate() (warnings []string, err error) {
	// Критичные: БД
	if c.DbHost == "" || c.DbUser == "" || c.DbName == "" {
		return nil, fmt.Errorf("incomplete DB config (DB_HOST/DB_USER/DB_NAME)")
	}

	// JWT: без ключа подписи токены выпускать нельзя
	if len(strings.TrimSpace(c.JWTSecret)) < MinJWTSecretLen {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLen)
	}

	// SMTP: предупреждение, письма будут только в логах
	if c.SMTPHost == "" || c.SMTPUser == "" {
		warnings = append(warnings, "SMTP is not fully configured, reset links will be logged only")
	}

	if c.SentryDSN == "" {
		warnings = append(warnings, "SENTRY_DSN is empty, error reporting disabled")
	}

	return warnings, nil
}

// SMTPConfigured: можно ли реально отправлять письма.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != ""
}

// GetDSN: полная DSN (с паролем)
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// GetDSNSafe: DSN без пароля (для логов)
func (c *Config) GetDSNSafe() string {
	return fmt.Sprintf(
		"postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}
