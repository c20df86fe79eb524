package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	HTTPPort    string
	DatabaseURL string
	AMQPURL     string

	MailHost string
	MailPort int
	MailUser string
	MailPass string
	MailFrom string
	NotifyTo []string

	KommoAPIToken string
	KommoBaseURL  string
	KommoStatusID int

	WhatsAppBaseURL     string
	WhatsAppAccessToken string
	WhatsAppPhoneID     string
	WhatsAppNotifyTo    []string
	WhatsAppTemplate    string

	AdminAPIToken string

	LeadRateLimitMax    int
	LeadRateLimitWindow time.Duration

	IPRateLimitEnabled       bool
	IPRateLimitMax           int
	IPRateLimitWindowMinutes int
	IPRateLimitBlockMinutes  int

	SecuritySchedulerEnabled    bool
	SecurityCleanupInterval     time.Duration
	SecurityMonitoringInterval  time.Duration
	SecurityScanWindow          time.Duration
	SecurityPerformanceInterval time.Duration

	CORSAllowedOrigins []string
	TrustedProxies     []string
	Timezone           string
	SecuritySchema     string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
}

// Load lê o .env (se existir) e depois as variáveis de ambiente.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AMQPURL:     os.Getenv("AMQP_URL"),

		MailHost: os.Getenv("MAIL_HOST"),
		MailPort: getInt("MAIL_PORT", 587),
		MailUser: os.Getenv("MAIL_USER"),
		MailPass: os.Getenv("MAIL_PASS"),
		MailFrom: getEnv("MAIL_FROM", "no-reply@localhost"),
		NotifyTo: getList("NOTIFY_TO", nil),

		KommoAPIToken: os.Getenv("KOMMO_API_TOKEN"),
		KommoBaseURL:  os.Getenv("KOMMO_BASE_URL"),
		KommoStatusID: getInt("KOMMO_STATUS_ID", 0),

		WhatsAppBaseURL:     os.Getenv("WHATSAPP_BASE_URL"),
		WhatsAppAccessToken: os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		WhatsAppPhoneID:     os.Getenv("WHATSAPP_PHONE_ID"),
		WhatsAppNotifyTo:    getList("WHATSAPP_NOTIFY_TO", nil),
		WhatsAppTemplate:    os.Getenv("WHATSAPP_TEMPLATE"),

		AdminAPIToken: os.Getenv("ADMIN_API_TOKEN"),

		LeadRateLimitMax:    getInt("LEAD_RATE_LIMIT_MAX", 3),
		LeadRateLimitWindow: getDuration("LEAD_RATE_LIMIT_WINDOW", time.Hour),

		IPRateLimitEnabled:       getBool("IP_RATE_LIMIT_ENABLED", true),
		IPRateLimitMax:           getInt("IP_RATE_LIMIT_MAX", 20),
		IPRateLimitWindowMinutes: getInt("IP_RATE_LIMIT_WINDOW_MINUTES", 60),
		IPRateLimitBlockMinutes:  getInt("IP_RATE_LIMIT_BLOCK_MINUTES", 60),

		SecuritySchedulerEnabled:    getBool("SECURITY_SCHEDULER_ENABLED", true),
		SecurityCleanupInterval:     getDuration("SECURITY_CLEANUP_INTERVAL", 24*time.Hour),
		SecurityMonitoringInterval:  getDuration("SECURITY_MONITORING_INTERVAL", 60*time.Minute),
		SecurityScanWindow:          getDuration("SECURITY_SCAN_WINDOW", 60*time.Minute),
		SecurityPerformanceInterval: getDuration("SECURITY_PERFORMANCE_INTERVAL", 7*24*time.Hour),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getList("TRUSTED_PROXIES", nil),
		SecuritySchema:     os.Getenv("SECURITY_SCHEMA"),
		Timezone:           getEnv("APP_TIMEZONE", "Europe/Madrid"),

		DBMaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.LeadRateLimitMax <= 0 {
		return Config{}, fmt.Errorf("LEAD_RATE_LIMIT_MAX must be positive")
	}
	if cfg.LeadRateLimitWindow <= 0 {
		return Config{}, fmt.Errorf("LEAD_RATE_LIMIT_WINDOW must be positive")
	}

	return cfg, nil
}

func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c Config) MailEnabled() bool {
	return c.MailHost != "" && len(c.NotifyTo) > 0
}

func (c Config) KommoEnabled() bool {
	return c.KommoAPIToken != "" && c.KommoBaseURL != ""
}

func (c Config) WhatsAppEnabled() bool {
	return c.WhatsAppAccessToken != "" && c.WhatsAppPhoneID != "" && len(c.WhatsAppNotifyTo) > 0
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		var cleaned []string
		for _, p := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
