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
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	Geo       GeoConfig
	Retention RetentionConfig
	Table     TableConfig
	Alert     AlertConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type AuthConfig struct {
	JWTSecret         string
	Issuer            string
	AccessTokenExpiry time.Duration
	// HookSecretHash is the bcrypt hash of the shared secret login hooks must present.
	// Hooks are not mounted when it is empty.
	HookSecretHash     string
	HookRateLimit      int
	HookRateLimitEvery time.Duration
}

// GeoConfig selects where country lookups come from
type GeoConfig struct {
	ServiceURL      string
	Timeout         time.Duration
	DBPath          string // GeoLite2/GeoIP2 mmdb; replaces the network service when set
	NetworkFallback bool   // with DBPath, still ask the network service on a miss
	Disabled        bool
}

type RetentionConfig struct {
	Schedule       string
	RunOnStart     bool
	HardMaxAgeDays int
}

type TableConfig struct {
	DefaultPerPage int
}

// AlertConfig controls operator notification of storage failures
type AlertConfig struct {
	EmailTo   string
	EmailFrom string
	AWSRegion string
}

// Load reads the full service configuration from the environment (and .env when present)
func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	db, err := loadDatabase()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: *db,
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             env,
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:  parseAllowedOrigins(env),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			Issuer:             getEnv("JWT_ISSUER", "loginhistory"),
			AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			HookSecretHash:     getEnv("HOOK_SECRET_HASH", ""),
			HookRateLimit:      getEnvAsInt("HOOK_RATE_LIMIT", 300),
			HookRateLimitEvery: getEnvAsDuration("HOOK_RATE_LIMIT_WINDOW", time.Minute),
		},
		Geo: GeoConfig{
			ServiceURL:      getEnv("GEO_SERVICE_URL", "http://ip-api.com"),
			Timeout:         getEnvAsDuration("GEO_TIMEOUT", 3*time.Second),
			DBPath:          getEnv("GEOIP_DB_PATH", ""),
			NetworkFallback: getEnvAsBool("GEO_NETWORK_FALLBACK", false),
			Disabled:        getEnvAsBool("GEO_DISABLED", false),
		},
		Retention: RetentionConfig{
			Schedule:       getEnv("RETENTION_SCHEDULE", "@every 12h"),
			RunOnStart:     getEnvAsBool("RETENTION_RUN_ON_START", true),
			HardMaxAgeDays: getEnvAsInt("RETENTION_HARD_MAX_AGE_DAYS", 90),
		},
		Table: TableConfig{
			DefaultPerPage: getEnvAsInt("TABLE_DEFAULT_PER_PAGE", 25),
		},
		Alert: AlertConfig{
			EmailTo:   getEnv("ALERT_EMAIL_TO", ""),
			EmailFrom: getEnv("ALERT_EMAIL_FROM", ""),
			AWSRegion: getEnv("AWS_REGION", "us-east-1"),
		},
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for commands that do not serve traffic
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()
	return loadDatabase()
}

func loadDatabase() (*DatabaseConfig, error) {
	cfg := &DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "loginhistory"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
	}

	if cfg.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Table.DefaultPerPage < 1 || c.Table.DefaultPerPage > 999 {
		return fmt.Errorf("TABLE_DEFAULT_PER_PAGE must be between 1 and 999 (got %d)", c.Table.DefaultPerPage)
	}
	if c.Retention.HardMaxAgeDays < 1 {
		return fmt.Errorf("RETENTION_HARD_MAX_AGE_DAYS must be positive (got %d)", c.Retention.HardMaxAgeDays)
	}
	if c.Auth.HookSecretHash != "" && !strings.HasPrefix(c.Auth.HookSecretHash, "$2") {
		return fmt.Errorf("HOOK_SECRET_HASH must be a bcrypt hash")
	}
	if c.Alert.EmailTo != "" && c.Alert.EmailFrom == "" {
		return fmt.Errorf("ALERT_EMAIL_FROM is required when ALERT_EMAIL_TO is set")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
	}
}
