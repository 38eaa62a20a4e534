package config

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	ServerPort  string
	StoreDriver string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	SQLitePath  string
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins []string
	Push        PushConfig
	// Log verbosity: 0 info, 1 debug, 2 and above trace.
	LogVerbosity uint
	LogFile      string
	// InstanceID tags realtime notifications relayed through Postgres.
	InstanceID string
}

type PushConfig struct {
	Enabled       bool
	Endpoint      string
	Workers       int
	QueueSize     int
	RatePerSecond int
	Timeout       time.Duration
}

var defaults = map[string]any{
	"SERVER_PORT":          "8080",
	"STORE_DRIVER":         DriverPostgres,
	"DB_HOST":              "localhost",
	"DB_PORT":              "5432",
	"DB_USER":              "wecube",
	"DB_PASSWORD":          "wecube_dev_password",
	"DB_NAME":              "wecube",
	"DB_SSLMODE":           "disable",
	"SQLITE_PATH":          "wecube.db",
	"JWT_SECRET":           "dev-secret-change-me",
	"JWT_TTL":              "24h",
	"CORS_ORIGINS":         "*",
	"PUSH_ENABLED":         true,
	"PUSH_ENDPOINT":        "https://exp.host/--/api/v2/push/send",
	"PUSH_WORKERS":         4,
	"PUSH_QUEUE_SIZE":      1024,
	"PUSH_RATE_PER_SECOND": 50,
	"PUSH_TIMEOUT":         "10s",
	"LOG_VERBOSITY":        0,
	"LOG_FILE":             "",
	"INSTANCE_ID":          "",
}

// SetDefaults registers every configuration key on v and binds it to the
// environment variable of the same name.
func SetDefaults(v *viper.Viper) {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()
}

// Load reads the configuration from v. SetDefaults must have been called on v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerPort:   v.GetString("SERVER_PORT"),
		StoreDriver:  strings.ToLower(v.GetString("STORE_DRIVER")),
		DBHost:       v.GetString("DB_HOST"),
		DBPort:       v.GetString("DB_PORT"),
		DBUser:       v.GetString("DB_USER"),
		DBPassword:   v.GetString("DB_PASSWORD"),
		DBName:       v.GetString("DB_NAME"),
		DBSSLMode:    v.GetString("DB_SSLMODE"),
		SQLitePath:   v.GetString("SQLITE_PATH"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		CORSOrigins:  splitList(v.GetString("CORS_ORIGINS")),
		LogVerbosity: v.GetUint("LOG_VERBOSITY"),
		LogFile:      v.GetString("LOG_FILE"),
		InstanceID:   v.GetString("INSTANCE_ID"),
		Push: PushConfig{
			Enabled:       v.GetBool("PUSH_ENABLED"),
			Endpoint:      v.GetString("PUSH_ENDPOINT"),
			Workers:       v.GetInt("PUSH_WORKERS"),
			QueueSize:     v.GetInt("PUSH_QUEUE_SIZE"),
			RatePerSecond: v.GetInt("PUSH_RATE_PER_SECOND"),
		},
	}

	var err error
	if cfg.JWTTTL, err = time.ParseDuration(v.GetString("JWT_TTL")); err != nil {
		return nil, errors.Wrap(err, "invalid JWT_TTL")
	}
	if cfg.Push.Timeout, err = time.ParseDuration(v.GetString("PUSH_TIMEOUT")); err != nil {
		return nil, errors.Wrap(err, "invalid PUSH_TIMEOUT")
	}

	switch cfg.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, errors.Errorf("invalid STORE_DRIVER %q: want %s or %s",
			cfg.StoreDriver, DriverPostgres, DriverSQLite)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return nil, errors.New("JWT_TTL must be positive")
	}
	if cfg.Push.Workers <= 0 {
		return nil, errors.Errorf("invalid PUSH_WORKERS %d: must be positive", cfg.Push.Workers)
	}
	if cfg.Push.QueueSize <= 0 {
		return nil, errors.Errorf("invalid PUSH_QUEUE_SIZE %d: must be positive", cfg.Push.QueueSize)
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	return cfg, nil
}

// PostgresDSN builds the connection string for pgx.
func (c *Config) PostgresDSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort +
		"/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
