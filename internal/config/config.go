package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	DefaultSensorFeedURL     = "https://gas-value-33f5a-default-rtdb.firebaseio.com/SensorData.json"
	DefaultGeocoderURL       = "https://nominatim.openstreetmap.org/reverse"
	DefaultGeocoderUserAgent = "SmartCityDashboard/1.0"
)

type Config struct {
	AppEnv      string
	LogLevel    slog.Level
	HTTPAddr    string
	CORSOrigins []string

	SensorFeedURL string
	PollInterval  time.Duration
	FetchTimeout  time.Duration

	GeocoderURL       string
	GeocoderUserAgent string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogSQL          bool

	// MQTTBroker empty disables sample publishing.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

// MQTTEnabled reports whether a broker has been configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// LoadDotEnv loads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	appEnv := envOr("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOr("HTTP_ADDR", ":8080")
	corsOrigins := splitList(envOr("CORS_ORIGINS", "*"))

	feedURL := envOr("SENSOR_FEED_URL", DefaultSensorFeedURL)
	if err := validateURL("SENSOR_FEED_URL", feedURL); err != nil {
		return Config{}, err
	}
	pollInterval, err := envDuration("POLL_INTERVAL", "1s")
	if err != nil {
		return Config{}, err
	}
	if pollInterval <= 0 {
		return Config{}, fmt.Errorf("invalid POLL_INTERVAL %q: must be positive", pollInterval)
	}
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	if fetchTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid FETCH_TIMEOUT %q: must be positive", fetchTimeout)
	}

	geocoderURL := envOr("GEOCODER_URL", DefaultGeocoderURL)
	if err := validateURL("GEOCODER_URL", geocoderURL); err != nil {
		return Config{}, err
	}
	geocoderUA := envOr("GEOCODER_USER_AGENT", DefaultGeocoderUserAgent)

	driver := envOr("DB_DRIVER", "sqlite3")
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	path := envOr("SQLITE_PATH", "data/dashboard.db")

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}
	logSQLStr := envOr("DB_LOG_SQL", "false")
	logSQL, err := strconv.ParseBool(logSQLStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_LOG_SQL %q: %w", logSQLStr, err)
	}

	broker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	port, err := envInt("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (allowed: 1-65535)", port)
	}
	clientID := envOr("MQTT_CLIENT_ID", "smartcity-dashboard-"+uuid.NewString())
	topic := envOr("MQTT_TOPIC", "smartcity/samples")

	return Config{
		AppEnv:      appEnv,
		LogLevel:    level,
		HTTPAddr:    httpAddr,
		CORSOrigins: corsOrigins,

		SensorFeedURL: feedURL,
		PollInterval:  pollInterval,
		FetchTimeout:  fetchTimeout,

		GeocoderURL:       geocoderURL,
		GeocoderUserAgent: geocoderUA,

		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLiteLogSQL:          logSQL,

		MQTTBroker:   broker,
		MQTTPort:     port,
		MQTTClientID: clientID,
		MQTTTopic:    topic,
	}, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key, def string) (int, error) {
	s := envOr(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envDuration(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q (scheme must be http or https)", key, raw)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
