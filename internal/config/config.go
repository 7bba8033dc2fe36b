package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the labyrinth server.
//
// The four generation parameters stay raw strings on purpose: the generator
// owns their parsing and validation, the configuration layer only transports
// them the way any HTTP front end would.
type Config struct {
	CorpusPath string
	BasePath   string
	BlockSize  string
	TotalSize  string

	DBPath        string
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	Environment   string
	ShutdownGrace time.Duration

	RateLimitPerSecond float64
	RateLimitBurst     int
	RateLimitClientTTL time.Duration
}

const (
	defaultCorpusPath    = "./data/corpus.txt"
	defaultBasePath      = "/labyrinth/"
	defaultDBPath        = "./data/labyrinth.db"
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultEnvironment   = "development"
	defaultShutdownGrace = 10 * time.Second
	defaultRatePerSecond = 5.0
	defaultRateBurst     = 20
	defaultRateClientTTL = 10 * time.Minute
)

// Load reads configuration values from environment variables, applying
// defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		CorpusPath:    getEnv("CORPUS_PATH", defaultCorpusPath),
		BasePath:      getEnv("BASE_PATH", defaultBasePath),
		BlockSize:     os.Getenv("BLOCK_SIZE"),
		TotalSize:     os.Getenv("TOTAL_SIZE"),
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Environment: getEnv("ENV", defaultEnvironment),
	}

	graceValue := getEnv("SHUTDOWN_GRACE", defaultShutdownGrace.String())
	grace, err := time.ParseDuration(graceValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SHUTDOWN_GRACE value: %s", graceValue)
	}
	cfg.ShutdownGrace = grace

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	rateValue := getEnv("RATE_LIMIT_PER_SECOND", strconv.FormatFloat(defaultRatePerSecond, 'f', -1, 64))
	rate, err := strconv.ParseFloat(rateValue, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid RATE_LIMIT_PER_SECOND value: %s", rateValue)
	}
	cfg.RateLimitPerSecond = rate

	burstValue := getEnv("RATE_LIMIT_BURST", strconv.Itoa(defaultRateBurst))
	burst, err := strconv.Atoi(burstValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid RATE_LIMIT_BURST value: %s", burstValue)
	}
	cfg.RateLimitBurst = burst

	ttlValue := getEnv("RATE_LIMIT_CLIENT_TTL", defaultRateClientTTL.String())
	ttl, err := time.ParseDuration(ttlValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid RATE_LIMIT_CLIENT_TTL value: %s", ttlValue)
	}
	cfg.RateLimitClientTTL = ttl

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
