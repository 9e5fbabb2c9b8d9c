package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/matchcore/internal/domain"
)

// Config holds all runtime configuration for the matching service.
type Config struct {
	Port             int
	LogLevel         string
	Markets          []domain.TradingPair
	CommandBuffer    int
	DefaultDepth     int
	MaxDepth         int
	JournalDir       string
	EventLogCapacity int
	MetricsInterval  time.Duration
	VWAPWindow       time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	markets, err := parseMarkets(getStr("MARKETS", "BTC/USDC"))
	if err != nil {
		return nil, fmt.Errorf("invalid MARKETS: %w", err)
	}

	commandBuffer, err := getPositiveInt("COMMAND_BUFFER", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid COMMAND_BUFFER: %w", err)
	}

	defaultDepth, err := getPositiveInt("DEFAULT_DEPTH", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_DEPTH: %w", err)
	}

	maxDepth, err := getPositiveInt("MAX_DEPTH", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_DEPTH: %w", err)
	}
	if defaultDepth > maxDepth {
		return nil, fmt.Errorf("invalid DEFAULT_DEPTH: %d exceeds MAX_DEPTH %d", defaultDepth, maxDepth)
	}

	eventLogCapacity, err := getPositiveInt("EVENT_LOG_CAPACITY", 10000)
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_LOG_CAPACITY: %w", err)
	}

	metricsInterval, err := getDuration("METRICS_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_INTERVAL: %w", err)
	}

	vwapWindow, err := getDuration("VWAP_WINDOW", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid VWAP_WINDOW: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:             port,
		LogLevel:         logLevel,
		Markets:          markets,
		CommandBuffer:    commandBuffer,
		DefaultDepth:     defaultDepth,
		MaxDepth:         maxDepth,
		JournalDir:       getStr("JOURNAL_DIR", ""),
		EventLogCapacity: eventLogCapacity,
		MetricsInterval:  metricsInterval,
		VWAPWindow:       vwapWindow,
		ReadTimeout:      readTimeout,
		WriteTimeout:     writeTimeout,
		IdleTimeout:      idleTimeout,
		ShutdownTimeout:  shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getPositiveInt(key string, defaultVal int) (int, error) {
	n, err := getInt(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

// parseMarkets reads a comma-separated list such as "BTC/USDC,ETH-USDC".
// Blank entries are skipped; duplicates are an error.
func parseMarkets(s string) ([]domain.TradingPair, error) {
	var pairs []domain.TradingPair
	seen := make(map[domain.TradingPair]bool)
	for _, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		p, err := domain.ParseTradingPair(raw)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			return nil, fmt.Errorf("%s listed twice", p)
		}
		seen[p] = true
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
