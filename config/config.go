package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// FeedSpec describes one multicast feed subscription.
type FeedSpec struct {
	Name      string // segment name, e.g. NSEFO
	Group     string // multicast group IP
	Port      int
	BigEndian bool
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Feeds, e.g. "NSECM:233.1.2.5:34330:be,NSEFO:233.1.2.6:34331:be,BSECM:226.1.0.1:11401:le"
	Feeds string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string
	LogLevel      string

	// Master contracts directory
	MasterDir string

	// AutoStartBroadcast gates the receiver pool; when false the engine
	// serves only the contract cache and stores.
	AutoStartBroadcast bool
	StatsInterval      time.Duration

	// Greeks sweep
	RiskFreeRate   float64
	DefaultIV      float64
	GreeksInterval time.Duration
	TradingDays    bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Feeds: getEnv("FEEDS", "NSECM:233.1.2.5:34330:be,NSEFO:233.1.2.6:34331:be"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/contracts.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		MasterDir: getEnv("MASTER_DIR", "data/masters"),

		AutoStartBroadcast: getEnvBool("AUTO_START_BROADCAST", true),
		StatsInterval:      getEnvDuration("STATS_INTERVAL", 30*time.Second),

		RiskFreeRate:   getEnvFloat("RISK_FREE_RATE", 0.07),
		DefaultIV:      getEnvFloat("DEFAULT_IV", 0.18),
		GreeksInterval: getEnvDuration("GREEKS_INTERVAL", time.Second),
		TradingDays:    getEnvBool("GREEKS_TRADING_DAYS", true),
	}
}

// ParseFeeds parses the Feeds string into feed specs. Each entry is
// name:group:port:endian where endian is "be" or "le".
func (c *Config) ParseFeeds() ([]FeedSpec, error) {
	var specs []FeedSpec
	for _, entry := range strings.Split(c.Feeds, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("bad feed spec %q: want name:group:port:endian", entry)
		}
		port, err := strconv.Atoi(parts[2])
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("bad feed spec %q: invalid port %q", entry, parts[2])
		}
		var big bool
		switch strings.ToLower(parts[3]) {
		case "be":
			big = true
		case "le":
			big = false
		default:
			return nil, fmt.Errorf("bad feed spec %q: endian must be be or le", entry)
		}
		specs = append(specs, FeedSpec{
			Name:      strings.ToUpper(parts[0]),
			Group:     parts[1],
			Port:      port,
			BigEndian: big,
		})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no feeds configured")
	}
	return specs, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
