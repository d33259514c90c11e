package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config centrovision-data configuration (HTTP API + CLI).
type Config struct {
	HTTP struct {
		Addr string
	}
	Log struct {
		Level  string
		Format string
	}
	Remote       RemoteConfig
	Desktop      DesktopConfig
	Connectivity ConnectivityConfig
	Redis        RedisConfig
}

// RemoteConfig hosted backend (REST/RPC/auth/storage) settings.
type RemoteConfig struct {
	URL          string        // base URL of the hosted backend, e.g. https://xyz.example.co
	AnonKey      string        // public api key sent as `apikey` on every request
	Timeout      time.Duration // per-request timeout
	SignedURLTTL time.Duration // lifetime requested for storage signed URLs
}

// DesktopConfig desktop shell settings. Shell=false means the process runs without
// the local command bridge and every operation takes the remote path.
type DesktopConfig struct {
	Shell         bool
	LocalDBPath   string
	DocumentsDir  string
	PreferredMode string // "local" (default) or "remote"; only consulted when the shell is present
}

// ConnectivityConfig network probe settings for the mode resolver.
type ConnectivityConfig struct {
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
}

// RedisConfig optional Redis for the signed-URL cache and user preferences.
// When disabled an in-memory store is used.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Remote.URL = strings.TrimRight(getEnv("REMOTE_URL", "http://localhost:54321"), "/")
	cfg.Remote.AnonKey = getEnv("REMOTE_ANON_KEY", "")
	cfg.Remote.Timeout = parseDuration(getEnv("REMOTE_TIMEOUT", "15s"), 15*time.Second)
	cfg.Remote.SignedURLTTL = parseDuration(getEnv("REMOTE_SIGNED_URL_TTL", "1h"), time.Hour)

	cfg.Desktop.Shell = parseBool(getEnv("DESKTOP_SHELL", "false"), false)
	cfg.Desktop.LocalDBPath = getEnv("LOCAL_DB_PATH", "centrovision.db")
	cfg.Desktop.DocumentsDir = getEnv("LOCAL_DOCUMENTS_DIR", "documents")
	cfg.Desktop.PreferredMode = getEnv("PREFERRED_MODE", "local")

	cfg.Connectivity.ProbeInterval = parseDuration(getEnv("PROBE_INTERVAL", "10s"), 10*time.Second)
	cfg.Connectivity.ProbeTimeout = parseDuration(getEnv("PROBE_TIMEOUT", "3s"), 3*time.Second)

	cfg.Redis.Enabled = parseBool(getEnv("REDIS_ENABLED", "false"), false)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return b
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
