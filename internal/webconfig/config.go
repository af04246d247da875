package webconfig

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Port        int      `json:"port"`
	Bind        string   `json:"bind"`
	CORSOrigins []string `json:"cors_origins"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	JWTExpire string `json:"jwt_expire"`
}

type DatabaseConfig struct {
	Driver      string `json:"driver"`
	SQLitePath  string `json:"sqlite_path"`
	PostgresDSN string `json:"postgres_dsn"`
}

type LogConfig struct {
	Level      string `json:"level"`
	Mode       string `json:"mode"`
	FilePath   string `json:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// MarketplaceConfig points at the remote AccountsHub API.
type MarketplaceConfig struct {
	BaseURL        string `json:"base_url"`
	APIPrefix      string `json:"api_prefix"`
	Token          string `json:"token"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	UserAgent      string `json:"user_agent"`
}

type BadgeConfig struct {
	PollIntervalSeconds int  `json:"poll_interval_seconds"`
	MarkConcurrency     int  `json:"mark_concurrency"`
	TicketConcurrency   int  `json:"ticket_concurrency"`
	MarkSeenOnRefresh   bool `json:"mark_seen_on_refresh"`
}

type AlertConfig struct {
	Enabled     bool `json:"enabled"`
	MinIncrease int  `json:"min_increase"`
}

type Config struct {
	Server      ServerConfig      `json:"server"`
	Auth        AuthConfig        `json:"auth"`
	Database    DatabaseConfig    `json:"database"`
	Log         LogConfig         `json:"log"`
	Marketplace MarketplaceConfig `json:"marketplace"`
	Badge       BadgeConfig       `json:"badge"`
	Alert       AlertConfig       `json:"alert"`
}

// defaultDataDir is where hubdeck keeps its db, json and log files.
func defaultDataDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "./data"
	}
	return filepath.Join(filepath.Dir(exe), "data")
}

func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port:        18795,
			Bind:        "127.0.0.1",
			CORSOrigins: []string{},
		},
		Auth: AuthConfig{
			JWTSecret: "",
			JWTExpire: "24h",
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(dataDir, "hubdeck.db"),
		},
		Log: LogConfig{
			Level:      "info",
			Mode:       "production",
			FilePath:   filepath.Join(dataDir, "hubdeck.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Marketplace: MarketplaceConfig{
			BaseURL:        "https://aitool.asoroautomotive.com",
			APIPrefix:      "/api",
			TimeoutSeconds: 15,
			UserAgent:      "hubdeck",
		},
		Badge: BadgeConfig{
			PollIntervalSeconds: 0,
			MarkConcurrency:     8,
			TicketConcurrency:   4,
			MarkSeenOnRefresh:   true,
		},
		Alert: AlertConfig{
			Enabled:     false,
			MinIncrease: 1,
		},
	}
}

func ConfigPath() string {
	if custom := strings.TrimSpace(os.Getenv("HUBDECK_CONFIG")); custom != "" {
		return custom
	}
	return filepath.Join(defaultDataDir(), "hubdeck.json")
}

func envFilePath() string {
	if custom := strings.TrimSpace(os.Getenv("HUBDECK_ENV_FILE")); custom != "" {
		return custom
	}
	return ".env"
}

func Load() (Config, error) {
	cfg := Default()

	// Layer 1: config file
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Default(), err
		}
	}

	// Layer 2: .env file; never overrides variables already set
	if err := loadDotEnv(envFilePath()); err != nil {
		return cfg, err
	}

	// Layer 3: environment variables
	applyEnvOverrides(&cfg)

	// Layer 4: generate JWT secret if empty and persist it
	if cfg.Auth.JWTSecret == "" {
		secret, err := generateSecret(32)
		if err != nil {
			return cfg, err
		}
		cfg.Auth.JWTSecret = secret
		_ = Save(cfg)
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func Save(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func (c *Config) ListenAddr() string {
	return c.Server.Bind + ":" + strconv.Itoa(c.Server.Port)
}

func (c *Config) JWTExpireDuration() time.Duration {
	d, err := time.ParseDuration(c.Auth.JWTExpire)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

func (c *Config) IsDebug() bool {
	return strings.EqualFold(c.Log.Mode, "debug")
}

// MarketTimeout is the per-request timeout for marketplace calls.
func (c *Config) MarketTimeout() time.Duration {
	if c.Marketplace.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Marketplace.TimeoutSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	if c.Badge.PollIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Badge.PollIntervalSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HUBDECK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("HUBDECK_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("HUBDECK_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("HUBDECK_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("HUBDECK_DB_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HUBDECK_DB_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := os.Getenv("HUBDECK_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("HUBDECK_JWT_EXPIRE"); v != "" {
		cfg.Auth.JWTExpire = v
	}
	if v := os.Getenv("HUBDECK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HUBDECK_LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
	if v := os.Getenv("HUBDECK_LOG_FILE"); v != "" {
		cfg.Log.FilePath = v
	}
	if v := os.Getenv("HUBDECK_MARKET_URL"); v != "" {
		cfg.Marketplace.BaseURL = v
	}
	if v, ok := os.LookupEnv("HUBDECK_MARKET_PREFIX"); ok {
		cfg.Marketplace.APIPrefix = v
	}
	if v := os.Getenv("HUBDECK_MARKET_TOKEN"); v != "" {
		cfg.Marketplace.Token = v
	}
	if v := os.Getenv("HUBDECK_MARKET_TIMEOUT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Marketplace.TimeoutSeconds = p
		}
	}
	if v := os.Getenv("HUBDECK_POLL_INTERVAL"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Badge.PollIntervalSeconds = p
		}
	}
	if v := os.Getenv("HUBDECK_MARK_CONCURRENCY"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Badge.MarkConcurrency = p
		}
	}
	if v := os.Getenv("HUBDECK_TICKET_CONCURRENCY"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Badge.TicketConcurrency = p
		}
	}
	if v := os.Getenv("HUBDECK_MARK_SEEN"); v != "" {
		cfg.Badge.MarkSeenOnRefresh = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HUBDECK_ALERT_ENABLED"); v != "" {
		cfg.Alert.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HUBDECK_ALERT_MIN_INCREASE"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Alert.MinIncrease = p
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func generateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
