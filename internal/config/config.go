package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Session   SessionConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	NATS      NATSConfig
	Audit     AuditConfig
	DB        DBConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
	// WriteTimeout must cover two sequential completions.
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LLMConfig selects and parameterizes the completion provider.
type LLMConfig struct {
	Provider            string
	APIKey              string
	BaseURL             string
	Model               string
	MaxTokens           int
	MemoryTemperature   float64
	ResponseTemperature float64
}

// SessionConfig bounds the session store and the dialogue windows fed to the pipeline.
type SessionConfig struct {
	Backend       string
	TTL           time.Duration
	MaxSessions   int
	MaxHistory    int
	RecentWindow  int
	CurrentWindow int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RateLimitConfig struct {
	ChatMax       int
	ChatWindowSec int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type NATSConfig struct {
	URL string
}

type AuditConfig struct {
	Enabled bool
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		LLM: LLMConfig{
			Provider:  k.String("llm.provider"),
			APIKey:    firstNonEmpty(k.String("llm.api.key"), k.String("deepseek.api.key")),
			BaseURL:   firstNonEmpty(k.String("llm.base.url"), k.String("deepseek.base.url")),
			Model:     firstNonEmpty(k.String("llm.model"), k.String("model.id")),
			MaxTokens: k.Int("llm.max.tokens"),
		},
		Session: SessionConfig{
			Backend:       k.String("session.backend"),
			MaxSessions:   k.Int("session.max.sessions"),
			MaxHistory:    k.Int("session.max.history"),
			RecentWindow:  k.Int("session.recent.window"),
			CurrentWindow: k.Int("session.current.window"),
		},
		Redis: RedisConfig{
			Enabled:  k.Bool("redis.enabled"),
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		RateLimit: RateLimitConfig{
			ChatMax:       k.Int("ratelimit.chat.max"),
			ChatWindowSec: k.Int("ratelimit.chat.window.sec"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		Audit: AuditConfig{
			Enabled: k.Bool("audit.enabled"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Temperatures may legitimately be 0, so only default when unset.
	cfg.LLM.MemoryTemperature = 0.2
	if k.Exists("llm.memory.temperature") {
		cfg.LLM.MemoryTemperature = k.Float64("llm.memory.temperature")
	}
	cfg.LLM.ResponseTemperature = 0.6
	if k.Exists("llm.response.temperature") {
		cfg.LLM.ResponseTemperature = k.Float64("llm.response.temperature")
	}

	applyDefaults(cfg)

	// Parse durations
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"session.ttl", "24h", &cfg.Session.TTL},
		{"server.write.timeout", "120s", &cfg.Server.WriteTimeout},
		{"server.shutdown.timeout", "30s", &cfg.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		v := k.String(d.key)
		if v == "" {
			v = d.def
		}
		if *d.dest, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", d.key, err)
		}
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "deepseek"
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "deepseek" {
		cfg.LLM.BaseURL = "https://api.deepseek.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModels[cfg.LLM.Provider]
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = SessionBackendMemory
	}
	if cfg.Session.MaxSessions == 0 {
		cfg.Session.MaxSessions = 10000
	}
	if cfg.Session.MaxHistory == 0 {
		cfg.Session.MaxHistory = 200
	}
	if cfg.Session.RecentWindow == 0 {
		cfg.Session.RecentWindow = 6
	}
	if cfg.Session.CurrentWindow == 0 {
		cfg.Session.CurrentWindow = 2
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.RateLimit.ChatMax == 0 {
		cfg.RateLimit.ChatMax = 30
	}
	if cfg.RateLimit.ChatWindowSec == 0 {
		cfg.RateLimit.ChatWindowSec = 60
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "memchat"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "memchat"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 10
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

var defaultModels = map[string]string{
	"deepseek":  "deepseek-ai/DeepSeek-V3.2-Exp",
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-sonnet-4-5",
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
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
