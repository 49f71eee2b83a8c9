package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Scrape     ScrapeConfig     `mapstructure:"scrape"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Cron       CronConfig       `mapstructure:"cron"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`

	// File enables a rotated log file next to stdout.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Backend  string        `mapstructure:"backend"`
	LotsTTL  time.Duration `mapstructure:"lots_ttl"`
	LotTTL   time.Duration `mapstructure:"lot_ttl"`
	StatsTTL time.Duration `mapstructure:"stats_ttl"`
}

type HTTPConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	MaxRedirects   int           `mapstructure:"max_redirects"`
	RespectRobots  bool          `mapstructure:"respect_robots"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

type ScrapeConfig struct {
	Stagger      time.Duration `mapstructure:"stagger"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
	ErrorMaxLen  int           `mapstructure:"error_max_len"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	LockBackend  string        `mapstructure:"lock_backend"`
}

type AggregatorConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Facets     []string      `mapstructure:"facets"`
	MaxPages   int           `mapstructure:"max_pages"`
	PageDelay  time.Duration `mapstructure:"page_delay"`
	FacetDelay time.Duration `mapstructure:"facet_delay"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Timezone    string `mapstructure:"timezone"`
	ScrapeAll   string `mapstructure:"scrape_all"`
	Aggregator  string `mapstructure:"aggregator"`
	StatusSweep string `mapstructure:"status_sweep"`
}

type FeedConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type AdminConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	AuthDisabled bool          `mapstructure:"auth_disabled"`

	// Host patterns allowed to open the run stream from a browser; same-host is always allowed.
	WSOriginPatterns []string `mapstructure:"ws_origin_patterns"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.lots_ttl", "5m")
	v.SetDefault("cache.lot_ttl", "10m")
	v.SetDefault("cache.stats_ttl", "15m")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.connect_timeout", "10s")
	v.SetDefault("http.user_agent", "Mozilla/5.0 (compatible; AuctionHubBot/1.0)")
	v.SetDefault("http.max_redirects", 3)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.max_body_bytes", 8<<20)
	v.SetDefault("scrape.stagger", "10s")
	v.SetDefault("scrape.max_attempts", 2)
	v.SetDefault("scrape.retry_backoff", "5s")
	v.SetDefault("scrape.run_timeout", "15m")
	v.SetDefault("scrape.error_max_len", 2000)
	v.SetDefault("scrape.lock_ttl", "2h")
	v.SetDefault("scrape.lock_backend", "memory")
	v.SetDefault("aggregator.base_url", "https://www.lotu.uk")
	v.SetDefault("aggregator.facets", []string{"house", "flat", "commercial", "land"})
	v.SetDefault("aggregator.max_pages", 30)
	v.SetDefault("aggregator.page_delay", "600ms")
	v.SetDefault("aggregator.facet_delay", "2s")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.timezone", "Europe/London")
	v.SetDefault("cron.scrape_all", "0 0 6 * * *")
	v.SetDefault("cron.aggregator", "0 0 */6 * * *")
	v.SetDefault("cron.status_sweep", "0 30 0 * * *")
	v.SetDefault("feed.enabled", true)
	v.SetDefault("feed.path", "lots-data.json")
	v.SetDefault("feed.refresh_interval", "6h")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.token_ttl", "720h")
	v.SetDefault("admin.auth_disabled", false)
	v.SetDefault("admin.ws_origin_patterns", []string{})

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Location resolves the scheduling timezone, falling back to UTC.
func (c CronConfig) Location() *time.Location {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
