package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "OFMBOT"

var ErrMissingToken = errors.New("bot token is not set (BOT_TOKEN)")

type Config struct {
	Bot       BotConfig
	HTTP      HTTPConfig
	App       AppConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Session   SessionConfig
	Scheduler SchedulerConfig
	Tools     ToolsConfig
	OCR       OCRConfig
	Translate TranslateConfig
	Log       LogConfig
}

type BotConfig struct {
	Token         string
	WebhookSecret string
	APIURL        string
	ArchiveChatID int64
}

type HTTPConfig struct {
	Addr string
}

type AppConfig struct {
	BaseURL      string
	TemplatesDir string
	TmpDir       string
	AdminToken   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

func (r RedisConfig) Addr() string {
	port := strings.TrimSpace(r.Port)
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", strings.TrimSpace(r.Host), port)
}

type PostgresConfig struct {
	DSN      string
	Host     string
	Port     string
	DB       string
	User     string
	Password string
}

func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.DSN) != "" || strings.TrimSpace(p.Host) != ""
}

type SessionConfig struct {
	TTL          time.Duration
	PendingLimit int
}

type SchedulerConfig struct {
	Workers    int
	JobTimeout time.Duration
}

type ToolsConfig struct {
	Soffice   string
	Pdftoppm  string
	Tesseract string
}

type OCRConfig struct {
	Languages string
	Fallback  string
}

type TranslateConfig struct {
	Endpoint      string
	DefaultTarget string
}

type LogConfig struct {
	Level  string
	Format string
}

// bindings maps config keys to the legacy unprefixed env names used by deployments.
var bindings = map[string][]string{
	"bot.token":                {"BOT_TOKEN"},
	"bot.webhook_secret":       {"WEBHOOK_SECRET"},
	"bot.api_url":              {"TELEGRAM_API_URL"},
	"bot.archive_chat_id":      {"GROUP_CHAT_ID"},
	"http.addr":                {"HTTP_ADDR"},
	"app.base_url":             {"APP_BASE"},
	"app.templates_dir":        {"TEMPLATES_DIR"},
	"app.tmp_dir":              {"TMP_ROOT"},
	"app.admin_token":          {"ADMIN_TOKEN"},
	"redis.host":               {"REDIS_HOST"},
	"redis.port":               {"REDIS_PORT"},
	"redis.password":           {"REDIS_PASSWORD"},
	"redis.db":                 {"REDIS_DB"},
	"redis.prefix":             {"REDIS_PREFIX"},
	"postgres.dsn":             {"POSTGRES_DSN"},
	"postgres.host":            {"POSTGRES_HOST"},
	"postgres.port":            {"POSTGRES_PORT"},
	"postgres.db":              {"POSTGRES_DB"},
	"postgres.user":            {"POSTGRES_USER"},
	"postgres.password":        {"POSTGRES_PASSWORD"},
	"session.ttl":              {"SESSION_TTL"},
	"pending.limit":            {"PENDING_LIMIT"},
	"scheduler.workers":        {"WORKERS"},
	"scheduler.job_timeout":    {"JOB_TIMEOUT"},
	"tools.soffice":            {"SOFFICE_BIN"},
	"tools.pdftoppm":           {"PDFTOPPM_BIN"},
	"tools.tesseract":          {"TESSERACT_BIN"},
	"ocr.languages":            {"OCR_LANGUAGES"},
	"ocr.fallback":             {"OCR_FALLBACK"},
	"translate.endpoint":       {"TRANSLATE_ENDPOINT"},
	"translate.default_target": {"TRANSLATE_TARGET"},
	"log.level":                {"LOG_LEVEL"},
	"log.format":               {"LOG_FORMAT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.api_url", "https://api.telegram.org")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.templates_dir", "templates")
	v.SetDefault("app.tmp_dir", os.TempDir()+"/ofm_bot")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "ofmbot")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("pending.limit", 25)
	v.SetDefault("scheduler.workers", 3)
	v.SetDefault("scheduler.job_timeout", "10m")
	v.SetDefault("tools.soffice", "soffice")
	v.SetDefault("tools.pdftoppm", "pdftoppm")
	v.SetDefault("tools.tesseract", "tesseract")
	v.SetDefault("ocr.languages", "uzb+rus+eng")
	v.SetDefault("ocr.fallback", "eng")
	v.SetDefault("translate.endpoint", "https://translate.googleapis.com/translate_a/single")
	v.SetDefault("translate.default_target", "uz")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads config.env (if present), an optional YAML file and the environment.
// An empty path looks for ofmbot.yaml in the working directory.
func Load(path string) (*Config, error) {
	if err := godotenv.Load("config.env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load config.env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ofmbot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || strings.TrimSpace(path) != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range bindings {
		names := append([]string{key, envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, legacy...)
		if err := v.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Bot: BotConfig{
			Token:         strings.TrimSpace(v.GetString("bot.token")),
			WebhookSecret: strings.TrimSpace(v.GetString("bot.webhook_secret")),
			APIURL:        strings.TrimRight(strings.TrimSpace(v.GetString("bot.api_url")), "/"),
			ArchiveChatID: v.GetInt64("bot.archive_chat_id"),
		},
		HTTP: HTTPConfig{Addr: v.GetString("http.addr")},
		App: AppConfig{
			BaseURL:      strings.TrimRight(strings.TrimSpace(v.GetString("app.base_url")), "/"),
			TemplatesDir: v.GetString("app.templates_dir"),
			TmpDir:       v.GetString("app.tmp_dir"),
			AdminToken:   strings.TrimSpace(v.GetString("app.admin_token")),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
		},
		Postgres: PostgresConfig{
			DSN:      v.GetString("postgres.dsn"),
			Host:     v.GetString("postgres.host"),
			Port:     v.GetString("postgres.port"),
			DB:       v.GetString("postgres.db"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
		},
		Session: SessionConfig{
			TTL:          v.GetDuration("session.ttl"),
			PendingLimit: v.GetInt("pending.limit"),
		},
		Scheduler: SchedulerConfig{
			Workers:    v.GetInt("scheduler.workers"),
			JobTimeout: v.GetDuration("scheduler.job_timeout"),
		},
		Tools: ToolsConfig{
			Soffice:   v.GetString("tools.soffice"),
			Pdftoppm:  v.GetString("tools.pdftoppm"),
			Tesseract: v.GetString("tools.tesseract"),
		},
		OCR: OCRConfig{
			Languages: v.GetString("ocr.languages"),
			Fallback:  v.GetString("ocr.fallback"),
		},
		Translate: TranslateConfig{
			Endpoint:      v.GetString("translate.endpoint"),
			DefaultTarget: strings.ToLower(v.GetString("translate.default_target")),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
}

// Validate checks what the bot needs to talk to Telegram.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return ErrMissingToken
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be positive, got %d", c.Scheduler.Workers)
	}
	return nil
}

func (c *Config) WebhookURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = c.App.BaseURL
	}
	return base + "/bot/webhook"
}
