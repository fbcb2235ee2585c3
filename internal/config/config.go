// Load envs from .env
// Load YAML config
// Override from env
// Provide default values
// Validate config

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-jobwatch/internal/models"
)

const DefaultPath = "configs/config.yaml"

type StorageConfig struct {
	Backend string `yaml:"backend" validate:"omitempty,oneof=file sqlite postgres memory"`
	//directory for file, database file for sqlite
	Path string `yaml:"path"`
	DSN  string `yaml:"dsn" json:"-"`
}

type LogConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format     string `yaml:"format" validate:"omitempty,oneof=console json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

// RecheckConfig drives the stability re-check after a detected change
type RecheckConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Delay     time.Duration `yaml:"delay"`
	Timeout   time.Duration `yaml:"timeout"`
	Threshold float64       `yaml:"threshold" validate:"gte=0,lte=100"`
}

type BrowserConfig struct {
	Engine         string        `yaml:"engine" validate:"omitempty,oneof=playwright chromedp"`
	Headless       bool          `yaml:"headless"`
	ViewportWidth  int           `yaml:"viewport_width" validate:"gte=0"`
	ViewportHeight int           `yaml:"viewport_height" validate:"gte=0"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	NavTimeout     time.Duration `yaml:"nav_timeout"`
	//LoadingSelectors are waited on until they leave the DOM
	LoadingSelectors []string `yaml:"loading_selectors"`
}

type HTTPConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	TelegramToken  string `yaml:"telegram_token" env:"TELEGRAM_BOT_TOKEN" json:"-"`
	TelegramChatID int64  `yaml:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`
	//Verifier credentials
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY" json:"-"`
	GeminiModel  string `yaml:"gemini_model"`
	GroqAPIKey   string `yaml:"groq_api_key" env:"GROQ_API_KEY" json:"-"`
	GroqModel    string `yaml:"groq_model"`

	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`

	//Detection policy
	ChangeThreshold     float64       `yaml:"change_threshold" env:"CHANGE_THRESHOLD" validate:"gte=0,lte=100"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold" validate:"gte=0,lte=1"`
	Workers             int           `yaml:"workers" validate:"gte=1,lte=64"`
	TargetTimeout       time.Duration `yaml:"target_timeout"`
	VerifierTimeout     time.Duration `yaml:"verifier_timeout"`
	Recheck             RecheckConfig `yaml:"recheck"`

	Browser BrowserConfig `yaml:"browser"`
	HTTP    HTTPConfig    `yaml:"http"`

	SaveDebugImages bool   `yaml:"save_debug_images" env:"SAVE_DEBUG_IMAGES"`
	DebugDir        string `yaml:"debug_dir"`
	NotifyErrors    bool   `yaml:"notify_errors"`

	Server ServerConfig `yaml:"server"`

	Targets []models.Target `yaml:"targets" validate:"required,min=1,unique=Name,dive"`
}

// Default returns a config with every default filled in and no targets
func Default() *Config {
	return &Config{
		GeminiModel:         "gemini-1.5-flash",
		GroqModel:           "llama-3.3-70b-versatile",
		Storage:             StorageConfig{Backend: "file", Path: ".state"},
		Log:                 LogConfig{Level: "info", Format: "console", MaxSizeMB: 10, MaxBackups: 3},
		ChangeThreshold:     0.5,
		ConfidenceThreshold: 0.7,
		Workers:             4,
		TargetTimeout:       2 * time.Minute,
		VerifierTimeout:     45 * time.Second,
		Recheck: RecheckConfig{
			Enabled:   true,
			Delay:     5 * time.Second,
			Timeout:   90 * time.Second,
			Threshold: 1.0,
		},
		Browser: BrowserConfig{
			Engine:         models.EnginePlaywright,
			Headless:       true,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			SettleDelay:    3 * time.Second,
			NavTimeout:     30 * time.Second,
			LoadingSelectors: []string{
				`[data-automation-id="loadingIndicator"]`,
				".loading",
				".spinner",
				`[aria-label="Loading"]`,
			},
		},
		HTTP: HTTPConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			Timeout:   30 * time.Second,
		},
		DebugDir: "logs/debug",
		Server:   ServerConfig{Addr: ":8080"},
	}
}

// Load reads .env, the yaml file at path, then env overrides, fills defaults
// and validates the result
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a config from yaml bytes plus the environment
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config yaml: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.TelegramToken = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.GeminiAPIKey = key
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.GroqAPIKey = key
	}
	if v := os.Getenv("CHANGE_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid CHANGE_THRESHOLD: %w", err)
		}
		c.ChangeThreshold = threshold
	}
	if v := os.Getenv("SAVE_DEBUG_IMAGES"); v != "" {
		c.SaveDebugImages = strings.EqualFold(v, "true") || v == "1"
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Storage.DSN = dsn
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Browser.Engine == "" {
		c.Browser.Engine = models.EnginePlaywright
	}
	for i := range c.Targets {
		t := &c.Targets[i]
		if t.Mode == "" {
			t.Mode = models.ModeHTTP
		}
		if t.Mode != models.ModeHTTP && t.Engine == "" {
			t.Engine = c.Browser.Engine
		}
		if t.Verifier == "" {
			t.Verifier = models.VerifierAuto
		}
		if t.Slot == "" {
			t.Slot = models.Slugify(t.Name)
		}
	}
}

var slotPrefixRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("slot", func(fl validator.FieldLevel) bool {
		return slotPrefixRegex.MatchString(fl.Field().String())
	})
	return validate
}

// Validate checks field constraints and cross-field rules
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	slots := make(map[string]string, len(c.Targets))
	for _, t := range c.Targets {
		if other, ok := slots[t.SlotPrefix()]; ok {
			return fmt.Errorf("invalid config: targets %q and %q share storage slot %q", other, t.Name, t.SlotPrefix())
		}
		slots[t.SlotPrefix()] = t.Name
	}

	if c.Storage.Backend == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("invalid config: postgres storage needs storage.dsn or DATABASE_URL")
	}
	return nil
}

// FindTarget returns the target with the given name
func (c *Config) FindTarget(name string) (models.Target, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return models.Target{}, false
}

// HasTelegram reports whether notifications can be delivered
func (c *Config) HasTelegram() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Redacted returns a copy with secrets masked, for printing
func (c *Config) Redacted() Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	out.TelegramToken = mask(out.TelegramToken)
	out.GeminiAPIKey = mask(out.GeminiAPIKey)
	out.GroqAPIKey = mask(out.GroqAPIKey)
	out.Storage.DSN = mask(out.Storage.DSN)
	return out
}
