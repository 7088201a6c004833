package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database     DatabaseConfig     `mapstructure:"database"`
	AI           AIConfig           `mapstructure:"ai"`
	Image        ImageConfig        `mapstructure:"image"`
	Application  ApplicationConfig  `mapstructure:"application"`
	Presentation PresentationConfig `mapstructure:"presentation"`
}

type ApplicationConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	// FunctionPrefix is the routing prefix of the content endpoints.
	FunctionPrefix string `mapstructure:"function_prefix"`
}

type AIConfig struct {
	ActiveProvider string                      `mapstructure:"active_provider"`
	Providers      map[string]ProviderSettings `mapstructure:"providers"`
}

type ProviderSettings struct {
	Driver      string  `mapstructure:"driver"` // openai, gemini
	Key         string  `mapstructure:"key"`
	Endpoint    string  `mapstructure:"endpoint"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	// Cost per 1K tokens, used by the usage ledger.
	CostPer1K float64 `mapstructure:"cost_per_1k"`
}

type ImageConfig struct {
	Token         string        `mapstructure:"token"`
	Endpoint      string        `mapstructure:"endpoint"`
	Model         string        `mapstructure:"model"`
	AspectRatio   string        `mapstructure:"aspect_ratio"`
	OutputFormat  string        `mapstructure:"output_format"`
	OutputQuality int           `mapstructure:"output_quality"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	MaxPolls      int           `mapstructure:"max_polls"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// PreferWait asks the API to hold the create call open until the job finishes.
	PreferWait bool `mapstructure:"prefer_wait"`
}

type PresentationConfig struct {
	MaxSlides     int           `mapstructure:"max_slides"`
	DeckSize      int           `mapstructure:"deck_size"`
	Debounce      time.Duration `mapstructure:"debounce"`
	FallbackTitle string        `mapstructure:"fallback_title"`
	// Content is "structured" (subtitle and bullets) or "title" (title and image only).
	Content string `mapstructure:"content"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Options  string `mapstructure:"options"`
}

// Enabled reports whether a usage ledger database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

func (c *DatabaseConfig) GetConnectStr() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, sslmode)

	if c.Options != "" {
		// Basic URL encoding for the options value: space -> %20
		encodedOptions := strings.ReplaceAll(c.Options, " ", "%20")
		connStr += fmt.Sprintf("&options=%s", encodedOptions)
	}

	return connStr
}

// Active returns the settings of the active text-generation provider.
func (c *AIConfig) Active() (ProviderSettings, bool) {
	s, ok := c.Providers[c.ActiveProvider]
	if !ok {
		return ProviderSettings{}, false
	}
	if s.Driver == "" {
		s.Driver = c.ActiveProvider
	}
	return s, true
}

// MissingCredentials lists the credentials needed before any upstream call.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if s, ok := c.AI.Active(); !ok || s.Key == "" {
		missing = append(missing, fmt.Sprintf("text provider %q key", c.AI.ActiveProvider))
	}
	if c.Image.Token == "" {
		missing = append(missing, "image generation token")
	}
	return missing
}

// Default returns a configuration with every default applied and no credentials.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.name", "SlideKaraoke")
	v.SetDefault("application.host", "")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.function_prefix", "/.netlify/functions")

	v.SetDefault("ai.active_provider", "openai")
	v.SetDefault("ai.providers.openai.driver", "openai")
	v.SetDefault("ai.providers.openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("ai.providers.openai.model", "gpt-3.5-turbo")
	v.SetDefault("ai.providers.gemini.driver", "gemini")
	v.SetDefault("ai.providers.gemini.model", "gemini-2.5-flash")

	v.SetDefault("image.endpoint", "https://api.replicate.com/v1")
	v.SetDefault("image.model", "black-forest-labs/flux-schnell")
	v.SetDefault("image.aspect_ratio", "16:9")
	v.SetDefault("image.output_format", "webp")
	v.SetDefault("image.output_quality", 90)
	v.SetDefault("image.poll_interval", time.Second)
	v.SetDefault("image.max_polls", 120)
	v.SetDefault("image.timeout", 3*time.Minute)

	v.SetDefault("presentation.max_slides", 50)
	v.SetDefault("presentation.deck_size", 8)
	v.SetDefault("presentation.debounce", 300*time.Millisecond)
	v.SetDefault("presentation.fallback_title", "nature")
	v.SetDefault("presentation.content", "structured")
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: .env file not found, using system environment variables")
	}

	v := viper.New()
	v.SetConfigFile("config.yaml") // Support optional config.yaml
	v.AutomaticEnv()

	// Environment variable mappings
	mappings := []struct {
		key, env string
	}{
		{"database.url", "DB_URL"},
		{"database.host", "PG_HOST"},
		{"database.port", "PG_PORT"},
		{"database.user", "PG_USER"},
		{"database.password", "PG_PASSWORD"},
		{"database.dbname", "PG_DB"},
		{"database.sslmode", "PG_SSLMODE"},
		{"database.options", "PG_OPTIONS"},
		{"application.host", "HOST"},
		{"application.port", "PORT"},
		{"application.function_prefix", "FUNCTION_PREFIX"},
		{"ai.active_provider", "AI_PROVIDER"},

		// AI Providers
		{"ai.providers.openai.key", "OPENAI_API_KEY"},
		{"ai.providers.openai.model", "OPENAI_MODEL"},
		{"ai.providers.openai.endpoint", "OPENAI_BASE_URL"},
		{"ai.providers.gemini.key", "GEMINI_KEY"},
		{"ai.providers.gemini.model", "GEMINI_MODEL"},

		// Image generation
		{"image.token", "REPLICATE_API_TOKEN"},
		{"image.model", "REPLICATE_MODEL"},
		{"image.endpoint", "REPLICATE_BASE_URL"},
		{"image.timeout", "IMAGE_TIMEOUT"},

		// Presentation
		{"presentation.content", "SLIDE_CONTENT"},
		{"presentation.max_slides", "MAX_SLIDES"},
	}

	for _, m := range mappings {
		v.BindEnv(m.key, m.env)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Ignore if config.yaml is missing
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.AI.ActiveProvider == "" {
		cfg.AI.ActiveProvider = "openai"
	}
	if cfg.Image.Token != "" && !strings.HasPrefix(cfg.Image.Token, "r8_") {
		log.Printf("Warning: image token does not start with \"r8_\"")
	}

	return &cfg, nil
}

// Watch logs edits to config.yaml. The running Config is not mutated; the
// change takes effect on restart.
func Watch() {
	v := viper.New()
	v.SetConfigFile("config.yaml")
	if err := v.ReadInConfig(); err != nil {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Has(fsnotify.Write) || e.Has(fsnotify.Create) {
			log.Printf("Config file changed: %s (restart to apply)", e.Name)
		}
	})
	v.WatchConfig()
}
