package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RequestTimeout bounds one /analyze request end to end; 0 derives it
	// from the llm settings
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type LLMConfig struct {
	Provider       string        `mapstructure:"provider"`
	APIKey         string        `mapstructure:"api_key"`
	APIEndpoint    string        `mapstructure:"endpoint"`
	Model          string        `mapstructure:"model"`
	DeploymentName string        `mapstructure:"deployment"`
	APIVersion     string        `mapstructure:"api_version"`
	MaxTokens      int64         `mapstructure:"max_tokens"`
	Temperature    float64       `mapstructure:"temperature"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
}

// HasCredential reports whether a model API key is configured.
func (c LLMConfig) HasCredential() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// CallBudget is the longest one logical model call can take, including
// retries and backoff. It is 0 when calls are not time-limited.
func (c LLMConfig) CallBudget() time.Duration {
	if c.Timeout <= 0 {
		return 0
	}
	budget := c.Timeout
	wait := c.RetryBackoff
	for i := 0; i < c.MaxRetries; i++ {
		budget += wait + c.Timeout
		wait *= 2
	}
	return budget
}

type AnalyzerConfig struct {
	// MaxImages caps the batch size; 0 disables the check
	MaxImages int `mapstructure:"max_images"`

	// Overrides for the reformat call, which carries no images. Empty values
	// fall back to the llm settings.
	ReformatModel     string `mapstructure:"reformat_model"`
	ReformatMaxTokens int64  `mapstructure:"reformat_max_tokens"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// env lists the environment variables bound to each key, highest precedence
// first.
var env = map[string][]string{
	"server.port":                  {"SERVER_PORT", "PORT"},
	"server.host":                  {"SERVER_HOST"},
	"server.read_timeout":          {"SERVER_READ_TIMEOUT"},
	"server.write_timeout":         {"SERVER_WRITE_TIMEOUT"},
	"server.shutdown_timeout":      {"SERVER_SHUTDOWN_TIMEOUT"},
	"server.max_body_bytes":        {"SERVER_MAX_BODY_BYTES"},
	"server.request_timeout":       {"SERVER_REQUEST_TIMEOUT"},
	"llm.provider":                 {"LLM_PROVIDER", "OPENAI_PROVIDER"},
	"llm.api_key":                  {"LLM_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"},
	"llm.endpoint":                 {"LLM_ENDPOINT", "OPENAI_ENDPOINT"},
	"llm.model":                    {"LLM_MODEL", "OPENAI_MODEL"},
	"llm.deployment":               {"OPENAI_DEPLOYMENT"},
	"llm.api_version":              {"OPENAI_API_VERSION"},
	"llm.max_tokens":               {"LLM_MAX_TOKENS"},
	"llm.temperature":              {"LLM_TEMPERATURE"},
	"llm.timeout":                  {"LLM_TIMEOUT"},
	"llm.max_retries":              {"LLM_MAX_RETRIES"},
	"llm.retry_backoff":            {"LLM_RETRY_BACKOFF"},
	"analyzer.max_images":          {"ANALYZER_MAX_IMAGES"},
	"analyzer.reformat_model":      {"ANALYZER_REFORMAT_MODEL"},
	"analyzer.reformat_max_tokens": {"ANALYZER_REFORMAT_MAX_TOKENS"},
	"log.level":                    {"LOG_LEVEL"},
	"log.format":                   {"LOG_FORMAT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 25<<20)
	v.SetDefault("server.request_timeout", "0s")

	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.deployment", "gpt-4o")
	v.SetDefault("llm.api_version", "2024-06-01")
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.temperature", 0)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 1)
	v.SetDefault("llm.retry_backoff", "1s")

	v.SetDefault("analyzer.max_images", 4)
	v.SetDefault("analyzer.reformat_model", "")
	v.SetDefault("analyzer.reformat_max_tokens", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadEnvFile loads variables from a dotenv file. A missing file is not an
// error.
func LoadEnvFile(path string) {
	if err := godotenv.Load(path); err == nil {
		slog.Info("loaded environment file", "path", path)
	}
}

// LoadConfig builds the configuration from defaults, the optional config file
// and the environment, in increasing order of precedence.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, names := range env {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.LLM.applyProviderDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Server.applyTimeouts(cfg.LLM)

	slog.Info("configuration loaded successfully", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	return &cfg, nil
}

func (c *LLMConfig) applyProviderDefaults() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderOpenAI:
		if c.APIEndpoint == "" {
			c.APIEndpoint = "https://api.openai.com/v1"
		}
		if c.Model == "" {
			c.Model = "gpt-4o"
		}
	case ProviderAzure:
		if c.Model == "" {
			c.Model = c.DeploymentName
		}
	case ProviderGemini:
		if c.Model == "" {
			c.Model = "gemini-2.5-flash"
		}
	}
}

// writeSlack is the time left after the request deadline for writing the
// error envelope.
const writeSlack = 5 * time.Second

// applyTimeouts derives the request deadline from the worst case of two
// sequential model calls and keeps the write timeout above it, so a request
// that runs out of time still gets a response.
func (c *ServerConfig) applyTimeouts(llm LLMConfig) {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 2 * llm.CallBudget()
	}
	if c.RequestTimeout > 0 && c.WriteTimeout > 0 && c.WriteTimeout < c.RequestTimeout+writeSlack {
		slog.Info("raising server write timeout above the request deadline",
			"write_timeout", c.WriteTimeout,
			"request_timeout", c.RequestTimeout,
		)
		c.WriteTimeout = c.RequestTimeout + writeSlack
	}
}

// Validate reports configuration that cannot work. A missing API key is not
// an error here; the server starts and rejects analyze calls instead.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	case ProviderAzure:
		if c.LLM.APIEndpoint == "" {
			errs = append(errs, errors.New("llm.endpoint is required for the azure provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("llm.max_retries must not be negative, got %d", c.LLM.MaxRetries))
	}
	if c.Analyzer.MaxImages < 0 {
		errs = append(errs, fmt.Errorf("analyzer.max_images must not be negative, got %d", c.Analyzer.MaxImages))
	}
	if c.Analyzer.ReformatMaxTokens < 0 {
		errs = append(errs, fmt.Errorf("analyzer.reformat_max_tokens must not be negative, got %d", c.Analyzer.ReformatMaxTokens))
	}
	if c.Server.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.request_timeout must not be negative, got %s", c.Server.RequestTimeout))
	}

	return errors.Join(errs...)
}

// Logger builds the process logger from the log settings.
func (c LogConfig) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
