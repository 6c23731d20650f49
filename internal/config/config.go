package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "SMARTNOTES"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "smartnotes.db"
	defaultLogLevel     = "info"

	defaultGateCookieName        = "smartnotes_gate"
	defaultGateSessionTTLMinutes = 720
	defaultGateAttemptsPerMinute = 5

	defaultAIBaseURL           = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultAIModel             = "gemini-2.5-flash"
	defaultAIRequestsPerMinute = 15

	defaultClientBaseURL        = "http://127.0.0.1:8080"
	defaultClientTimeoutSeconds = 30
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress  string
	DatabasePath string
	LogLevel     string
	Gate         GateConfig
	AI           AIConfig
}

// GateConfig configures the shared-secret access gate. An empty Answer disables it.
type GateConfig struct {
	Answer            string
	SigningSecret     string
	CookieName        string
	SessionTTL        time.Duration
	AttemptsPerMinute int
}

// Enabled reports whether the gate protects the API.
func (c GateConfig) Enabled() bool {
	return strings.TrimSpace(c.Answer) != ""
}

// AIConfig configures the generative-language collaborator. An empty APIKey disables it.
type AIConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
}

// Enabled reports whether AI routes are served.
func (c AIConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ClientConfig captures configuration for CLI commands talking to a running API.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	GateAnswer string
	LogLevel   string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)

	configViper.SetDefault("gate.answer", "")
	configViper.SetDefault("gate.signing_secret", "")
	configViper.SetDefault("gate.cookie_name", defaultGateCookieName)
	configViper.SetDefault("gate.session_ttl_minutes", defaultGateSessionTTLMinutes)
	configViper.SetDefault("gate.attempts_per_minute", defaultGateAttemptsPerMinute)

	configViper.SetDefault("ai.api_key", "")
	configViper.SetDefault("ai.base_url", defaultAIBaseURL)
	configViper.SetDefault("ai.model", defaultAIModel)
	configViper.SetDefault("ai.requests_per_minute", defaultAIRequestsPerMinute)

	configViper.SetDefault("client.base_url", defaultClientBaseURL)
	configViper.SetDefault("client.timeout_seconds", defaultClientTimeoutSeconds)
	configViper.SetDefault("client.gate_answer", "")
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:  configViper.GetString("http.address"),
		DatabasePath: configViper.GetString("database.path"),
		LogLevel:     configViper.GetString("log.level"),
		Gate: GateConfig{
			Answer:            configViper.GetString("gate.answer"),
			SigningSecret:     configViper.GetString("gate.signing_secret"),
			CookieName:        configViper.GetString("gate.cookie_name"),
			SessionTTL:        time.Duration(configViper.GetInt("gate.session_ttl_minutes")) * time.Minute,
			AttemptsPerMinute: configViper.GetInt("gate.attempts_per_minute"),
		},
		AI: AIConfig{
			APIKey:            configViper.GetString("ai.api_key"),
			BaseURL:           configViper.GetString("ai.base_url"),
			Model:             configViper.GetString("ai.model"),
			RequestsPerMinute: configViper.GetInt("ai.requests_per_minute"),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// LoadClient parses the configuration used by CLI commands.
func LoadClient(configViper *viper.Viper) (ClientConfig, error) {
	cfg := ClientConfig{
		BaseURL:    configViper.GetString("client.base_url"),
		Timeout:    time.Duration(configViper.GetInt("client.timeout_seconds")) * time.Second,
		GateAnswer: configViper.GetString("client.gate_answer"),
		LogLevel:   configViper.GetString("log.level"),
	}

	if strings.TrimSpace(cfg.BaseURL) == "" {
		return ClientConfig{}, fmt.Errorf("client.base_url is required")
	}
	if cfg.Timeout <= 0 {
		return ClientConfig{}, fmt.Errorf("client.timeout_seconds must be positive")
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.Gate.Enabled() {
		if strings.TrimSpace(c.Gate.SigningSecret) == "" {
			return fmt.Errorf("gate.signing_secret is required when gate.answer is set")
		}
		if strings.TrimSpace(c.Gate.CookieName) == "" {
			return fmt.Errorf("gate.cookie_name is required")
		}
		if c.Gate.SessionTTL <= 0 {
			return fmt.Errorf("gate.session_ttl_minutes must be positive")
		}
		if c.Gate.AttemptsPerMinute <= 0 {
			return fmt.Errorf("gate.attempts_per_minute must be positive")
		}
	}
	if c.AI.Enabled() {
		if strings.TrimSpace(c.AI.Model) == "" {
			return fmt.Errorf("ai.model is required")
		}
		if c.AI.RequestsPerMinute <= 0 {
			return fmt.Errorf("ai.requests_per_minute must be positive")
		}
	}
	return nil
}
