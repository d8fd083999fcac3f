package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Translator providers.
const (
	ProviderAuto      = "auto"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderNone      = "none"
)

// Input backends.
const (
	BackendXDoTool = "xdotool"
	BackendDryRun  = "dryrun"
)

// Config is built once at startup and never mutated afterwards.
type Config struct {
	// Relay configuration
	RelayURL          string
	PairID            string
	Token             string
	RelayQueryAuth    bool
	RelayAuthAck      bool
	RelayAuthTimeout  time.Duration
	RelayPingInterval time.Duration

	// Reconnect policy
	ReconnectFloor   time.Duration
	ReconnectCeiling time.Duration
	ReconnectFactor  float64

	// Translator configuration
	TranslatorProvider string
	TranslatorTimeout  time.Duration
	AnthropicAPIKey    string
	AnthropicModel     string
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string

	// Input backend
	InputBackend         string
	ScreenWidth          int
	ScreenHeight         int
	Failsafe             bool
	CommandPause         time.Duration
	HandlerTimeout       time.Duration
	SystemCommandTimeout time.Duration

	// Directly-listening variant
	ListenAddr      string
	AllowedOrigin   string
	MaxAuthFailures int

	// Telemetry and history
	NatsURL          string
	NatsEventSubject string
	NatsTimeout      time.Duration
	RedisURL         string
	HistoryTTL       time.Duration
	HistoryLimit     int

	// Service configuration
	ServiceName string
	LogLevel    string
}

// Overrides carries command-line values; empty fields leave the
// environment value in place.
type Overrides struct {
	RelayURL   string
	Token      string
	PairID     string
	ListenAddr string
	Translator string
	DryRun     bool
	Verbose    bool
}

func Load(o Overrides) (*Config, error) {
	cfg := &Config{
		// Relay settings
		RelayURL:          getEnv("RELAY_URL", "wss://phone-controller-1.onrender.com"),
		PairID:            getEnv("PAIR_ID", ""),
		Token:             getEnv("PC_AGENT_TOKEN", getEnv("PC_TOKEN", "helloworld")),
		RelayQueryAuth:    getBoolEnv("RELAY_QUERY_AUTH", true),
		RelayAuthAck:      getBoolEnv("RELAY_AUTH_ACK", false),
		RelayAuthTimeout:  getDurationEnv("RELAY_AUTH_TIMEOUT", 10*time.Second),
		RelayPingInterval: getDurationEnv("RELAY_PING_INTERVAL", 20*time.Second),

		// Reconnect settings
		ReconnectFloor:   getDurationEnv("RECONNECT_FLOOR", 5*time.Second),
		ReconnectCeiling: getDurationEnv("RECONNECT_CEILING", 60*time.Second),
		ReconnectFactor:  getFloatEnv("RECONNECT_FACTOR", 1.5),

		// Translator settings
		TranslatorProvider: strings.ToLower(getEnv("TRANSLATOR_PROVIDER", ProviderAuto)),
		TranslatorTimeout:  getDurationEnv("TRANSLATOR_TIMEOUT", 10*time.Second),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),

		// Backend settings
		InputBackend:         strings.ToLower(getEnv("INPUT_BACKEND", BackendXDoTool)),
		ScreenWidth:          getIntEnv("SCREEN_WIDTH", 0),
		ScreenHeight:         getIntEnv("SCREEN_HEIGHT", 0),
		Failsafe:             getBoolEnv("FAILSAFE", true),
		CommandPause:         getDurationEnv("COMMAND_PAUSE", 300*time.Millisecond),
		HandlerTimeout:       getDurationEnv("HANDLER_TIMEOUT", 30*time.Second),
		SystemCommandTimeout: getDurationEnv("SYSTEM_COMMAND_TIMEOUT", 5*time.Second),

		// Server settings
		ListenAddr:      getEnv("LISTEN_ADDR", "0.0.0.0:8765"),
		AllowedOrigin:   getEnv("ALLOWED_ORIGIN", "*"),
		MaxAuthFailures: getIntEnv("MAX_AUTH_FAILURES", 3),

		// Telemetry and history settings
		NatsURL:          getEnv("NATS_URL", ""),
		NatsEventSubject: getEnv("NATS_EVENT_SUBJECT", "pcagent.events"),
		NatsTimeout:      getDurationEnv("NATS_TIMEOUT", 5*time.Second),
		RedisURL:         getEnv("REDIS_URL", ""),
		HistoryTTL:       getDurationEnv("HISTORY_TTL", 30*time.Minute),
		HistoryLimit:     getIntEnv("HISTORY_LIMIT", 10),

		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "pc-agent"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	o.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o Overrides) apply(cfg *Config) {
	if o.RelayURL != "" {
		cfg.RelayURL = o.RelayURL
	}
	if o.Token != "" {
		cfg.Token = o.Token
	}
	if o.PairID != "" {
		cfg.PairID = o.PairID
	}
	if o.ListenAddr != "" {
		cfg.ListenAddr = o.ListenAddr
	}
	if o.Translator != "" {
		cfg.TranslatorProvider = strings.ToLower(o.Translator)
	}
	if o.DryRun {
		cfg.InputBackend = BackendDryRun
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return fmt.Errorf("invalid RELAY_URL %q: %w", c.RelayURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid RELAY_URL %q: scheme must be ws or wss", c.RelayURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid RELAY_URL %q: missing host", c.RelayURL)
	}
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("PC_AGENT_TOKEN must not be empty")
	}
	if c.ReconnectFloor <= 0 {
		return fmt.Errorf("RECONNECT_FLOOR must be positive")
	}
	if c.ReconnectCeiling < c.ReconnectFloor {
		return fmt.Errorf("RECONNECT_CEILING (%s) must not be below RECONNECT_FLOOR (%s)", c.ReconnectCeiling, c.ReconnectFloor)
	}
	if c.ReconnectFactor < 1 {
		return fmt.Errorf("RECONNECT_FACTOR must be at least 1")
	}
	switch c.TranslatorProvider {
	case ProviderAuto, ProviderAnthropic, ProviderOpenAI, ProviderNone:
	default:
		return fmt.Errorf("unknown TRANSLATOR_PROVIDER %q", c.TranslatorProvider)
	}
	switch c.InputBackend {
	case BackendXDoTool, BackendDryRun:
	default:
		return fmt.Errorf("unknown INPUT_BACKEND %q", c.InputBackend)
	}
	if (c.ScreenWidth > 0) != (c.ScreenHeight > 0) {
		return fmt.Errorf("SCREEN_WIDTH and SCREEN_HEIGHT must be set together")
	}
	if c.MaxAuthFailures < 1 {
		return fmt.Errorf("MAX_AUTH_FAILURES must be at least 1")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// Provider resolves "auto" to the first provider that has a credential.
func (c *Config) Provider() string {
	if c.TranslatorProvider != ProviderAuto {
		return c.TranslatorProvider
	}
	switch {
	case c.AnthropicAPIKey != "":
		return ProviderAnthropic
	case c.OpenAIAPIKey != "":
		return ProviderOpenAI
	}
	return ProviderNone
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
