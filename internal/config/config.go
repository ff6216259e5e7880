package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Configuration struct {
	App       *AppConfig
	Model     *ModelConfig
	Providers *ProviderConfig
	Cache     *CacheConfig
	Audit     *AuditConfig
}

type AppConfig struct {
	Verbose    bool
	Prompt     string
	MaxHistory int
	StateDir   string
}

type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Thinking    bool
	Timeout     time.Duration
	Retries     int
	SDKRetries  int
}

// TemperaturePtr returns the configured temperature, or nil when it is
// negative. Nil means the parameter is omitted from requests entirely so the
// backend applies its own default.
func (m *ModelConfig) TemperaturePtr() *float64 {
	if m.Temperature < 0 {
		return nil
	}
	t := m.Temperature
	return &t
}

// TopPPtr returns the configured top_p, or nil when it is negative.
func (m *ModelConfig) TopPPtr() *float64 {
	if m.TopP < 0 {
		return nil
	}
	p := m.TopP
	return &p
}

type ProviderConfig struct {
	OpenAIKey    string
	OpenAIURL    string
	AnthropicKey string
	GeminiKey    string
	OllamaURL    string
	OllamaKey    string
}

type CacheConfig struct {
	Capacity int
	Persist  bool
}

type AuditConfig struct {
	Records int
}

// YamlSource implements cli.ValueSource for a map loaded from YAML
type YamlSource struct {
	data map[string]any
	key  string
}

func (y *YamlSource) Lookup() (string, bool) {
	if v, ok := y.data[y.key]; ok {
		// Handle slices by joining with comma
		if slice, ok := v.([]any); ok {
			var strs []string
			for _, item := range slice {
				strs = append(strs, fmt.Sprintf("%v", item))
			}
			return strings.Join(strs, ","), true
		}
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

func (y *YamlSource) String() string   { return "yaml" }
func (y *YamlSource) GoString() string { return "yaml" }

func GetFlags() []cli.Flag {
	// Pre-parse config path
	configPath := getConfigPath()
	var configData map[string]any
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err == nil {
			_ = yaml.Unmarshal(data, &configData)
		} else {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", configPath, err)
		}
	}

	// Helper to create sources: EnvVar > YAML > Default
	src := func(key string, env ...string) cli.ValueSourceChain {
		chain := cli.ValueSourceChain{}
		for _, e := range env {
			chain.Chain = append(chain.Chain, cli.EnvVar(e))
		}
		if configData != nil {
			chain.Chain = append(chain.Chain, &YamlSource{data: configData, key: key})
		}
		return chain
	}

	return []cli.Flag{
		// Config file
		&cli.StringFlag{Name: "config", Aliases: []string{"b"}, Usage: "use the named configuration file", Sources: cli.EnvVars("SWITCHBOARD_CONFIG")},

		// Application behavior
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "enable verbose logging of exchanges and configuration", Sources: src("verbose", "SWITCHBOARD_VERBOSE")},
		&cli.StringFlag{Name: "prompt", Value: "you are a helpful assistant.", Usage: "initial system prompt", Sources: src("prompt", "SWITCHBOARD_PROMPT")},
		&cli.IntFlag{Name: "maxhistory", Aliases: []string{"H"}, Value: 250, Usage: "maximum number of messages to keep in the conversation", Sources: src("maxhistory", "SWITCHBOARD_MAXHISTORY")},
		&cli.StringFlag{Name: "statedir", Usage: "directory for persisted caches and credentials (empty disables persistence)", Sources: src("statedir", "SWITCHBOARD_STATEDIR")},

		// Model configuration
		&cli.StringFlag{Name: "model", Value: "ollama/llama3.2", Usage: "provider/model slug to route requests to", Sources: src("model", "SWITCHBOARD_MODEL")},
		&cli.IntFlag{Name: "maxtokens", Value: 4096, Usage: "maximum number of tokens to generate", Sources: src("maxtokens", "SWITCHBOARD_MAXTOKENS")},
		&cli.FloatFlag{Name: "temperature", Value: -1, Usage: "sampling temperature; negative omits it so the backend default applies", Sources: src("temperature", "SWITCHBOARD_TEMPERATURE")},
		&cli.FloatFlag{Name: "top_p", Value: -1, Usage: "top P value; negative omits it so the backend default applies", Sources: src("top_p", "SWITCHBOARD_TOP_P")},
		&cli.BoolFlag{Name: "thinking", Usage: "enable thinking/reasoning for models that support it", Sources: src("thinking", "SWITCHBOARD_THINKING")},
		&cli.DurationFlag{Name: "apitimeout", Aliases: []string{"t"}, Value: time.Minute * 5, Usage: "timeout for each completion request", Sources: src("apitimeout", "SWITCHBOARD_APITIMEOUT")},
		&cli.IntFlag{Name: "retries", Value: 3, Usage: "attempts per exchange before surfacing an error", Sources: src("retries", "SWITCHBOARD_RETRIES")},
		&cli.IntFlag{Name: "sdkretries", Value: 3, Usage: "transport-level retries inside the provider SDK", Sources: src("sdkretries", "SWITCHBOARD_SDKRETRIES")},

		// Provider credentials and endpoints
		&cli.StringFlag{Name: "openaikey", Usage: "OpenAI API key", Sources: src("openaikey", "SWITCHBOARD_OPENAIKEY")},
		&cli.StringFlag{Name: "openaiurl", Usage: "OpenAI API URL (for custom endpoints)", Sources: src("openaiurl", "SWITCHBOARD_OPENAIURL")},
		&cli.StringFlag{Name: "anthropickey", Usage: "Anthropic API key", Sources: src("anthropickey", "SWITCHBOARD_ANTHROPICKEY")},
		&cli.StringFlag{Name: "geminikey", Usage: "Google Gemini API key", Sources: src("geminikey", "SWITCHBOARD_GEMINIKEY")},
		&cli.StringFlag{Name: "ollamaurl", Value: "http://localhost:11434", Usage: "Ollama API URL", Sources: src("ollamaurl", "SWITCHBOARD_OLLAMAURL")},
		&cli.StringFlag{Name: "ollamakey", Usage: "Ollama API key (Bearer token for authentication)", Sources: src("ollamakey", "SWITCHBOARD_OLLAMAKEY")},

		// Cache and audit bounds
		&cli.IntFlag{Name: "cachecapacity", Value: 1000, Usage: "entries kept per continuation cache namespace", Sources: src("cachecapacity", "SWITCHBOARD_CACHECAPACITY")},
		&cli.BoolFlag{Name: "cachepersist", Usage: "persist continuation caches under the state directory", Sources: src("cachepersist", "SWITCHBOARD_CACHEPERSIST")},
		&cli.IntFlag{Name: "auditrecords", Value: 100, Usage: "request/response records kept for /log", Sources: src("auditrecords", "SWITCHBOARD_AUDITRECORDS")},
	}
}

func getConfigPath() string {
	// Check env first
	if v := os.Getenv("SWITCHBOARD_CONFIG"); v != "" {
		return v
	}
	// Check args
	for i, arg := range os.Args {
		if arg == "--config" || arg == "-b" {
			if i+1 < len(os.Args) {
				return os.Args[i+1]
			}
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

func maskKey(key string) string {
	if len(key) > 3 {
		return strings.Repeat("*", len(key)-3) + key[len(key)-3:]
	}
	return key
}

func (c *Configuration) PrintConfig() {
	fmt.Printf("verbose: %t\n", c.App.Verbose)
	fmt.Printf("prompt: %s\n", c.App.Prompt)
	fmt.Printf("maxhistory: %d\n", c.App.MaxHistory)
	fmt.Printf("statedir: %s\n", c.App.StateDir)
	fmt.Printf("model: %s\n", c.Model.Model)
	fmt.Printf("maxtokens: %d\n", c.Model.MaxTokens)
	if t := c.Model.TemperaturePtr(); t != nil {
		fmt.Printf("temperature: %f\n", *t)
	} else {
		fmt.Printf("temperature: (backend default)\n")
	}
	if p := c.Model.TopPPtr(); p != nil {
		fmt.Printf("top_p: %f\n", *p)
	} else {
		fmt.Printf("top_p: (backend default)\n")
	}
	fmt.Printf("thinking: %t\n", c.Model.Thinking)
	fmt.Printf("apitimeout: %s\n", c.Model.Timeout)
	fmt.Printf("retries: %d\n", c.Model.Retries)
	fmt.Printf("sdkretries: %d\n", c.Model.SDKRetries)
	fmt.Printf("openaikey: %s\n", maskKey(c.Providers.OpenAIKey))
	fmt.Printf("openaiurl: %s\n", c.Providers.OpenAIURL)
	fmt.Printf("anthropickey: %s\n", maskKey(c.Providers.AnthropicKey))
	fmt.Printf("geminikey: %s\n", maskKey(c.Providers.GeminiKey))
	fmt.Printf("ollamaurl: %s\n", c.Providers.OllamaURL)
	fmt.Printf("ollamakey: %s\n", maskKey(c.Providers.OllamaKey))
	fmt.Printf("cachecapacity: %d\n", c.Cache.Capacity)
	fmt.Printf("cachepersist: %t\n", c.Cache.Persist)
	fmt.Printf("auditrecords: %d\n", c.Audit.Records)
}

func NewConfiguration(c *cli.Command) *Configuration {
	if c.IsSet("config") {
		zap.S().Infow("Using config file", "path", c.String("config"))
	}

	config := &Configuration{
		App: &AppConfig{
			Verbose:    c.Bool("verbose"),
			Prompt:     c.String("prompt"),
			MaxHistory: c.Int("maxhistory"),
			StateDir:   c.String("statedir"),
		},
		Model: &ModelConfig{
			Model:       c.String("model"),
			MaxTokens:   c.Int("maxtokens"),
			Temperature: c.Float("temperature"),
			TopP:        c.Float("top_p"),
			Thinking:    c.Bool("thinking"),
			Timeout:     c.Duration("apitimeout"),
			Retries:     c.Int("retries"),
			SDKRetries:  c.Int("sdkretries"),
		},
		Providers: &ProviderConfig{
			OpenAIKey:    c.String("openaikey"),
			OpenAIURL:    c.String("openaiurl"),
			AnthropicKey: c.String("anthropickey"),
			GeminiKey:    c.String("geminikey"),
			OllamaURL:    c.String("ollamaurl"),
			OllamaKey:    c.String("ollamakey"),
		},
		Cache: &CacheConfig{
			Capacity: c.Int("cachecapacity"),
			Persist:  c.Bool("cachepersist"),
		},
		Audit: &AuditConfig{
			Records: c.Int("auditrecords"),
		},
	}

	return config
}
