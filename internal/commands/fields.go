package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"pkdindustries/switchboard/internal/config"
)

// configField binds a settable configuration key to its setter and getter.
// provider is non-empty for credential fields that also persist to the
// secret store.
type configField struct {
	setter   func(*config.Configuration, string) error
	getter   func(*config.Configuration) string
	provider string
}

var configFields = map[string]configField{
	"model": {
		setter: func(c *config.Configuration, v string) error {
			if !strings.Contains(v, "/") {
				return fmt.Errorf("model must include provider prefix, e.g. 'openai/gpt-4o'")
			}
			c.Model.Model = v
			return nil
		},
		getter: func(c *config.Configuration) string { return c.Model.Model },
	},
	"prompt": {
		setter: func(c *config.Configuration, v string) error {
			c.App.Prompt = v
			return nil
		},
		getter: func(c *config.Configuration) string { return c.App.Prompt },
	},
	"maxtokens": {
		setter: func(c *config.Configuration, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid value for maxtokens, must be a positive integer")
			}
			c.Model.MaxTokens = n
			return nil
		},
		getter: func(c *config.Configuration) string { return strconv.Itoa(c.Model.MaxTokens) },
	},
	"temperature": {
		setter: func(c *config.Configuration, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for temperature, must be a number (negative omits it)")
			}
			c.Model.Temperature = f
			return nil
		},
		getter: func(c *config.Configuration) string {
			if t := c.Model.TemperaturePtr(); t != nil {
				return strconv.FormatFloat(*t, 'g', -1, 64)
			}
			return "(backend default)"
		},
	},
	"top_p": {
		setter: func(c *config.Configuration, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for top_p, must be a number (negative omits it)")
			}
			c.Model.TopP = f
			return nil
		},
		getter: func(c *config.Configuration) string {
			if p := c.Model.TopPPtr(); p != nil {
				return strconv.FormatFloat(*p, 'g', -1, 64)
			}
			return "(backend default)"
		},
	},
	"thinking": {
		setter: func(c *config.Configuration, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for thinking, must be true or false")
			}
			c.Model.Thinking = b
			return nil
		},
		getter: func(c *config.Configuration) string { return strconv.FormatBool(c.Model.Thinking) },
	},
	"apitimeout": {
		setter: func(c *config.Configuration, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return fmt.Errorf("invalid value for apitimeout, must be a positive duration like 90s")
			}
			c.Model.Timeout = d
			return nil
		},
		getter: func(c *config.Configuration) string { return c.Model.Timeout.String() },
	},
	"retries": {
		setter: func(c *config.Configuration, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid value for retries, must be at least 1")
			}
			c.Model.Retries = n
			return nil
		},
		getter: func(c *config.Configuration) string { return strconv.Itoa(c.Model.Retries) },
	},
	"sdkretries": {
		setter: func(c *config.Configuration, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value for sdkretries, must be zero or more")
			}
			c.Model.SDKRetries = n
			return nil
		},
		getter: func(c *config.Configuration) string { return strconv.Itoa(c.Model.SDKRetries) },
	},
	"maxhistory": {
		setter: func(c *config.Configuration, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 2 {
				return fmt.Errorf("invalid value for maxhistory, must be at least 2")
			}
			c.App.MaxHistory = n
			return nil
		},
		getter: func(c *config.Configuration) string { return strconv.Itoa(c.App.MaxHistory) },
	},
	"verbose": {
		setter: func(c *config.Configuration, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for verbose, must be true or false")
			}
			c.App.Verbose = b
			return nil
		},
		getter: func(c *config.Configuration) string { return strconv.FormatBool(c.App.Verbose) },
	},
	"openaikey": {
		setter: func(c *config.Configuration, v string) error {
			c.Providers.OpenAIKey = v
			return nil
		},
		getter:   func(c *config.Configuration) string { return maskAPIKey(c.Providers.OpenAIKey) },
		provider: "openai",
	},
	"openaiurl": {
		setter: func(c *config.Configuration, v string) error {
			c.Providers.OpenAIURL = v
			return nil
		},
		getter: func(c *config.Configuration) string { return c.Providers.OpenAIURL },
	},
	"anthropickey": {
		setter: func(c *config.Configuration, v string) error {
			c.Providers.AnthropicKey = v
			return nil
		},
		getter:   func(c *config.Configuration) string { return maskAPIKey(c.Providers.AnthropicKey) },
		provider: "anthropic",
	},
	"geminikey": {
		setter: func(c *config.Configuration, v string) error {
			c.Providers.GeminiKey = v
			return nil
		},
		getter:   func(c *config.Configuration) string { return maskAPIKey(c.Providers.GeminiKey) },
		provider: "gemini",
	},
	"ollamaurl": {
		setter: func(c *config.Configuration, v string) error {
			c.Providers.OllamaURL = v
			return nil
		},
		getter: func(c *config.Configuration) string { return c.Providers.OllamaURL },
	},
	"ollamakey": {
		setter: func(c *config.Configuration, v string) error {
			c.Providers.OllamaKey = v
			return nil
		},
		getter:   func(c *config.Configuration) string { return maskAPIKey(c.Providers.OllamaKey) },
		provider: "ollama",
	},
}

// getConfigKeys returns the settable keys plus the "tools" pseudo-key, sorted.
func getConfigKeys() []string {
	keys := make([]string, 0, len(configFields)+1)
	for k := range configFields {
		keys = append(keys, k)
	}
	keys = append(keys, "tools")
	sort.Strings(keys)
	return keys
}

// maskAPIKey shows enough of a key to tell credentials apart without
// exposing them.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-4)
}
