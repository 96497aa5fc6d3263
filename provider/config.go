package provider

import (
	"strings"

	"github.com/go-openapi/swag"
	"github.com/spf13/viper"
)

// Config carries the per-provider connection settings. Temperature and
// MaxTokens are pointers so an unset override can be told apart from an
// explicit zero.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	MaxTokens   *int
}

// Merge resolves override on top of c: set override fields replace, unset
// fields fall through to c. Neither receiver nor argument is mutated.
func (c Config) Merge(override Config) Config {
	out := c
	if override.APIKey != "" {
		out.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		out.BaseURL = override.BaseURL
	}
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	return out
}

// FromEnv reads the environment defaults for the given provider
// identifier: <ID>_API_KEY, <ID>_BASE_URL, <ID>_MODEL, <ID>_TEMPERATURE
// and <ID>_MAX_TOKENS, each independently optional.
func FromEnv(id string) Config {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(id))
	v.AutomaticEnv()

	cfg := Config{
		APIKey:  v.GetString("api_key"),
		BaseURL: v.GetString("base_url"),
		Model:   v.GetString("model"),
	}
	if s := v.GetString("temperature"); s != "" {
		if f, err := swag.ConvertFloat64(s); err == nil {
			cfg.Temperature = swag.Float64(f)
		}
	}
	if s := v.GetString("max_tokens"); s != "" {
		if n, err := swag.ConvertInt64(s); err == nil {
			cfg.MaxTokens = swag.Int(int(n))
		}
	}
	return cfg
}
