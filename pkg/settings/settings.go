package settings

// Package settings holds the user configuration for the relay: per-provider
// API keys and the selected model. Values live in the persistent store and
// can be overridden through the environment.

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/go-go-golems/sidechat/pkg/claude/api"
	"github.com/go-go-golems/sidechat/pkg/store"
)

// ErrConfiguration marks missing or invalid user configuration; the UI
// boundary surfaces it by prompting re-entry of settings.
var ErrConfiguration = errors.New("configuration error")

const (
	keyClaudeAPIKey = "claudeApiKey"
	keyGPTAPIKey    = "gptApiKey"
	keyModel        = "model"

	envPrefix = "SIDECHAT"
)

type Settings struct {
	ClaudeAPIKey string `json:"claudeApiKey"`
	GPTAPIKey    string `json:"gptApiKey"`
	Model        string `json:"model"`
}

// Load reads settings from the store, applies environment overrides
// (SIDECHAT_CLAUDE_API_KEY, SIDECHAT_GPT_API_KEY, SIDECHAT_MODEL) and fills
// in the default model.
func Load(s store.Store) (*Settings, error) {
	ret := &Settings{}

	for key, dst := range map[string]*string{
		keyClaudeAPIKey: &ret.ClaudeAPIKey,
		keyGPTAPIKey:    &ret.GPTAPIKey,
		keyModel:        &ret.Model,
	} {
		err := s.Get(key, dst)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrapf(err, "load setting %s", key)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if key := v.GetString("claude_api_key"); key != "" {
		ret.ClaudeAPIKey = key
	}
	if key := v.GetString("gpt_api_key"); key != "" {
		ret.GPTAPIKey = key
	}
	if model := v.GetString("model"); model != "" {
		ret.Model = model
	}

	if ret.Model == "" {
		ret.Model = api.DefaultModel
	}

	return ret, nil
}

// Save persists the settings to the store.
func (c *Settings) Save(s store.Store) error {
	for key, value := range map[string]string{
		keyClaudeAPIKey: c.ClaudeAPIKey,
		keyGPTAPIKey:    c.GPTAPIKey,
		keyModel:        c.Model,
	} {
		if value == "" {
			continue
		}
		if err := s.Set(key, value); err != nil {
			return errors.Wrapf(err, "save setting %s", key)
		}
	}
	return nil
}

// APIKey returns the key required by the selected model, or ErrConfiguration
// when that key is missing.
func (c *Settings) APIKey() (string, error) {
	key := c.ClaudeAPIKey
	if strings.Contains(c.Model, "gpt") {
		key = c.GPTAPIKey
	}
	if key == "" {
		return "", errors.Wrap(ErrConfiguration, "required API key not found")
	}
	return key, nil
}
