// Package config loads Glitch City settings and the seed world.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/naveenspark/glitchcity/internal/orchestrator"
	"github.com/naveenspark/glitchcity/internal/scheduler"
	"github.com/naveenspark/glitchcity/internal/store"
	"github.com/naveenspark/glitchcity/internal/targeting"
	"github.com/naveenspark/glitchcity/pkg/domain"
	"github.com/naveenspark/glitchcity/pkg/generation"
)

//go:embed default.yaml
var defaultYAML []byte

// Config holds all settings.
type Config struct {
	Generation   GenerationConfig   `yaml:"generation"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Targeting    targeting.Tuning   `yaml:"targeting"`
	Scheduler    scheduler.Tuning   `yaml:"scheduler"`
	Polls        store.Tuning       `yaml:"polls"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	World        World              `yaml:"world"`
}

// GenerationConfig selects and tunes the model backend.
type GenerationConfig struct {
	Provider        generation.Provider `yaml:"provider"` // gemini, ollama, offline
	APIKey          string              `yaml:"api_key"`
	BaseURL         string              `yaml:"base_url"`
	Model           string              `yaml:"model"`
	Temperature     float32             `yaml:"temperature"`
	MaxOutputTokens int                 `yaml:"max_output_tokens"`
	Timeout         time.Duration       `yaml:"timeout"`
	RateLimit       float64             `yaml:"rate_limit"` // requests/sec, 0 = unlimited
	Burst           int                 `yaml:"burst"`
}

// OrchestratorConfig tunes reply production.
type OrchestratorConfig struct {
	HistoryWindow int           `yaml:"history_window"`
	MinTyping     time.Duration `yaml:"min_typing"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables
}

// World is the seed data loaded at startup.
type World struct {
	HumanID       string                   `yaml:"human_id"`
	ActiveServer  string                   `yaml:"active_server"`
	ActiveChannel string                   `yaml:"active_channel"`
	Users         []domain.User            `yaml:"users"`
	Servers       []domain.Server          `yaml:"servers"`
	Messages      map[string][]SeedMessage `yaml:"messages"`
}

// SeedMessage is a message stamped relative to startup.
type SeedMessage struct {
	domain.Message `yaml:",inline"`
	Ago            time.Duration `yaml:"ago"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded default.yaml: %v", err))
	}
	return &cfg
}

// Load layers the YAML file at path over Default and applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config.Load: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	for _, name := range []string{"GLITCHCITY_API_KEY", "GEMINI_API_KEY", "API_KEY"} {
		if key := os.Getenv(name); key != "" {
			c.Generation.APIKey = key
			break
		}
	}
	if p := os.Getenv("GLITCHCITY_PROVIDER"); p != "" {
		c.Generation.Provider = generation.Provider(strings.ToLower(p))
	}
	if m := os.Getenv("GLITCHCITY_MODEL"); m != "" {
		c.Generation.Model = m
	}
	if lvl := os.Getenv("GLITCHCITY_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

// Validate checks the configuration and seed world for consistency.
func (c *Config) Validate() error {
	var errs []error
	switch c.Generation.Provider {
	case generation.ProviderGemini, generation.ProviderOllama, generation.ProviderOffline:
	default:
		errs = append(errs, fmt.Errorf("generation.provider %q: want gemini, ollama or offline", c.Generation.Provider))
	}
	if c.Orchestrator.HistoryWindow <= 0 {
		errs = append(errs, errors.New("orchestrator.history_window must be positive"))
	}
	if c.Orchestrator.MinTyping < 0 || c.Generation.Timeout < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if c.Targeting.ContinuityWindow <= 0 {
		errs = append(errs, errors.New("targeting.continuity_window must be positive"))
	}
	for name, p := range map[string]float64{
		"targeting.continuity_chance": c.Targeting.ContinuityChance,
		"targeting.greeting_chance":   c.Targeting.GreetingChance,
		"targeting.ambient_chance":    c.Targeting.AmbientChance,
		"polls.bootstrap_chance":      c.Polls.BootstrapChance,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("%s = %v: must be within [0,1]", name, p))
		}
	}
	if c.Scheduler.Base < 0 || c.Scheduler.Spacing < 0 || c.Scheduler.Jitter < 0 {
		errs = append(errs, errors.New("scheduler delays must not be negative"))
	}
	if err := c.World.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (w World) validate() error {
	var errs []error
	users := make(map[string]bool)
	for _, u := range w.Users {
		if u.ID == "" || users[u.ID] {
			errs = append(errs, fmt.Errorf("world.users: empty or duplicate id %q", u.ID))
		}
		users[u.ID] = true
		if !domain.ValidStatus(u.Status) {
			errs = append(errs, fmt.Errorf("world.users[%s]: invalid status %q", u.ID, u.Status))
		}
	}
	if !users[w.HumanID] {
		errs = append(errs, fmt.Errorf("world.human_id %q is not a user", w.HumanID))
	}

	channels := make(map[string]bool)
	for _, s := range w.Servers {
		for _, ch := range s.Channels {
			if ch.ID == "" || channels[ch.ID] {
				errs = append(errs, fmt.Errorf("world.servers[%s]: empty or duplicate channel id %q", s.ID, ch.ID))
			}
			channels[ch.ID] = true
			if !domain.ValidChannelType(ch.Type) {
				errs = append(errs, fmt.Errorf("world.channels[%s]: invalid type %q", ch.ID, ch.Type))
			}
		}
	}

	msgIDs := make(map[string]bool)
	for chID, msgs := range w.Messages {
		if !channels[chID] {
			errs = append(errs, fmt.Errorf("world.messages: unknown channel %q", chID))
		}
		for _, m := range msgs {
			if m.ID == "" || msgIDs[m.ID] {
				errs = append(errs, fmt.Errorf("world.messages[%s]: empty or duplicate id %q", chID, m.ID))
			}
			msgIDs[m.ID] = true
			if !users[m.UserID] && m.UserID != domain.SystemUserID {
				errs = append(errs, fmt.Errorf("world.messages[%s]: unknown author %q", m.ID, m.UserID))
			}
		}
	}
	return errors.Join(errs...)
}

// Seed converts the world into store seed data, stamping messages
// relative to now.
func (w World) Seed(now time.Time) store.Seed {
	seed := store.Seed{
		HumanID:  w.HumanID,
		Users:    w.Users,
		Servers:  w.Servers,
		Messages: make(map[string][]domain.Message, len(w.Messages)),
	}
	for chID, msgs := range w.Messages {
		out := make([]domain.Message, len(msgs))
		for i, m := range msgs {
			out[i] = m.Message
			out[i].Timestamp = now.Add(-m.Ago)
		}
		seed.Messages[chID] = out
	}
	return seed
}

// model is the configured model, else the provider's default.
func (c *Config) model() string {
	if c.Generation.Model != "" {
		return c.Generation.Model
	}
	return generation.DefaultModel(c.Generation.Provider)
}

// GenerationOptions returns the backend options.
func (c *Config) GenerationOptions() generation.Options {
	return generation.Options{
		Provider:  c.Generation.Provider,
		APIKey:    c.Generation.APIKey,
		BaseURL:   c.Generation.BaseURL,
		Model:     c.model(),
		RateLimit: c.Generation.RateLimit,
		Burst:     c.Generation.Burst,
	}
}

// OrchestratorSettings returns the orchestrator config.
func (c *Config) OrchestratorSettings() orchestrator.Config {
	return orchestrator.Config{
		HistoryWindow: c.Orchestrator.HistoryWindow,
		MinTyping:     c.Orchestrator.MinTyping,
		Timeout:       c.Generation.Timeout,
		Params: generation.Params{
			Model:           c.model(),
			Temperature:     c.Generation.Temperature,
			MaxOutputTokens: c.Generation.MaxOutputTokens,
		},
	}
}
