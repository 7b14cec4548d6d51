// Package config loads Marcus's configuration surface (spec §6): a YAML
// defaults file, strictly rejecting unknown keys, overlaid with
// environment variables via struct tags.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type TaskLease struct {
	DefaultHours           float64 `yaml:"default_hours" env:"TASK_LEASE_DEFAULT_HOURS" envDefault:"2.0"`
	MinHours               float64 `yaml:"min_hours" env:"TASK_LEASE_MIN_HOURS" envDefault:"0.5"`
	MaxHours               float64 `yaml:"max_hours" env:"TASK_LEASE_MAX_HOURS" envDefault:"8.0"`
	WarningHours           float64 `yaml:"warning_hours" env:"TASK_LEASE_WARNING_HOURS" envDefault:"0.5"`
	GracePeriodMinutes     float64 `yaml:"grace_period_minutes" env:"TASK_LEASE_GRACE_PERIOD_MINUTES" envDefault:"30"`
	RenewalDecayFactor     float64 `yaml:"renewal_decay_factor" env:"TASK_LEASE_RENEWAL_DECAY_FACTOR" envDefault:"0.9"`
	StuckThresholdRenewals int     `yaml:"stuck_threshold_renewals" env:"TASK_LEASE_STUCK_THRESHOLD_RENEWALS" envDefault:"5"`
}

type BoardHealth struct {
	StaleTaskDays    int `yaml:"stale_task_days" env:"BOARD_HEALTH_STALE_TASK_DAYS" envDefault:"7"`
	MaxTasksPerAgent int `yaml:"max_tasks_per_agent" env:"BOARD_HEALTH_MAX_TASKS_PER_AGENT" envDefault:"3"`
}

type DependencyInference struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" env:"DEPENDENCY_INFERENCE_CONFIDENCE_THRESHOLD" envDefault:"0.7"`
	MaxChainLength      int     `yaml:"max_chain_length" env:"DEPENDENCY_INFERENCE_MAX_CHAIN_LENGTH" envDefault:"20"`
	PropagationFactor   float64 `yaml:"propagation_factor" env:"DEPENDENCY_PROPAGATION_FACTOR" envDefault:"0.8"`
}

type AI struct {
	Provider string `yaml:"provider" env:"AI_PROVIDER" envDefault:"anthropic"`
	Model    string `yaml:"model" env:"AI_MODEL" envDefault:"claude-sonnet-4-5"`
	Enabled  bool   `yaml:"enabled" env:"AI_ENABLED" envDefault:"false"`
}

type Config struct {
	MonitoringInterval   float64              `yaml:"monitoring_interval" env:"MONITORING_INTERVAL" envDefault:"60"`
	StallThresholdHours  float64              `yaml:"stall_threshold_hours" env:"STALL_THRESHOLD_HOURS" envDefault:"4"`
	TaskLease            TaskLease            `yaml:"task_lease"`
	BoardHealth          BoardHealth          `yaml:"board_health"`
	DependencyInference  DependencyInference  `yaml:"dependency_inference"`
	AI                   AI                   `yaml:"ai"`

	DatabaseURL    string `yaml:"-" env:"DATABASE_URL"`
	HTTPAddr       string `yaml:"http_addr" env:"HTTP_ADDR" envDefault:":8080"`
	ConversationLogDir string `yaml:"conversation_log_dir" env:"CONVERSATION_LOG_DIR" envDefault:"logs/conversations"`
	KVBackend      string `yaml:"kv_backend" env:"KV_BACKEND" envDefault:"memory"`
}

// Load reads defaults from path (if non-empty and present), strictly
// rejecting unknown YAML keys, then overlays environment variables.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
		} else {
			if err := decodeStrict(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{}); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	return cfg, nil
}

// decodeStrict unmarshals data into cfg and rejects any top-level or
// nested mapping key that doesn't correspond to a known yaml tag.
// yaml.v3's Decoder has no DisallowUnknownFields equivalent for a target
// that also carries `env` tags, so this does a manual key-set comparison
// against a throwaway decode into map[string]any (documented in DESIGN.md).
func decodeStrict(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	known := knownKeys(cfg)
	var knownTree map[string]any
	b, _ := yaml.Marshal(cfg)
	_ = yaml.Unmarshal(b, &knownTree)
	for k, v := range raw {
		if _, ok := known[k]; !ok {
			return fmt.Errorf("unknown configuration key %q", k)
		}
		sub, isMap := v.(map[string]any)
		knownSub, knownIsMap := knownTree[k].(map[string]any)
		if !isMap || !knownIsMap {
			continue
		}
		for sk := range sub {
			if _, ok := knownSub[sk]; !ok {
				return fmt.Errorf("unknown configuration key %q", k+"."+sk)
			}
		}
	}
	return nil
}

func knownKeys(cfg *Config) map[string]struct{} {
	keys := map[string]struct{}{}
	var node yaml.Node
	b, _ := yaml.Marshal(cfg)
	_ = yaml.Unmarshal(b, &node)
	if len(node.Content) == 0 {
		return keys
	}
	doc := node.Content[0]
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keys[doc.Content[i].Value] = struct{}{}
	}
	return keys
}
