package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/parliament/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PARLIAMENT_"

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, then validates it. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, types.NewErrorf(types.ErrInvalidConfig, "read config file %s", path).WithCause(err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, types.NewErrorf(types.ErrInvalidConfig, "parse config file %s", path).WithCause(err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides scalar settings from PARLIAMENT_* variables. The
// threshold schedule is file-only.
func applyEnv(cfg *Config) {
	if v, ok := lookupInt("MAX_ROUNDS"); ok {
		cfg.MaxRounds = v
	}
	if v, ok := lookupBool("EXECUTOR_PARALLEL"); ok {
		cfg.Executor.Parallel = v
	}
	if v, ok := lookupDuration("EXECUTOR_AGENT_DELAY"); ok {
		cfg.Executor.AgentDelay = v
	}
	if v, ok := lookupInt("EXECUTOR_KNOWLEDGE_LIMIT"); ok {
		cfg.Executor.KnowledgeLimit = v
	}
	if v, ok := lookupFloat("DEAD_END_CONFIDENCE_DECLINE"); ok {
		cfg.DeadEnd.ConfidenceDecline = v
	}
	if v, ok := lookupInt("DEAD_END_PERSISTENT_RISK_ROUNDS"); ok {
		cfg.DeadEnd.PersistentRiskRounds = v
	}
	if v, ok := lookupFloat("DEAD_END_HIGH_RISK_CUTOFF"); ok {
		cfg.DeadEnd.HighRiskCutoff = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func lookupInt(key string) (int, bool) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupFloat(key string) (float64, bool) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func lookupBool(key string) (bool, bool) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func lookupDuration(key string) (time.Duration, bool) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
