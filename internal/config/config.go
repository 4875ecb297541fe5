package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Secrets (API keys, Telegram
// credentials) never live here; they come from the environment.
type Config struct {
	Server struct {
		Host            string `yaml:"host" default:"0.0.0.0"`
		Port            int    `yaml:"port" default:"10000" validate:"gt=0,lte=65535"`
		ReadTimeoutSec  int    `yaml:"read_timeout_sec" default:"10" validate:"gt=0"`
		WriteTimeoutSec int    `yaml:"write_timeout_sec" default:"60" validate:"gt=0"`
		ShutdownSec     int    `yaml:"shutdown_sec" default:"10" validate:"gt=0"`
	} `yaml:"server"`

	Dedup struct {
		Backend       string `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		MinGapSeconds int    `yaml:"min_gap_seconds" default:"5" validate:"gte=0"`
		BarTTLHours   int    `yaml:"bar_ttl_hours" default:"24" validate:"gt=0"`
		Redis         struct {
			Addr   string `yaml:"addr" default:"localhost:6379"`
			DB     int    `yaml:"db" default:"0"`
			Prefix string `yaml:"prefix" default:"consensus"`
		} `yaml:"redis"`
	} `yaml:"dedup"`

	Advisory struct {
		// Sources are consulted concurrently; order only breaks ties in
		// chosen-opinion selection.
		Sources             []string `yaml:"sources" validate:"min=1,dive,oneof=xai openai noop"`
		TimeoutSeconds      int      `yaml:"timeout_seconds" default:"20" validate:"gt=0"`
		BudgetSeconds       int      `yaml:"budget_seconds" default:"30" validate:"gt=0"`
		MaxBatchesPerMinute int      `yaml:"max_batches_per_minute" default:"12" validate:"gt=0"`
		XAI                 struct {
			Model       string  `yaml:"model" default:"grok-4-0709"`
			Temperature float64 `yaml:"temperature" default:"0.2"`
		} `yaml:"xai"`
		OpenAI struct {
			Model       string  `yaml:"model" default:"gpt-4o-mini"`
			Temperature float64 `yaml:"temperature" default:"0.2"`
		} `yaml:"openai"`
	} `yaml:"advisory"`

	Safety struct {
		RSIMin            float64 `yaml:"rsi_min" default:"35" validate:"gte=0,lte=100"`
		RSIMax            float64 `yaml:"rsi_max" default:"75" validate:"gte=0,lte=100"`
		MomentumFloor     float64 `yaml:"momentum_floor" default:"-3.0"`
		MaxReversalPoints float64 `yaml:"max_reversal_points" default:"30" validate:"gt=0"`
		MinRiskReward     float64 `yaml:"min_risk_reward" default:"1.5" validate:"gt=0"`
	} `yaml:"safety"`

	News struct {
		Enabled        bool `yaml:"enabled" default:"false"`
		MaxHeadlines   int  `yaml:"max_headlines" default:"5" validate:"gt=0"`
		CacheMinutes   int  `yaml:"cache_minutes" default:"30" validate:"gt=0"`
		TimeoutSeconds int  `yaml:"timeout_seconds" default:"10" validate:"gt=0"`
	} `yaml:"news"`

	Telegram struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"telegram"`

	VerdictLog struct {
		Dir           string `yaml:"dir" default:"logs"`
		RetentionDays int    `yaml:"retention_days" default:"30" validate:"gte=0"`
	} `yaml:"verdict_log"`
}

var validate = validator.New()

// Load reads, defaults and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// Validate checks struct tags plus the cross-field rules tags can't express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Safety.RSIMin >= c.Safety.RSIMax {
		return fmt.Errorf("safety.rsi_min (%.1f) must be below safety.rsi_max (%.1f)",
			c.Safety.RSIMin, c.Safety.RSIMax)
	}
	if c.Advisory.TimeoutSeconds > c.Advisory.BudgetSeconds {
		return fmt.Errorf("advisory.timeout_seconds (%d) exceeds advisory.budget_seconds (%d)",
			c.Advisory.TimeoutSeconds, c.Advisory.BudgetSeconds)
	}
	return nil
}
