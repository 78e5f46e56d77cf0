// Package config loads the notifier configuration from the environment and
// the optional rules file. Everything is read once at startup; there is no
// runtime reload.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cc98-notifier/rule"

	"gopkg.in/yaml.v3"
)

// DefaultInterval is the pause between poll cycles.
const DefaultInterval = 2 * time.Minute

// Config is the full startup configuration.
type Config struct {
	Username      string
	Password      string
	WebhookURL    string
	WebhookSecret string
	StatusAddr    string
	Rules         rule.Set
	Interval      time.Duration
	Debug         bool
}

// Load reads configuration from the environment. Missing required values
// are a startup error; the caller treats that as fatal.
//
// Required: CC98_USERNAME, CC98_PASSWORD, DINGTALK_SEND_URL,
// DINGTALK_SIGNATURE. Optional: POLL_INTERVAL (Go duration), RULES_FILE
// (YAML), STATUS_ADDR (empty disables the status server), DEBUG.
func Load() (*Config, error) {
	cfg := &Config{
		Username:      os.Getenv("CC98_USERNAME"),
		Password:      os.Getenv("CC98_PASSWORD"),
		WebhookURL:    os.Getenv("DINGTALK_SEND_URL"),
		WebhookSecret: os.Getenv("DINGTALK_SIGNATURE"),
		StatusAddr:    os.Getenv("STATUS_ADDR"),
		Interval:      DefaultInterval,
		Debug:         isTruthy(os.Getenv("DEBUG")),
	}

	var missing []string
	if cfg.Username == "" {
		missing = append(missing, "CC98_USERNAME")
	}
	if cfg.Password == "" {
		missing = append(missing, "CC98_PASSWORD")
	}
	if cfg.WebhookURL == "" {
		missing = append(missing, "DINGTALK_SEND_URL")
	}
	if cfg.WebhookSecret == "" {
		missing = append(missing, "DINGTALK_SIGNATURE")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if raw := os.Getenv("POLL_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse POLL_INTERVAL: %w", err)
		}
		if interval <= 0 {
			return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", interval)
		}
		cfg.Interval = interval
	}

	if path := os.Getenv("RULES_FILE"); path != "" {
		rules, err := loadRules(path)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	} else {
		cfg.Rules = DefaultRules()
	}

	return cfg, nil
}

type rulesFile struct {
	Rules []rule.Rule `yaml:"rules"`
}

func loadRules(path string) (rule.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var parsed rulesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if len(parsed.Rules) == 0 {
		return nil, errors.New("rules file contains no rules")
	}
	for i, r := range parsed.Rules {
		if r.BoardID == 0 {
			return nil, fmt.Errorf("rules file: rule %d has no board id", i)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("rules file: rule %d (board %d) has no keywords", i, r.BoardID)
		}
	}

	return rule.Set(parsed.Rules), nil
}

// DefaultRules watches the 实习兼职 (internships and part-time jobs) board
// for software development postings.
func DefaultRules() rule.Set {
	return rule.Set{
		{
			BoardID: 459,
			Keywords: []string{
				"前端", "网页", "网站", "后端", "服务器", "开发", "程序",
				"fullstack", "frontend", "backend", "web",
				"js", "javascript", "typescript",
				"react", "vue", "angular", "node", "html",
			},
		},
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
