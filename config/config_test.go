package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cc98-notifier/pkg/forum"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CC98_USERNAME", "user")
	t.Setenv("CC98_PASSWORD", "pass")
	t.Setenv("DINGTALK_SEND_URL", "https://oapi.dingtalk.com/robot/send?access_token=abc")
	t.Setenv("DINGTALK_SIGNATURE", "SEC000")
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("RULES_FILE", "")
	t.Setenv("STATUS_ADDR", "")
	t.Setenv("DEBUG", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Interval != 2*time.Minute {
		t.Errorf("Interval = %v, want 2m default", cfg.Interval)
	}
	if cfg.Debug {
		t.Error("Debug = true, want false by default")
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].BoardID != 459 {
		t.Errorf("Rules = %+v, want default board 459 rule", cfg.Rules)
	}
	if !cfg.Rules.Match(forum.Topic{BoardID: 459, Title: "急招前端开发"}) {
		t.Error("default rules should match 前端 posting on board 459")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CC98_PASSWORD", "")
	t.Setenv("DINGTALK_SIGNATURE", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing env")
	}
	if !strings.Contains(err.Error(), "CC98_PASSWORD") || !strings.Contains(err.Error(), "DINGTALK_SIGNATURE") {
		t.Errorf("Load() error = %v, want all missing names listed", err)
	}
}

func TestLoadInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_INTERVAL", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Interval != 45*time.Second {
		t.Errorf("Interval = %v, want 45s", cfg.Interval)
	}
}

func TestLoadInvalidInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_INTERVAL", "every two minutes")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for bad duration")
	}
}

func TestLoadRulesFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - board: 459
    keywords: ["前端", "web"]
  - board: 141
    keywords: ["golang"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	t.Setenv("RULES_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("len(Rules) = %d, want 2", len(cfg.Rules))
	}
	if cfg.Rules[1].BoardID != 141 || cfg.Rules[1].Keywords[0] != "golang" {
		t.Errorf("Rules[1] = %+v", cfg.Rules[1])
	}
}

func TestLoadRulesFileRejectsEmptyKeywords(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  - board: 459\n    keywords: []\n"), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	t.Setenv("RULES_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for rule without keywords")
	}
}

func TestLoadDebugValues(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"0", false},
		{"", false},
		{"no", false},
	}

	for _, tt := range tests {
		t.Run("DEBUG="+tt.value, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("DEBUG", tt.value)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Debug != tt.want {
				t.Errorf("Debug = %v, want %v", cfg.Debug, tt.want)
			}
		})
	}
}
