package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reoring/jsongraph"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[read]
syntax = "relaxed"
max_depth = 12
duplicate_keys = "error"

[write]
syntax = "yaml"
meta = "short"
indent = "\t"

[aliases]
"example.com/shop.Order" = "Order"
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	ro, err := cfg.ReadOpt()
	if err != nil {
		t.Fatalf("ReadOpt() error: %v", err)
	}
	if ro.Syntax != jsongraph.SyntaxRelaxed || ro.MaxDepth != 12 {
		t.Errorf("ReadOpt() = %+v", ro)
	}
	if ro.Strictness.OnDuplicateKey != jsongraph.SeverityError {
		t.Errorf("duplicate keys = %v, want error", ro.Strictness.OnDuplicateKey)
	}
	wo, err := cfg.WriteOpt()
	if err != nil {
		t.Fatalf("WriteOpt() error: %v", err)
	}
	if wo.Syntax != jsongraph.SyntaxYAML || wo.MetaStyle != jsongraph.MetaShort || wo.Indent != "\t" {
		t.Errorf("WriteOpt() = %+v", wo)
	}
	if got := wo.Aliases["example.com/shop.Order"]; got != "Order" {
		t.Errorf("alias = %q, want Order", got)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := loadConfig(""); err != nil {
		t.Errorf("missing default config should not fail: %v", err)
	}
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("missing explicit config should fail")
	}
}

func TestConfigInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"read syntax", Config{Read: ReadConfig{Syntax: "xml"}}},
		{"severity", Config{Read: ReadConfig{DuplicateKeys: "loud"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.ReadOpt(); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := (Config{Write: WriteConfig{Meta: "tiny"}}).WriteOpt(); err == nil {
		t.Error("expected error for meta style")
	}
}

func TestConfigTranslator(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `lang = "ja"`))
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	tr, err := cfg.Translator("")
	if err != nil {
		t.Fatalf("Translator() error: %v", err)
	}
	if got := tr.Message("coercion"); got != "値を宣言された型に変換できません" {
		t.Errorf("configured language ignored: %q", got)
	}
	tr, err = cfg.Translator("en")
	if err != nil || tr.Message("coercion") != "value does not fit its declared type" {
		t.Errorf("flag should override config: %v", err)
	}
}
