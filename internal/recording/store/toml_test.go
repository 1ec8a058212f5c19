package store

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
	return path
}

func TestTOMLRulesLoad(t *testing.T) {
	path := writeRules(t, `
version = 1

[[rules]]
id = "valorant-somechannel"
channel = "somechannel"
game = "valorant"
quality = "best"
enabled = true

[[rules]]
id = "everything-otherchannel"
channel = "otherchannel"
enabled = false
`)

	repo := NewTOMLRules(path)
	if err := repo.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	all := repo.GetAllRules()
	if len(all) != 2 {
		t.Fatalf("loaded %d rules, want 2", len(all))
	}
	if all[0].ID != "valorant-somechannel" || all[0].Game != "valorant" {
		t.Errorf("first rule = %+v", all[0])
	}

	enabled := repo.GetEnabledRules()
	if len(enabled) != 1 || enabled[0].ID != "valorant-somechannel" {
		t.Errorf("enabled rules = %+v, want only the valorant rule", enabled)
	}

	rule, ok := repo.GetRule("everything-otherchannel")
	if !ok || rule.Channel != "otherchannel" || rule.Game != "" {
		t.Errorf("GetRule = %+v, %v", rule, ok)
	}
}

func TestTOMLRulesMissingFileIsEmpty(t *testing.T) {
	repo := NewTOMLRules(filepath.Join(t.TempDir(), "absent.toml"))
	if err := repo.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if rules := repo.GetAllRules(); len(rules) != 0 {
		t.Errorf("rules = %+v, want none", rules)
	}
}

func TestTOMLRulesRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing channel", "[[rules]]\nid = \"r1\"\nenabled = true\n"},
		{"missing id", "[[rules]]\nchannel = \"somechannel\"\n"},
		{"duplicate id", "[[rules]]\nid = \"r1\"\nchannel = \"a\"\n\n[[rules]]\nid = \"r1\"\nchannel = \"b\"\n"},
		{"malformed toml", "[[rules]\nid ="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewTOMLRules(writeRules(t, tt.content))
			if err := repo.Load(); err == nil {
				t.Error("Load accepted an invalid file")
			}
		})
	}
}

func TestTOMLRulesReloadReplaces(t *testing.T) {
	path := writeRules(t, "[[rules]]\nid = \"r1\"\nchannel = \"a\"\nenabled = true\n")
	repo := NewTOMLRules(path)
	if err := repo.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := os.WriteFile(path, []byte("[[rules]]\nid = \"r2\"\nchannel = \"b\"\nenabled = true\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := repo.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if _, ok := repo.GetRule("r1"); ok {
		t.Error("stale rule survived reload")
	}
	if _, ok := repo.GetRule("r2"); !ok {
		t.Error("new rule missing after reload")
	}
}
