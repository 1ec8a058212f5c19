// Package store provides the persistence backends for the recording
// engine: a TOML file for operator-authored rules and a sqlite ledger
// for recording records.
package store

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/streamgate/internal/recording"
)

// rulesFile represents the complete rules file for TOML marshaling.
type rulesFile struct {
	Version int              `toml:"version" json:"version"`
	Rules   []recording.Rule `toml:"rules" json:"rules"`
}

// tomlRules implements recording.RuleRepository using TOML file storage.
// Rules are operator-authored, so the store is read-only; Load is called
// again when the file watcher reports a change.
type tomlRules struct {
	path string

	mu    sync.RWMutex
	rules map[string]recording.Rule
	order []string
}

// NewTOMLRules creates a rule repository backed by the given TOML file.
func NewTOMLRules(path string) recording.RuleRepository {
	if path == "" {
		path = "rules.toml"
	}
	return &tomlRules{
		path:  path,
		rules: make(map[string]recording.Rule),
	}
}

// Load reads and validates the rules file. A missing file is an empty
// rule set, not an error. Load replaces the previous rule set atomically
// so a half-parsed file never becomes visible.
func (s *tomlRules) Load() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		s.mu.Lock()
		s.rules = make(map[string]recording.Rule)
		s.order = nil
		s.mu.Unlock()
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read rules file: %w", err)
	}

	var file rulesFile
	if unmarshalErr := toml.Unmarshal(data, &file); unmarshalErr != nil {
		return fmt.Errorf("failed to parse rules file: %w", unmarshalErr)
	}

	rules := make(map[string]recording.Rule, len(file.Rules))
	order := make([]string, 0, len(file.Rules))
	for _, rule := range file.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("invalid rule: %w", err)
		}
		if _, dup := rules[rule.ID]; dup {
			return fmt.Errorf("duplicate rule id %q", rule.ID)
		}
		rules[rule.ID] = rule
		order = append(order, rule.ID)
	}

	s.mu.Lock()
	s.rules = rules
	s.order = order
	s.mu.Unlock()
	return nil
}

// GetAllRules returns all rules in file order.
func (s *tomlRules) GetAllRules() []recording.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]recording.Rule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rules[id])
	}
	return out
}

// GetRule retrieves a rule by ID.
func (s *tomlRules) GetRule(id string) (recording.Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	return rule, ok
}

// GetEnabledRules returns only enabled rules, sorted by ID for a stable
// evaluation order.
func (s *tomlRules) GetEnabledRules() []recording.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]recording.Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		if rule.Enabled {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
