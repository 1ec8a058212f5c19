// Package recording implements the automatic recording rule engine: a
// polling loop that starts and stops file-writing captures based on
// channel live status and game filters, plus the retention sweep that
// ages out old recordings.
package recording

import (
	"fmt"
	"strings"
)

// Rule describes one automatic recording trigger. Rules are authored in
// the rules TOML file and hot-reloaded while the daemon runs.
type Rule struct {
	ID      string `toml:"id" json:"id"`
	Channel string `toml:"channel" json:"channel"`
	Game    string `toml:"game,omitempty" json:"game,omitempty"`
	Quality string `toml:"quality,omitempty" json:"quality,omitempty"`
	Enabled bool   `toml:"enabled" json:"enabled"`
}

// Matches reports whether the rule's game filter accepts the given game.
// An empty filter or "*" matches anything; otherwise the comparison is a
// case-insensitive substring test in either direction, so the filter
// "valorant" matches "VALORANT" and "Grand Theft Auto V" matches "gta v"
// authored as "Grand Theft Auto".
func (r Rule) Matches(game string) bool {
	if r.Game == "" || r.Game == "*" {
		return true
	}
	if game == "" {
		return false
	}
	filter := strings.ToLower(r.Game)
	current := strings.ToLower(game)
	return strings.Contains(current, filter) || strings.Contains(filter, current)
}

// Validate checks the rule for structural problems.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule has no id")
	}
	if r.Channel == "" {
		return fmt.Errorf("rule %q has no channel", r.ID)
	}
	return nil
}
