package recording

import (
	"context"
	"time"
)

// RuleRepository defines the interface for recording rule access
type RuleRepository interface {
	// Load loads the rules from storage
	Load() error

	// GetAllRules returns all rules in stable order
	GetAllRules() []Rule

	// GetRule retrieves a rule by ID
	GetRule(id string) (Rule, bool)

	// GetEnabledRules returns only enabled rules
	GetEnabledRules() []Rule
}

// Ledger defines the interface for recording record persistence
type Ledger interface {
	// Insert persists a new record and assigns its ID
	Insert(ctx context.Context, rec *Record) error

	// Finish marks a record as ended with final status and file size
	Finish(ctx context.Context, id int64, status string, sizeBytes int64, endedAt time.Time) error

	// Get retrieves one record by ID
	Get(ctx context.Context, id int64) (Record, bool, error)

	// List returns all records, newest first
	List(ctx context.Context) ([]Record, error)

	// OlderThan returns finished records that started before cutoff
	OlderThan(ctx context.Context, cutoff time.Time) ([]Record, error)

	// Delete removes a record and returns it for file cleanup
	Delete(ctx context.Context, id int64) (Record, error)

	// Close releases the underlying database
	Close() error
}
