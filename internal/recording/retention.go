package recording

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/smazurov/streamgate/internal/logging"
	"github.com/smazurov/streamgate/internal/metrics"
)

// RetentionConfig holds the retention sweep settings.
type RetentionConfig struct {
	// MaxAge is how long finished recordings are kept. Zero disables
	// the sweep entirely.
	MaxAge time.Duration

	// Interval between sweeps.
	Interval time.Duration

	// Dir is the recordings output directory, scanned for files the
	// ledger no longer references.
	Dir string
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	return c
}

// Retention deletes old recordings: first ledger records (with their
// files) past the retention age, then unreferenced files in the output
// directory older than the same cutoff. File modification time is the
// age signal for unreferenced files, so in-progress writes survive.
type Retention struct {
	cfg    RetentionConfig
	ledger Ledger
	logger *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRetention creates a retention sweeper.
func NewRetention(cfg RetentionConfig, ledger Ledger) *Retention {
	return &Retention{
		cfg:    cfg.withDefaults(),
		ledger: ledger,
		logger: logging.GetLogger("retention"),
		stopCh: make(chan struct{}),
	}
}

// Start launches the periodic sweep. No-op when MaxAge is zero.
func (r *Retention) Start() {
	if r.cfg.MaxAge <= 0 {
		r.logger.Info("Retention sweep disabled")
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.SweepOnce(context.Background(), time.Now())
			}
		}
	}()
}

// Stop halts the sweep loop.
func (r *Retention) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

// SweepOnce runs one sweep against the given current time and returns
// the number of deletions. Individual failures are logged and the sweep
// moves on to the remaining entries.
func (r *Retention) SweepOnce(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-r.cfg.MaxAge)
	deleted := 0

	old, err := r.ledger.OlderThan(ctx, cutoff)
	if err != nil {
		r.logger.Error("Retention ledger query failed", "error", err)
	}
	for _, rec := range old {
		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			r.logger.Error("Failed to delete recording file", "path", rec.Path, "error", err)
			continue
		}
		if _, err := r.ledger.Delete(ctx, rec.ID); err != nil {
			r.logger.Error("Failed to delete ledger record", "record", rec.ID, "error", err)
			continue
		}
		deleted++
		metrics.RetentionDeletions.Inc()
	}

	deleted += r.sweepUnreferenced(ctx, cutoff)
	if deleted > 0 {
		r.logger.Info("Retention sweep finished", "deleted", deleted)
	}
	return deleted
}

// sweepUnreferenced removes files under Dir that no ledger record points
// at and whose mtime is older than cutoff.
func (r *Retention) sweepUnreferenced(ctx context.Context, cutoff time.Time) int {
	if r.cfg.Dir == "" {
		return 0
	}
	records, err := r.ledger.List(ctx)
	if err != nil {
		r.logger.Error("Retention ledger list failed", "error", err)
		return 0
	}
	referenced := make(map[string]bool, len(records))
	for _, rec := range records {
		referenced[filepath.Clean(rec.Path)] = true
	}

	deleted := 0
	walkErr := filepath.WalkDir(r.cfg.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			r.logger.Error("Retention walk error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || referenced[filepath.Clean(path)] {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			r.logger.Error("Failed to delete unreferenced file", "path", path, "error", err)
			return nil
		}
		deleted++
		metrics.RetentionDeletions.Inc()
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		r.logger.Error("Retention walk failed", "dir", r.cfg.Dir, "error", walkErr)
	}
	return deleted
}
