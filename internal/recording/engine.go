package recording

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/streamgate/internal/events"
	"github.com/smazurov/streamgate/internal/logging"
	"github.com/smazurov/streamgate/internal/metrics"
	"github.com/smazurov/streamgate/internal/provider"
	"github.com/smazurov/streamgate/internal/session"
)

// Launcher spawns a file-writing capture process.
type Launcher interface {
	LaunchRecording(ctx context.Context, channel, quality, path string) (session.Handle, error)
}

// EngineConfig holds the rule engine settings.
type EngineConfig struct {
	PollInterval time.Duration
	OutputDir    string
	// DefaultQuality is used when a rule does not name one.
	DefaultQuality string
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	if c.OutputDir == "" {
		c.OutputDir = "recordings"
	}
	if c.DefaultQuality == "" {
		c.DefaultQuality = "best"
	}
	return c
}

// active is one in-flight recording, owned by the rule that started it.
type active struct {
	ruleID   string
	recordID int64
	path     string
	handle   session.Handle
}

// Engine evaluates recording rules against live channel status and
// drives capture processes. At most one recording runs per channel; the
// rule that started it is the only one allowed to stop it.
type Engine struct {
	cfg      EngineConfig
	rules    RuleRepository
	ledger   Ledger
	prov     provider.Provider
	launcher Launcher
	bus      *events.Bus
	learner  Learner
	logger   *slog.Logger

	mu     sync.Mutex
	byChan map[string]*active

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Learner receives baseID/channel pairs observed while polling. The
// numeric address resolver implements it.
type Learner interface {
	Learn(baseID int64, key string)
}

// NewEngine creates a rule engine. learner may be nil.
func NewEngine(cfg EngineConfig, rules RuleRepository, ledger Ledger, prov provider.Provider, launcher Launcher, bus *events.Bus, learner Learner) *Engine {
	e := &Engine{
		cfg:      cfg.withDefaults(),
		rules:    rules,
		ledger:   ledger,
		prov:     prov,
		launcher: launcher,
		bus:      bus,
		learner:  learner,
		logger:   logging.GetLogger("recording"),
		byChan:   make(map[string]*active),
		stopCh:   make(chan struct{}),
	}
	return e
}

// Start launches the polling loop.
func (e *Engine) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(e.cfg.PollInterval)
		defer ticker.Stop()

		e.evaluate(context.Background())
		for {
			select {
			case <-e.stopCh:
				return
			case <-ticker.C:
				e.evaluate(context.Background())
			}
		}
	}()
}

// Shutdown stops the loop and all in-flight recordings, waiting for
// their exit bookkeeping to finish or ctx to expire.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.stopOnce.Do(func() { close(e.stopCh) })

	e.mu.Lock()
	for _, rec := range e.byChan {
		rec.handle.Stop()
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("recording engine shutdown: %w", ctx.Err())
	}
}

// Active returns the channels currently being recorded.
func (e *Engine) Active() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, 0, len(e.byChan))
	for ch := range e.byChan {
		out = append(out, ch)
	}
	return out
}

// evaluate runs one poll cycle over all enabled rules. Errors are logged
// per rule and never abort the cycle.
func (e *Engine) evaluate(ctx context.Context) {
	for _, rule := range e.rules.GetEnabledRules() {
		select {
		case <-e.stopCh:
			return
		default:
		}
		if err := e.evaluateRule(ctx, rule); err != nil {
			e.logger.Error("Rule evaluation failed", "rule", rule.ID, "channel", rule.Channel, "error", err)
		}
	}
}

func (e *Engine) evaluateRule(ctx context.Context, rule Rule) error {
	status, err := e.prov.ChannelStatus(ctx, rule.Channel)
	if err != nil {
		return fmt.Errorf("channel status: %w", err)
	}
	if e.learner != nil && status.BaseID != 0 {
		e.learner.Learn(status.BaseID, rule.Channel)
	}

	wants := status.Live && rule.Matches(status.Game)

	e.mu.Lock()
	current := e.byChan[rule.Channel]
	e.mu.Unlock()

	switch {
	case current == nil && wants:
		return e.startRecording(ctx, rule, status)
	case current != nil && !wants && current.ruleID == rule.ID:
		e.logger.Info("Stopping recording", "rule", rule.ID, "channel", rule.Channel,
			"live", status.Live, "game", status.Game)
		current.handle.Stop()
		return nil
	default:
		// Channel already covered by another rule, or nothing to do.
		return nil
	}
}

func (e *Engine) startRecording(ctx context.Context, rule Rule, status *provider.ChannelStatus) error {
	quality := rule.Quality
	if quality == "" {
		quality = e.cfg.DefaultQuality
	}
	path := e.outputPath(rule.Channel, status.Game)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	handle, err := e.launcher.LaunchRecording(ctx, rule.Channel, quality, path)
	if err != nil {
		return fmt.Errorf("launch capture: %w", err)
	}

	rec := &Record{
		Channel:   rule.Channel,
		RuleID:    rule.ID,
		Game:      status.Game,
		Title:     status.Title,
		Path:      path,
		Status:    StatusRecording,
		StartedAt: time.Now().UTC(),
	}
	if err := e.ledger.Insert(ctx, rec); err != nil {
		// The capture is running but unrecorded; stop it rather than
		// leak an untracked process.
		handle.Stop()
		return fmt.Errorf("persist record: %w", err)
	}

	entry := &active{ruleID: rule.ID, recordID: rec.ID, path: path, handle: handle}
	e.mu.Lock()
	if e.byChan[rule.Channel] != nil {
		// Lost the race to another rule between the unlocked check and
		// here. Keep the earlier recording.
		e.mu.Unlock()
		handle.Stop()
		if delErr := e.ledger.Finish(ctx, rec.ID, StatusFailed, 0, time.Now().UTC()); delErr != nil {
			e.logger.Error("Failed to mark duplicate record", "record", rec.ID, "error", delErr)
		}
		return nil
	}
	e.byChan[rule.Channel] = entry
	e.mu.Unlock()

	e.logger.Info("Recording started", "rule", rule.ID, "channel", rule.Channel,
		"game", status.Game, "path", path)
	metrics.RecordingsActive.Inc()
	e.bus.Publish(events.RecordingStartedEvent{
		Channel: rule.Channel, RuleID: rule.ID, Game: status.Game,
		Title: status.Title, Path: path, Timestamp: time.Now().Format(time.RFC3339),
	})

	e.wg.Add(1)
	go e.watch(rule.Channel, entry)
	return nil
}

// watch waits for the capture process to exit and finalizes the ledger
// record.
func (e *Engine) watch(channel string, entry *active) {
	defer e.wg.Done()

	<-entry.handle.Done()

	e.mu.Lock()
	if e.byChan[channel] == entry {
		delete(e.byChan, channel)
	}
	e.mu.Unlock()

	status := StatusCompleted
	if entry.handle.ExitCode() != 0 {
		status = StatusFailed
	}
	var size int64
	if info, err := os.Stat(entry.path); err == nil {
		size = info.Size()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.ledger.Finish(ctx, entry.recordID, status, size, time.Now().UTC()); err != nil {
		e.logger.Error("Failed to finalize record", "record", entry.recordID, "error", err)
	}

	e.logger.Info("Recording stopped", "channel", channel, "status", status, "size_bytes", size)
	metrics.RecordingsActive.Dec()
	metrics.RecordingsFinished.WithLabelValues(status).Inc()
	e.bus.Publish(events.RecordingStoppedEvent{
		Channel: channel, RuleID: entry.ruleID, Status: status,
		Path: entry.path, SizeBytes: size, Timestamp: time.Now().Format(time.RFC3339),
	})
}

// outputPath builds the capture file path: <dir>/<channel>/<channel>-<ts>[-<game>].ts
func (e *Engine) outputPath(channel, game string) string {
	stamp := time.Now().Format("20060102-150405")
	name := channel + "-" + stamp
	if slug := slugify(game); slug != "" {
		name += "-" + slug
	}
	return filepath.Join(e.cfg.OutputDir, channel, name+".ts")
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
