package recording

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/streamgate/internal/events"
	"github.com/smazurov/streamgate/internal/provider"
	"github.com/smazurov/streamgate/internal/session"
)

type fakeProvider struct {
	mu     sync.Mutex
	status map[string]provider.ChannelStatus
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{status: make(map[string]provider.ChannelStatus)}
}

func (p *fakeProvider) set(channel string, live bool, game string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status[channel] = provider.ChannelStatus{Channel: channel, Live: live, Game: game, BaseID: 12345}
}

func (p *fakeProvider) ChannelStatus(_ context.Context, channel string) (*provider.ChannelStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.status[channel]
	if !ok {
		s = provider.ChannelStatus{Channel: channel}
	}
	return &s, nil
}

type fakeCaptureHandle struct {
	done     chan struct{}
	exitCode int
	stopOnce sync.Once
	stops    int
}

func (h *fakeCaptureHandle) Done() <-chan struct{} { return h.done }
func (h *fakeCaptureHandle) ExitCode() int         { return h.exitCode }
func (h *fakeCaptureHandle) Stop() {
	h.stopOnce.Do(func() {
		h.stops++
		close(h.done)
	})
}

type fakeCaptureLauncher struct {
	mu      sync.Mutex
	spawns  int
	handles []*fakeCaptureHandle
}

func (l *fakeCaptureLauncher) LaunchRecording(_ context.Context, _, _, _ string) (session.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spawns++
	h := &fakeCaptureHandle{done: make(chan struct{})}
	l.handles = append(l.handles, h)
	return h, nil
}

func (l *fakeCaptureLauncher) spawnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spawns
}

func (l *fakeCaptureLauncher) lastHandle() *fakeCaptureHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.handles) == 0 {
		return nil
	}
	return l.handles[len(l.handles)-1]
}

type staticRules struct{ rules []Rule }

func (s staticRules) Load() error           { return nil }
func (s staticRules) GetAllRules() []Rule   { return s.rules }
func (s staticRules) GetRule(id string) (Rule, bool) {
	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}
func (s staticRules) GetEnabledRules() []Rule {
	var out []Rule
	for _, r := range s.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

type memLedger struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]Record
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[int64]Record)}
}

func (l *memLedger) Insert(_ context.Context, rec *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	rec.ID = l.nextID
	l.records[rec.ID] = *rec
	return nil
}

func (l *memLedger) Finish(_ context.Context, id int64, status string, size int64, endedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.records[id]
	rec.Status = status
	rec.SizeBytes = size
	rec.EndedAt = endedAt
	l.records[id] = rec
	return nil
}

func (l *memLedger) Get(_ context.Context, id int64) (Record, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	return rec, ok, nil
}

func (l *memLedger) List(_ context.Context) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	return out, nil
}

func (l *memLedger) OlderThan(_ context.Context, cutoff time.Time) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for _, rec := range l.records {
		if rec.Status != StatusRecording && rec.StartedAt.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (l *memLedger) Delete(_ context.Context, id int64) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.records[id]
	delete(l.records, id)
	return rec, nil
}

func (l *memLedger) Close() error { return nil }

func newTestEngine(t *testing.T, rules []Rule, prov provider.Provider, launcher Launcher, ledger Ledger) *Engine {
	t.Helper()
	cfg := EngineConfig{PollInterval: time.Hour, OutputDir: filepath.Join(t.TempDir(), "rec")}
	return NewEngine(cfg, staticRules{rules: rules}, ledger, prov, launcher, events.New(), nil)
}

func TestEngineStartsOnGameMatch(t *testing.T) {
	prov := newFakeProvider()
	prov.set("somechannel", true, "VALORANT")
	launcher := &fakeCaptureLauncher{}
	ledger := newMemLedger()
	e := newTestEngine(t, []Rule{
		{ID: "r1", Channel: "somechannel", Game: "valorant", Enabled: true},
	}, prov, launcher, ledger)

	e.evaluate(context.Background())

	if launcher.spawnCount() != 1 {
		t.Fatalf("spawns = %d, want 1", launcher.spawnCount())
	}
	if got := e.Active(); len(got) != 1 || got[0] != "somechannel" {
		t.Errorf("active = %v, want [somechannel]", got)
	}
	recs, _ := ledger.List(context.Background())
	if len(recs) != 1 || recs[0].Status != StatusRecording || recs[0].RuleID != "r1" {
		t.Errorf("ledger = %+v, want one in-progress record owned by r1", recs)
	}

	// Same conditions on the next poll: still one recording, no respawn.
	e.evaluate(context.Background())
	if launcher.spawnCount() != 1 {
		t.Errorf("spawns after second poll = %d, want 1", launcher.spawnCount())
	}
}

func TestEngineStopsWhenGameChanges(t *testing.T) {
	prov := newFakeProvider()
	prov.set("somechannel", true, "VALORANT")
	launcher := &fakeCaptureLauncher{}
	ledger := newMemLedger()
	e := newTestEngine(t, []Rule{
		{ID: "r1", Channel: "somechannel", Game: "valorant", Enabled: true},
	}, prov, launcher, ledger)

	e.evaluate(context.Background())
	if len(e.Active()) != 1 {
		t.Fatal("recording did not start")
	}

	prov.set("somechannel", true, "Minecraft")
	e.evaluate(context.Background())

	if h := launcher.lastHandle(); h.stops != 1 {
		t.Errorf("stop signals = %d, want 1", h.stops)
	}
	waitForIdle(t, e)
	waitForLedgerStatus(t, ledger, StatusCompleted)
}

func TestEngineStopsWhenChannelGoesOffline(t *testing.T) {
	prov := newFakeProvider()
	prov.set("somechannel", true, "VALORANT")
	launcher := &fakeCaptureLauncher{}
	e := newTestEngine(t, []Rule{
		{ID: "r1", Channel: "somechannel", Game: "valorant", Enabled: true},
	}, prov, launcher, newMemLedger())

	e.evaluate(context.Background())
	prov.set("somechannel", false, "")
	e.evaluate(context.Background())

	if h := launcher.lastHandle(); h.stops != 1 {
		t.Errorf("stop signals = %d, want 1", h.stops)
	}
	waitForIdle(t, e)
}

func TestEngineNonOwningRuleCannotStop(t *testing.T) {
	prov := newFakeProvider()
	prov.set("somechannel", true, "VALORANT")
	launcher := &fakeCaptureLauncher{}
	e := newTestEngine(t, []Rule{
		{ID: "r1", Channel: "somechannel", Game: "valorant", Enabled: true},
		{ID: "r2", Channel: "somechannel", Game: "minecraft", Enabled: true},
	}, prov, launcher, newMemLedger())

	// r1 starts; r2 does not match but must not touch r1's recording.
	e.evaluate(context.Background())
	if launcher.spawnCount() != 1 {
		t.Fatalf("spawns = %d, want 1", launcher.spawnCount())
	}
	if h := launcher.lastHandle(); h.stops != 0 {
		t.Errorf("non-owning rule issued a stop")
	}

	// Game flips to minecraft: r1 (owner) stops its recording, then r2
	// starts its own on the next poll.
	prov.set("somechannel", true, "Minecraft")
	e.evaluate(context.Background())
	waitForIdle(t, e)

	e.evaluate(context.Background())
	if launcher.spawnCount() != 2 {
		t.Errorf("spawns = %d, want 2 (r2 takes over)", launcher.spawnCount())
	}
}

func TestEngineFailedCaptureMarkedFailed(t *testing.T) {
	prov := newFakeProvider()
	prov.set("somechannel", true, "VALORANT")
	launcher := &fakeCaptureLauncher{}
	ledger := newMemLedger()
	e := newTestEngine(t, []Rule{
		{ID: "r1", Channel: "somechannel", Game: "valorant", Enabled: true},
	}, prov, launcher, ledger)

	e.evaluate(context.Background())
	h := launcher.lastHandle()
	h.exitCode = 1
	close(h.done)
	waitForIdle(t, e)
	waitForLedgerStatus(t, ledger, StatusFailed)
}

func TestEngineEventsCarryTimestamps(t *testing.T) {
	prov := newFakeProvider()
	prov.set("somechannel", true, "VALORANT")
	launcher := &fakeCaptureLauncher{}
	ledger := newMemLedger()
	bus := events.New()
	cfg := EngineConfig{PollInterval: time.Hour, OutputDir: filepath.Join(t.TempDir(), "rec")}
	e := NewEngine(cfg, staticRules{rules: []Rule{
		{ID: "r1", Channel: "somechannel", Game: "valorant", Enabled: true},
	}}, ledger, prov, launcher, bus, nil)

	started := make(chan events.RecordingStartedEvent, 1)
	stopped := make(chan events.RecordingStoppedEvent, 1)
	defer bus.Subscribe(func(ev events.RecordingStartedEvent) { started <- ev })()
	defer bus.Subscribe(func(ev events.RecordingStoppedEvent) { stopped <- ev })()

	e.evaluate(context.Background())
	select {
	case ev := <-started:
		if _, err := time.Parse(time.RFC3339, ev.Timestamp); err != nil {
			t.Errorf("started timestamp %q is not RFC3339: %v", ev.Timestamp, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no recording started event")
	}

	launcher.lastHandle().Stop()
	select {
	case ev := <-stopped:
		if _, err := time.Parse(time.RFC3339, ev.Timestamp); err != nil {
			t.Errorf("stopped timestamp %q is not RFC3339: %v", ev.Timestamp, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no recording stopped event")
	}
}

func TestEngineShutdownStopsRecordings(t *testing.T) {
	prov := newFakeProvider()
	prov.set("somechannel", true, "VALORANT")
	launcher := &fakeCaptureLauncher{}
	e := newTestEngine(t, []Rule{
		{ID: "r1", Channel: "somechannel", Game: "*", Enabled: true},
	}, prov, launcher, newMemLedger())

	e.evaluate(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if len(e.Active()) != 0 {
		t.Error("recordings remain after shutdown")
	}
}

func waitForLedgerStatus(t *testing.T, ledger *memLedger, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		recs, _ := ledger.List(context.Background())
		if len(recs) == 1 && recs[0].Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	recs, _ := ledger.List(context.Background())
	t.Fatalf("ledger = %+v, want one %s record", recs, want)
}

func waitForIdle(t *testing.T, e *Engine) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(e.Active()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("recording still active")
}
