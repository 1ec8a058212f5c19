package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/streamgate/internal/address"
	"github.com/smazurov/streamgate/internal/events"
	"github.com/smazurov/streamgate/internal/ports"
	"github.com/smazurov/streamgate/internal/recording"
	"github.com/smazurov/streamgate/internal/session"
)

type stubHandle struct {
	done     chan struct{}
	stopOnce sync.Once
}

func (h *stubHandle) Done() <-chan struct{} { return h.done }
func (h *stubHandle) ExitCode() int         { return 0 }
func (h *stubHandle) Stop()                 { h.stopOnce.Do(func() { close(h.done) }) }

type stubLauncher struct{}

func (stubLauncher) Launch(_ context.Context, _ session.LaunchSpec) (session.Handle, error) {
	return &stubHandle{done: make(chan struct{})}, nil
}

type stubLedger struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]recording.Record
}

func newStubLedger() *stubLedger {
	return &stubLedger{records: make(map[int64]recording.Record)}
}

func (l *stubLedger) Insert(_ context.Context, rec *recording.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	rec.ID = l.nextID
	l.records[rec.ID] = *rec
	return nil
}

func (l *stubLedger) Finish(_ context.Context, id int64, status string, size int64, endedAt time.Time) error {
	return nil
}

func (l *stubLedger) Get(_ context.Context, id int64) (recording.Record, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	return rec, ok, nil
}

func (l *stubLedger) List(_ context.Context) ([]recording.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]recording.Record, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	return out, nil
}

func (l *stubLedger) OlderThan(_ context.Context, _ time.Time) ([]recording.Record, error) {
	return nil, nil
}

func (l *stubLedger) Delete(_ context.Context, id int64) (recording.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	if !ok {
		return recording.Record{}, fmt.Errorf("no such record")
	}
	delete(l.records, id)
	return rec, nil
}

func (l *stubLedger) Close() error { return nil }

type stubRules struct{ rules []recording.Rule }

func (s stubRules) Load() error { return nil }
func (s stubRules) GetAllRules() []recording.Rule { return s.rules }
func (s stubRules) GetRule(id string) (recording.Rule, bool) {
	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return recording.Rule{}, false
}
func (s stubRules) GetEnabledRules() []recording.Rule { return s.rules }

type testEnv struct {
	server  *Server
	manager *session.Manager
	ledger  *stubLedger
}

func newTestServer(t *testing.T, username, password string) *testEnv {
	t.Helper()

	alloc, err := ports.NewAllocator(9000, 9010)
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}
	cfg := session.Config{
		IdleTimeout:     2 * time.Minute,
		MinAge:          2 * time.Minute,
		ReapInterval:    30 * time.Second,
		EvictIdleWindow: 60 * time.Second,
		EvictionDelay:   time.Millisecond,
	}
	manager := session.NewManager(cfg, stubLauncher{}, alloc, events.New())

	resolver := address.NewResolver(nil)
	resolver.Learn(12345, "somechannel")

	ledger := newStubLedger()
	server := NewServer(&Options{
		AuthUsername: username,
		AuthPassword: password,
		Manager:      manager,
		Resolver:     resolver,
		Ledger:       ledger,
		Rules: stubRules{rules: []recording.Rule{
			{ID: "r1", Channel: "somechannel", Game: "valorant", Enabled: true},
		}},
		EventBus: events.New(),
	})
	return &testEnv{server: server, manager: manager, ledger: ledger}
}

func (e *testEnv) do(method, path string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))
	}
	w := httptest.NewRecorder()
	e.server.GetMux().ServeHTTP(w, req)
	return w
}

func TestHealthNeedsNoAuth(t *testing.T) {
	env := newTestServer(t, "admin", "secret")
	if w := env.do(http.MethodGet, "/api/health", false); w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestServer(t, "admin", "secret")

	if w := env.do(http.MethodGet, "/api/streams", false); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without credentials", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/streams", true); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with credentials", w.Code)
	}
}

func TestStartListStopStream(t *testing.T) {
	env := newTestServer(t, "admin", "secret")

	w := env.do(http.MethodPost, "/api/streams/somechannel", true)
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var started struct {
		Key  string `json:"key"`
		Port int    `json:"port"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if started.Key != "somechannel" || started.Port != 9000 {
		t.Errorf("started = %+v", started)
	}

	w = env.do(http.MethodGet, "/api/streams", true)
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("count = %d, want 1", list.Count)
	}

	if w := env.do(http.MethodDelete, "/api/streams/somechannel", true); w.Code != http.StatusOK {
		t.Errorf("stop status = %d", w.Code)
	}
	// Unknown key: still 200, stop is a no-op.
	if w := env.do(http.MethodDelete, "/api/streams/neverstarted", true); w.Code != http.StatusOK {
		t.Errorf("stop unknown status = %d", w.Code)
	}
}

func TestPlayRedirect(t *testing.T) {
	env := newTestServer(t, "", "")

	// 12345 + 10_000_000_000 = the 720p band for somechannel.
	w := env.do(http.MethodGet, "/play/10000012345", false)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302: %s", w.Code, w.Body.String())
	}
	location := w.Header().Get("Location")
	if location == "" {
		t.Fatal("no Location header")
	}

	sess, ok := env.manager.Get("somechannel")
	if !ok {
		t.Fatal("play did not start a session")
	}
	if sess.Quality != "720p" {
		t.Errorf("quality = %q, want 720p from the band offset", sess.Quality)
	}
	if location != sess.URL {
		t.Errorf("location = %q, want %q", location, sess.URL)
	}

	if _, ok := env.manager.Presence().Lookup("somechannel"); !ok {
		t.Error("redirect did not register presence")
	}
}

func TestPlayUnknownBaseID(t *testing.T) {
	env := newTestServer(t, "", "")
	if w := env.do(http.MethodGet, "/play/10000099999", false); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for an unlearned base id", w.Code)
	}
}

func TestPlayNegativeID(t *testing.T) {
	env := newTestServer(t, "", "")
	if w := env.do(http.MethodGet, "/play/-5", false); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRecordingsListAndDelete(t *testing.T) {
	env := newTestServer(t, "", "")

	rec := &recording.Record{Channel: "somechannel", RuleID: "r1", Path: "/nonexistent/x.ts"}
	if err := env.ledger.Insert(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	w := env.do(http.MethodGet, "/api/recordings", false)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("count = %d, want 1", list.Count)
	}

	if w := env.do(http.MethodDelete, fmt.Sprintf("/api/recordings/%d", rec.ID), false); w.Code != http.StatusOK {
		t.Errorf("delete status = %d: %s", w.Code, w.Body.String())
	}
	if w := env.do(http.MethodDelete, fmt.Sprintf("/api/recordings/%d", rec.ID), false); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestRulesList(t *testing.T) {
	env := newTestServer(t, "", "")

	w := env.do(http.MethodGet, "/api/rules", false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var list struct {
		Count int              `json:"count"`
		Rules []recording.Rule `json:"rules"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 || list.Rules[0].ID != "r1" {
		t.Errorf("rules = %+v", list)
	}
}
