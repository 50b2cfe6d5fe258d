package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vinayprograms/researcher/internal/research"
)

func newFileManager(t *testing.T) (*Manager, *FileStore) {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store error: %v", err)
	}
	return NewManager(store), store
}

func TestSession_Create(t *testing.T) {
	mgr, store := newFileManager(t)

	sess, err := mgr.Create("compare A and B")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if sess.ID == "" {
		t.Error("session ID should not be empty")
	}
	if sess.Query != "compare A and B" || sess.Status != StatusRunning {
		t.Errorf("unexpected session: %+v", sess)
	}
	if _, err := os.Stat(store.Path(sess.ID)); err != nil {
		t.Errorf("session file not written: %v", err)
	}
}

func TestSession_UniqueIDs(t *testing.T) {
	mgr, _ := newFileManager(t)
	ids := make(map[string]bool)
	for i := 0; i < 50; i++ {
		sess, err := mgr.Create("q")
		if err != nil {
			t.Fatal(err)
		}
		if ids[sess.ID] {
			t.Errorf("duplicate session ID: %s", sess.ID)
		}
		ids[sess.ID] = true
	}
}

func TestSession_AddEventConcurrent(t *testing.T) {
	sess := &Session{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.AddEvent(Event{Type: EventSubTaskStart})
		}()
	}
	wg.Wait()

	if len(sess.Events) != 20 || sess.CurrentSeqID() != 20 {
		t.Fatalf("expected 20 events, got %d (seq %d)", len(sess.Events), sess.CurrentSeqID())
	}
	seen := map[uint64]bool{}
	for _, e := range sess.Events {
		if seen[e.SeqID] {
			t.Errorf("duplicate seq %d", e.SeqID)
		}
		seen[e.SeqID] = true
	}
}

func sampleSession() *Session {
	ok, failed := true, false
	ts := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	sess := &Session{
		ID:           "sess-1",
		Query:        "Compare two approaches",
		Status:       StatusComplete,
		Report:       "A is faster [1]\n\n## Sources\n\n[1] http://a\n",
		Iterations:   2,
		LimitReached: false,
		CreatedAt:    ts,
		UpdatedAt:    ts.Add(time.Minute),
	}
	sess.AddEvent(Event{Type: EventResearchStart, Timestamp: ts, Content: "Compare two approaches"})
	sess.AddEvent(Event{Type: EventPlan, Timestamp: ts, Iteration: 1, Agent: "lead", Steps: []string{"A", "B"}, Success: &failed})
	sess.AddEvent(Event{Type: EventToolCall, Timestamp: ts, Agent: "subagent", Tool: "web_search", Args: map[string]interface{}{"query": "a"}, Success: &ok})
	sess.AddEvent(Event{Type: EventSubTaskEnd, Timestamp: ts, Iteration: 1, Task: "B", Error: "timeout", Success: &failed, DurationMs: 1500})
	sess.AddEvent(Event{Type: EventResearchEnd, Timestamp: ts, Success: &ok})
	return sess
}

var sessionCmp = cmp.Options{
	cmpopts.IgnoreUnexported(Session{}),
	cmpopts.EquateApproxTime(time.Second),
}

func TestFileStore_RoundTrip(t *testing.T) {
	_, store := newFileManager(t)
	want := sampleSession()
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(want.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got, sessionCmp); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if got.CurrentSeqID() != 5 {
		t.Errorf("sequence counter not restored: %d", got.CurrentSeqID())
	}

	// Event errors survive alongside the footer's error field.
	if got.Events[3].Error != "timeout" {
		t.Errorf("event error lost: %+v", got.Events[3])
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	_, store := newFileManager(t)
	if _, err := store.Load("nope"); err == nil || !strings.Contains(err.Error(), "session not found") {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestFileStore_List(t *testing.T) {
	_, store := newFileManager(t)
	for i, id := range []string{"old", "new"} {
		s := &Session{ID: id}
		if err := store.Save(s); err != nil {
			t.Fatal(err)
		}
		mod := time.Now().Add(time.Duration(i-2) * time.Hour)
		os.Chtimes(store.Path(id), mod, mod)
	}
	os.WriteFile(filepath.Join(store.dir, "notes.txt"), []byte("x"), 0644)

	ids, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"new", "old"}, ids); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode(strings.NewReader("not json\n")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Decode(strings.NewReader(`{"_type":"footer","status":"complete"}` + "\n")); err == nil {
		t.Error("expected missing header error")
	}
	// No trailing newline on the last line.
	sess, err := Decode(strings.NewReader(`{"_type":"header","id":"x","query":"q"}`))
	if err != nil || sess.ID != "x" {
		t.Errorf("unexpected result %+v, %v", sess, err)
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	want := sampleSession()
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Saving again replaces events rather than duplicating them.
	if err := store.Save(want); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := store.Load(want.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got, sessionCmp); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	ids, err := store.List()
	if err != nil || len(ids) != 1 || ids[0] != want.ID {
		t.Errorf("unexpected list %v, %v", ids, err)
	}

	if _, err := store.Load("missing"); err == nil {
		t.Error("expected not found error")
	}
}

func TestManager_CloseSQLite(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatal(err)
	}
	mgr := NewManager(store)
	if _, err := mgr.Create("q"); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("close: %v", err)
	}

	fileMgr, _ := newFileManager(t)
	if err := fileMgr.Close(); err != nil {
		t.Errorf("file store close should be a no-op: %v", err)
	}
}

func TestRecorder(t *testing.T) {
	mgr, store := newFileManager(t)
	rec, err := mgr.Start("compare A and B")
	if err != nil {
		t.Fatal(err)
	}

	cb := rec.Callbacks()
	synth := "draft"
	cb.OnPlan(1, research.Decision{Synthesis: &synth, NextSteps: []string{"A", "B"}})
	cb.OnSubAgentStart(1, "A")
	cb.OnSubAgentStart(1, "B")
	cb.OnSubAgentComplete(1, "A", "found A", 2*time.Second)
	cb.OnSubAgentError(1, "B", errors.New("timeout"), time.Second)
	rec.ToolCall("subagent", "web_fetch", map[string]interface{}{"urls": []interface{}{"http://x"}}, errors.New("404"))
	cb.OnLimitReached(1)
	cb.OnFinalize(true)

	if err := rec.Finish(research.Result{Report: "final", Iterations: 1, LimitReached: true}, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := store.Load(rec.Session().ID)
	if err != nil {
		t.Fatal(err)
	}
	var types []string
	for _, e := range got.Events {
		types = append(types, e.Type)
	}
	want := []string{
		EventResearchStart, EventPlan, EventSubTaskStart, EventSubTaskStart,
		EventSubTaskEnd, EventSubTaskEnd, EventToolCall, EventLimitReached,
		EventFinalize, EventResearchEnd,
	}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("event types mismatch (-want +got):\n%s", diff)
	}
	if got.Status != StatusComplete || got.Report != "final" || !got.LimitReached || got.Iterations != 1 {
		t.Errorf("unexpected session footer: %+v", got)
	}
	if e := got.Events[5]; e.Error != "timeout" || e.Success == nil || *e.Success || e.DurationMs != 1000 {
		t.Errorf("unexpected failure event: %+v", e)
	}
	if e := got.Events[1]; e.Content != "draft" || len(e.Steps) != 2 {
		t.Errorf("unexpected plan event: %+v", e)
	}
}

func TestRecorder_FinishFailed(t *testing.T) {
	mgr, store := newFileManager(t)
	rec, _ := mgr.Start("q")
	if err := rec.Finish(research.Result{}, errors.New("planning failed: boom")); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Load(rec.Session().ID)
	if got.Status != StatusFailed || got.Error != "planning failed: boom" {
		t.Errorf("unexpected session: %+v", got)
	}
}

func TestSummary(t *testing.T) {
	ok := false
	e := Event{Type: EventSubTaskEnd, Iteration: 2, Agent: "subagent", Task: "find A", Success: &ok, Error: "timeout", DurationMs: 1500}
	want := `subtask_end iteration=2 agent=subagent task="find A" failed error="timeout" duration=1.5s`
	if got := Summary(e); got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
	if got := Summary(Event{Type: EventPlan, Steps: []string{"a", "b"}}); got != "plan steps=2" {
		t.Errorf("got %q", got)
	}
}
