package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/api"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/config"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/dialogue"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/memory"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/sample"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/session"
)

type fixture struct {
	handler  http.Handler
	cfgPath  string
	loader   *config.Loader
	mgr      *session.Manager
	reloaded []*config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dialogue.yaml")
	if err := os.WriteFile(path, []byte("version: v1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	loader, err := config.NewLoader(path)
	if err != nil {
		t.Fatal(err)
	}
	g, err := sample.Tavern()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	mgr, err := session.New(ctx, []*dialogue.Graph{g}, loader.Config().Engine, loader.Config().Dialogue.Settings(), memory.New())
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		mgr.Shutdown()
		cancel()
	})

	f := &fixture{handler: api.New(mgr, loader), cfgPath: path, loader: loader, mgr: mgr}
	loader.OnChange(func(c *config.Config) { f.reloaded = append(f.reloaded, c) })
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func startBody(trust int, gold float64) map[string]interface{} {
	return map[string]interface{}{
		"dialogue": sample.TavernName,
		"participants": map[string]interface{}{
			sample.Player: map[string]interface{}{
				"ints":   map[string]int{"trust": trust},
				"floats": map[string]float64{"gold": gold},
				"names":  map[string]string{"name": "Ada"},
			},
			sample.Innkeeper: map[string]interface{}{},
		},
	}
}

func TestSessionRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/sessions", startBody(10, 25))
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body)
	}
	snap := decode[session.Snapshot](t, rec)
	if snap.Text != "Welcome back, Ada! What'll it be?" || len(snap.Options) != 5 {
		t.Fatalf("snapshot = %+v", snap)
	}
	base := "/v1/sessions/" + snap.ID.String()

	rec = f.do(t, http.MethodGet, base, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodPost, base+"/choose", map[string]interface{}{"index": 99})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid choice: %d %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodPost, base+"/choose", map[string]interface{}{"index": 4, "from_all": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("choose: %d %s", rec.Code, rec.Body)
	}
	snap = decode[session.Snapshot](t, rec)
	if !snap.Ended || snap.Text != "Safe travels, Ada." {
		t.Errorf("snapshot = %+v", snap)
	}

	rec = f.do(t, http.MethodPost, base+"/reevaluate", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("reevaluate after end: %d %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodDelete, base, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete: %d %s", rec.Code, rec.Body)
	}
	rec = f.do(t, http.MethodGet, base, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", rec.Code)
	}
}

func TestStartSession_Errors(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		body interface{}
		want int
	}{
		{"missing dialogue", map[string]interface{}{}, http.StatusBadRequest},
		{"unknown dialogue", map[string]interface{}{"dialogue": "nope"}, http.StatusNotFound},
		{"no participants", map[string]interface{}{"dialogue": sample.TavernName}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/sessions", tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body)
			}
			if e := decode[map[string]string](t, rec); e["error"] == "" {
				t.Error("missing error message")
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: %d", rec.Code)
	}
}

func TestSessionID_Invalid(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodGet, "/v1/sessions/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/v1/sessions/not-a-uuid/choose", map[string]int{"index": 0}); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestChoose_MissingIndex(t *testing.T) {
	f := newFixture(t)
	snap := decode[session.Snapshot](t, f.do(t, http.MethodPost, "/v1/sessions", startBody(10, 0)))
	rec := f.do(t, http.MethodPost, "/v1/sessions/"+snap.ID.String()+"/choose", map[string]bool{"from_all": true})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d %s", rec.Code, rec.Body)
	}
}

func TestDialoguesAndMemory(t *testing.T) {
	f := newFixture(t)

	list := decode[map[string][]session.DialogueInfo](t, f.do(t, http.MethodGet, "/v1/dialogues", nil))
	if got := list["dialogues"]; len(got) != 1 || got[0].Name != sample.TavernName {
		t.Errorf("dialogues = %+v", got)
	}
	for _, tc := range []struct {
		participant string
		want        int
	}{
		{sample.Innkeeper, 1},
		{"Stranger", 0},
	} {
		list = decode[map[string][]session.DialogueInfo](t, f.do(t, http.MethodGet, "/v1/dialogues?participant="+tc.participant, nil))
		if got := list["dialogues"]; len(got) != tc.want {
			t.Errorf("dialogues for %s = %+v, want %d", tc.participant, got, tc.want)
		}
	}

	f.do(t, http.MethodPost, "/v1/sessions", startBody(10, 0))
	mem := decode[map[string]map[string]memory.DialogueState](t, f.do(t, http.MethodGet, "/v1/memory", nil))
	if len(mem["dialogues"]) != 1 {
		t.Errorf("memory = %+v", mem)
	}

	if rec := f.do(t, http.MethodPost, "/v1/memory/clear", nil); rec.Code != http.StatusOK {
		t.Fatalf("clear: %d", rec.Code)
	}
	mem = decode[map[string]map[string]memory.DialogueState](t, f.do(t, http.MethodGet, "/v1/memory", nil))
	if len(mem["dialogues"]) != 0 {
		t.Errorf("memory after clear = %+v", mem)
	}
}

func TestReloadSettings(t *testing.T) {
	f := newFixture(t)

	if err := os.WriteFile(f.cfgPath, []byte("version: v2\ndialogue:\n  no_satisfied_child: continue\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := f.do(t, http.MethodPost, "/v1/settings/reload", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reload: %d %s", rec.Code, rec.Body)
	}
	if len(f.reloaded) != 1 || f.reloaded[0].Dialogue.NoSatisfiedChild != "continue" {
		t.Errorf("callbacks saw %+v", f.reloaded)
	}

	if err := os.WriteFile(f.cfgPath, []byte("version: v3\nengine:\n  queue_depth: -4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rec := f.do(t, http.MethodPost, "/v1/settings/reload", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid reload: %d", rec.Code)
	}
	if f.loader.Config().Version != "v2" {
		t.Error("invalid reload replaced the config")
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rec := f.do(t, http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Errorf("%s: %d", path, rec.Code)
		}
	}
	ready := decode[map[string]interface{}](t, f.do(t, http.MethodGet, "/readyz", nil))
	if ready["status"] != "ready" {
		t.Errorf("readyz = %+v", ready)
	}
}
