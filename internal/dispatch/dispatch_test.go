package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/deckcolor/internal/color"
	"github.com/dokzlo13/deckcolor/internal/db"
	"github.com/dokzlo13/deckcolor/internal/hass"
	"github.com/dokzlo13/deckcolor/internal/ledger"
)

type turnOn struct {
	EntityID string    `json:"entity_id"`
	RGBColor color.RGB `json:"rgb_color"`
	Auth     string    `json:"-"`
}

// recordingServer is a fake Home Assistant that records every turn_on call.
type recordingServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []turnOn
	fail     map[string]bool
}

func newRecordingServer(t *testing.T, failing ...string) *recordingServer {
	t.Helper()
	rs := &recordingServer{fail: make(map[string]bool)}
	for _, f := range failing {
		rs.fail[f] = true
	}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var req turnOn
		_ = json.Unmarshal(data, &req)
		req.Auth = r.Header.Get("Authorization")

		rs.mu.Lock()
		rs.requests = append(rs.requests, req)
		fail := rs.fail[req.EntityID]
		rs.mu.Unlock()

		if fail {
			http.Error(w, "entity not found", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) Requests() []turnOn {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := append([]turnOn(nil), rs.requests...)
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

func waitAll(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatal("dispatches did not finish")
	}
}

func TestDispatch_OneRequestPerLight(t *testing.T) {
	srv := newRecordingServer(t)
	d := New(hass.NewBackend(srv.Client(), 0))

	d.Dispatch(context.Background(), "btn", color.RGB{255, 0, 128}, SourcePick, Target{
		URL:    srv.URL,
		Token:  "tok",
		Lights: hass.ParseLights("kitchen, bedroom"),
	})
	waitAll(t, d)

	reqs := srv.Requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	if reqs[0].EntityID != "bedroom" || reqs[1].EntityID != "kitchen" {
		t.Errorf("entity ids = %q, %q", reqs[0].EntityID, reqs[1].EntityID)
	}
	for _, r := range reqs {
		if r.RGBColor != (color.RGB{255, 0, 128}) {
			t.Errorf("%s rgb = %v", r.EntityID, r.RGBColor)
		}
		if r.Auth != "Bearer tok" {
			t.Errorf("%s auth = %q", r.EntityID, r.Auth)
		}
	}
}

func TestDispatch_FailureIsolation(t *testing.T) {
	srv := newRecordingServer(t, "kitchen")
	database, err := db.Open(filepath.Join(t.TempDir(), "dispatch.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()
	l := ledger.New(database.DB)

	d := New(hass.NewBackend(srv.Client(), 0), WithRecorder(l))
	id := d.Dispatch(context.Background(), "btn", color.RGB{1, 2, 3}, SourcePick, Target{
		URL:    srv.URL,
		Lights: []string{"kitchen", "bedroom"},
	})
	waitAll(t, d)

	if reqs := srv.Requests(); len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}

	failed, err := l.GetByType(ledger.EventDispatchFailed, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].Payload["light"] != "kitchen" {
		t.Fatalf("failed = %+v", failed)
	}
	if failed[0].IdempotencyKey != id+"/kitchen" || failed[0].Source != "homeassistant" {
		t.Errorf("failed entry = %+v", failed[0])
	}

	completed, err := l.GetByType(ledger.EventDispatchCompleted, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != 1 || completed[0].Payload["light"] != "bedroom" {
		t.Errorf("completed = %+v", completed)
	}
}

// blockingBackend holds every request until release is closed.
type blockingBackend struct {
	started chan string
	release chan struct{}
}

func (b *blockingBackend) Name() string { return "blocking" }

func (b *blockingBackend) TurnOn(ctx context.Context, _, _, light string, _ color.RGB) error {
	b.started <- light
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestDispatch_ReturnsBeforeResponses(t *testing.T) {
	b := &blockingBackend{started: make(chan string, 2), release: make(chan struct{})}
	d := New(b)

	returned := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), "btn", color.RGB{}, SourcePick, Target{Lights: []string{"a", "b"}})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked on responses")
	}

	for i := 0; i < 2; i++ {
		select {
		case <-b.started:
		case <-time.After(2 * time.Second):
			t.Fatal("request not started")
		}
	}
	close(b.release)
	waitAll(t, d)
}

type errBackend struct {
	mu    sync.Mutex
	calls []string
}

func (b *errBackend) Name() string { return "err" }

func (b *errBackend) TurnOn(_ context.Context, _, _, light string, _ color.RGB) error {
	b.mu.Lock()
	b.calls = append(b.calls, light)
	b.mu.Unlock()
	if light == "bad" {
		return errors.New("boom")
	}
	return nil
}

func TestDispatch_NoLights(t *testing.T) {
	b := &errBackend{}
	d := New(b)
	d.Dispatch(context.Background(), "btn", color.RGB{}, SourcePick, Target{})
	waitAll(t, d)
	if len(b.calls) != 0 {
		t.Errorf("calls = %v", b.calls)
	}
}

func TestDispatch_RejectsInvalidColor(t *testing.T) {
	b := &errBackend{}
	tr := &fakeTransformer{out: color.RGB{1, 1, 1}}
	d := New(b, WithTransformer(tr))

	for _, rgb := range []color.RGB{{300, -5, 0}, {0, 256, 0}, {0, 0, -1}} {
		d.Dispatch(context.Background(), "btn", rgb, SourceReplay, Target{
			URL:    "http://ha.local",
			Lights: []string{"kitchen"},
		})
	}
	waitAll(t, d)

	if len(b.calls) != 0 {
		t.Errorf("invalid colors reached the backend: %v", b.calls)
	}
	if tr.source != "" {
		t.Error("invalid color was passed to the transformer")
	}
}

type fakeTransformer struct {
	out    color.RGB
	err    error
	source string
}

func (f *fakeTransformer) Transform(c color.RGB, source string) (color.RGB, error) {
	f.source = source
	if f.err != nil {
		return c, f.err
	}
	return f.out, nil
}

func TestDispatch_Transformer(t *testing.T) {
	srv := newRecordingServer(t)
	tr := &fakeTransformer{out: color.RGB{9, 9, 9}}
	d := New(hass.NewBackend(srv.Client(), 0), WithTransformer(tr))

	d.Dispatch(context.Background(), "btn", color.RGB{1, 1, 1}, SourceReplay, Target{URL: srv.URL, Lights: []string{"a"}})
	waitAll(t, d)

	reqs := srv.Requests()
	if len(reqs) != 1 || reqs[0].RGBColor != (color.RGB{9, 9, 9}) {
		t.Errorf("requests = %+v", reqs)
	}
	if tr.source != "replay" {
		t.Errorf("source = %q", tr.source)
	}
}

func TestDispatch_TransformerErrorSendsOriginal(t *testing.T) {
	srv := newRecordingServer(t)
	d := New(hass.NewBackend(srv.Client(), 0), WithTransformer(&fakeTransformer{err: errors.New("lua error")}))

	d.Dispatch(context.Background(), "btn", color.RGB{4, 5, 6}, SourcePick, Target{URL: srv.URL, Lights: []string{"a"}})
	waitAll(t, d)

	reqs := srv.Requests()
	if len(reqs) != 1 || reqs[0].RGBColor != (color.RGB{4, 5, 6}) {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestDispatch_TimeoutPerLight(t *testing.T) {
	b := &blockingBackend{started: make(chan string, 1), release: make(chan struct{})}
	d := New(b, WithTimeout(20*time.Millisecond))

	d.Dispatch(context.Background(), "btn", color.RGB{}, SourcePick, Target{Lights: []string{"slow"}})
	<-b.started
	waitAll(t, d)
}
