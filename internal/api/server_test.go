package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minilabo/minilab-core/internal/history"
	"github.com/minilabo/minilab-core/internal/infrastructure/config"
	"github.com/minilabo/minilab-core/internal/infrastructure/logging"
	"github.com/minilabo/minilab-core/internal/io"
	"github.com/minilabo/minilab-core/internal/udpsync"
)

// fakeDiscoverer returns a canned report and records the timeout it was
// handed.
type fakeDiscoverer struct {
	report      udpsync.Report
	lastTimeout time.Duration
}

func (d *fakeDiscoverer) DiscoverPeers(_ context.Context, timeout time.Duration) udpsync.Report {
	d.lastTimeout = timeout
	return d.report
}

// fakeHistory serves a fixed entry list.
type fakeHistory struct {
	entries   []history.Entry
	lastLimit int
	err       error
}

func (h *fakeHistory) List(_ context.Context, channelID string, limit int) ([]history.Entry, error) {
	h.lastLimit = limit
	if h.err != nil {
		return nil, h.err
	}
	return h.entries, nil
}

// testServer builds a server over a loaded registry and returns its router.
func testServer(t *testing.T, deps Deps) *Server {
	t.Helper()

	if deps.Logger == nil {
		deps.Logger = logging.New(config.LoggingConfig{
			Level: "error", Format: "text", Output: "stdout", RecentSize: 16,
		}, "test")
	}
	if deps.Registry == nil {
		reg := io.NewRegistry(nil)
		reg.Load([]byte(`[
			{"id": "vin", "type": "a0", "unit": "V"},
			{"id": "rt", "type": "udp-in", "unit": "C"}
		]`))
		deps.Registry = reg
	}
	deps.Version = "test"

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Hub is normally created by Start(); tests drive the router directly.
	srv.hub = NewHub(srv.logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	return srv
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, Deps{})
	rec, body := doJSON(t, srv.buildRouter(), http.MethodGet, "/api/v1/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if body["channels"].(float64) != 2 {
		t.Errorf("channels = %v, want 2", body["channels"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestListChannels(t *testing.T) {
	srv := testServer(t, Deps{})
	rec, body := doJSON(t, srv.buildRouter(), http.MethodGet, "/api/v1/io/channels", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	channels := body["channels"].([]any)
	if len(channels) != 2 {
		t.Fatalf("channels = %d, want 2", len(channels))
	}

	// The udp-in channel carries a remote block; the local one does not.
	var remote map[string]any
	for _, raw := range channels {
		ch := raw.(map[string]any)
		if ch["id"] == "rt" {
			remote, _ = ch["remote"].(map[string]any)
		}
	}
	if remote == nil {
		t.Fatal("rt snapshot has no remote block")
	}
	if remote["status"] != io.StatusWaiting {
		t.Errorf("rt status = %v, want waiting", remote["status"])
	}
}

func TestDescribeHardware(t *testing.T) {
	srv := testServer(t, Deps{})
	rec, body := doJSON(t, srv.buildRouter(), http.MethodGet, "/api/v1/io/hardware", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := body["localInputs"]; !ok {
		t.Errorf("hardware catalogue missing localInputs: %v", body)
	}
	if _, ok := body["localOutputs"]; !ok {
		t.Errorf("hardware catalogue missing localOutputs: %v", body)
	}
}

func TestDescribeChannels(t *testing.T) {
	srv := testServer(t, Deps{})
	rec, body := doJSON(t, srv.buildRouter(), http.MethodGet, "/api/v1/io/config", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	channels := body["channels"].([]any)
	if len(channels) != 2 {
		t.Fatalf("channels = %d, want 2", len(channels))
	}
	first := channels[0].(map[string]any)
	if first["id"] != "vin" || first["type"] != string(io.KindLocalADC) {
		t.Errorf("first channel = %v", first)
	}
}

func TestChannelHistory(t *testing.T) {
	raw := 5.0
	store := &fakeHistory{entries: []history.Entry{
		{ID: 1, ChannelID: "rt", Raw: &raw, CreatedAt: "2026-08-24T10:00:00Z"},
	}}
	srv := testServer(t, Deps{History: store})
	router := srv.buildRouter()

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/io/history/rt?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	if store.lastLimit != 5 {
		t.Errorf("limit = %d, want 5", store.lastLimit)
	}
	entries := body["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}

	// Unknown channel is a 404, bad limit a 400.
	rec, _ = doJSON(t, router, http.MethodGet, "/api/v1/io/history/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown channel status = %d, want 404", rec.Code)
	}
	rec, _ = doJSON(t, router, http.MethodGet, "/api/v1/io/history/rt?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestChannelHistoryWithoutStore(t *testing.T) {
	srv := testServer(t, Deps{})
	rec, _ := doJSON(t, srv.buildRouter(), http.MethodGet, "/api/v1/io/history/rt", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDiscoverClampsTimeout(t *testing.T) {
	disc := &fakeDiscoverer{report: udpsync.Report{
		Status:  udpsync.ScanStatusOK,
		Devices: []udpsync.DiscoveredDevice{{MAC: "02:00:00:00:00:AA"}},
	}}
	srv := testServer(t, Deps{Sync: disc})
	router := srv.buildRouter()

	tests := []struct {
		name string
		body string
		want time.Duration
	}{
		{"default", "", defaultScanTimeoutMS * time.Millisecond},
		{"clamped low", `{"timeout_ms": 10}`, minScanTimeoutMS * time.Millisecond},
		{"clamped high", `{"timeout_ms": 60000}`, maxScanTimeoutMS * time.Millisecond},
		{"in range", `{"timeout_ms": 800}`, 800 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doJSON(t, router, http.MethodPost, "/api/v1/io/discover", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %v", rec.Code, body)
			}
			if disc.lastTimeout != tt.want {
				t.Errorf("timeout = %v, want %v", disc.lastTimeout, tt.want)
			}
			if body["status"] != udpsync.ScanStatusOK {
				t.Errorf("status = %v", body["status"])
			}
		})
	}

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/io/discover", `{garbage`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestDiscoverWithoutSync(t *testing.T) {
	srv := testServer(t, Deps{})
	rec, body := doJSON(t, srv.buildRouter(), http.MethodPost, "/api/v1/io/discover", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != udpsync.ScanStatusDisabled {
		t.Errorf("status = %v, want %v", body["status"], udpsync.ScanStatusDisabled)
	}
}

func TestSystemLog(t *testing.T) {
	logger := logging.New(config.LoggingConfig{
		Level: "info", Format: "json", Output: "stdout", RecentSize: 16,
	}, "test")
	srv := testServer(t, Deps{Logger: logger})
	logger.Info("api boot", "port", 8080)

	rec, body := doJSON(t, srv.buildRouter(), http.MethodGet, "/api/v1/system/log", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	records := body["records"].([]any)
	found := false
	for _, raw := range records {
		rec := raw.(map[string]any)
		if rec["message"] == "api boot" {
			found = true
		}
	}
	if !found {
		t.Errorf("log record not served: %v", records)
	}
}

func TestPanicRecovery(t *testing.T) {
	srv := testServer(t, Deps{})

	rec := httptest.NewRecorder()
	handler := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal server error") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestWebSocketSnapshotStream(t *testing.T) {
	srv := testServer(t, Deps{})
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Subscribe to the snapshot channel.
	sub := fmt.Sprintf(`{"type":%q,"id":"1","payload":{"channels":[%q]}}`, WSTypeSubscribe, WSChannelSnapshot)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(sub)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("reading ack: %v", err)
	}
	if ack.Type != WSTypeResponse {
		t.Fatalf("ack type = %q", ack.Type)
	}

	// A broadcast reaches the subscribed client.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv.hub.ClientCount() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	srv.hub.Broadcast(WSChannelSnapshot, srv.registry.Snapshot())

	var event WSMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if event.Type != WSTypeEvent || event.EventType != WSChannelSnapshot {
		t.Errorf("event = %+v", event)
	}
}
