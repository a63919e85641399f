package web

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/moviesmigrate/internal/core"
	"github.com/JonMunkholm/moviesmigrate/internal/logging"
)

func newTestServer(t *testing.T, tracker *core.Tracker) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_batches_total", Help: "test"}))
	return NewServer(tracker, reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, core.NewTracker()), "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("GET /healthz = %d %q, want 200 ok", rec.Code, rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	tracker := core.NewTracker("film_work", "genre")
	tracker.Update("film_work", func(p *core.TableProgress) { p.RowsRead = 42 })
	tracker.SetState("film_work", core.StateWriting)

	rec := get(t, newTestServer(t, tracker), "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Done {
		t.Error("Done = true, want false")
	}
	if len(got.Tables) != 2 || got.Tables[0].Table != "film_work" || got.Tables[1].Table != "genre" {
		t.Fatalf("Tables = %+v, want film_work, genre", got.Tables)
	}
	if got.Tables[0].State != core.StateWriting || got.Tables[0].RowsRead != 42 {
		t.Errorf("film_work = %+v, want writing with 42 rows read", got.Tables[0])
	}
}

func TestTableStatus(t *testing.T) {
	tracker := core.NewTracker("genre")
	tracker.SetState("genre", core.StateVerified)
	s := newTestServer(t, tracker)

	rec := get(t, s, "/status/genre")
	var p core.TableProgress
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || p.State != core.StateVerified {
		t.Errorf("GET /status/genre = %d %+v, want 200 verified", rec.Code, p)
	}

	rec = get(t, s, "/status/movies")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /status/movies = %d, want 404", rec.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "CFG001" {
		t.Errorf("Code = %q, want CFG001", body.Code)
	}
}

func TestMetrics(t *testing.T) {
	rec := get(t, newTestServer(t, core.NewTracker()), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_batches_total 0") {
		t.Errorf("GET /metrics body missing counter:\n%s", rec.Body.String())
	}
}

func TestMetricsDisabled(t *testing.T) {
	s := NewServer(core.NewTracker(), nil, nil)
	if rec := get(t, s, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404", rec.Code)
	}
}

// readEvent reads one SSE event and returns its name and data.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStatusStream(t *testing.T) {
	tracker := core.NewTracker("genre")
	ts := httptest.NewServer(newTestServer(t, tracker).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status/stream")
	if err != nil {
		t.Fatalf("GET /status/stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	r := bufio.NewReader(resp.Body)

	if event, _ := readEvent(t, r); event != "snapshot" {
		t.Fatalf("first event = %q, want snapshot", event)
	}

	// The handler is subscribed once the snapshot has been sent
	tracker.Update("genre", func(p *core.TableProgress) { p.Batches = 3 })
	tracker.Close()

	event, data := readEvent(t, r)
	if event != "progress" {
		t.Fatalf("second event = %q, want progress", event)
	}
	var p core.TableProgress
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if p.Table != "genre" || p.Batches != 3 {
		t.Errorf("progress = %+v, want genre with 3 batches", p)
	}

	if event, _ := readEvent(t, r); event != "complete" {
		t.Errorf("last event = %q, want complete", event)
	}
}

func TestStatusStreamAfterRun(t *testing.T) {
	tracker := core.NewTracker("genre")
	tracker.SetState("genre", core.StateVerified)
	tracker.Close()

	rec := get(t, newTestServer(t, tracker), "/status/stream")
	body := rec.Body.String()
	if !strings.Contains(body, "event: snapshot") || !strings.Contains(body, "event: complete") {
		t.Errorf("stream = %q, want snapshot then complete", body)
	}
}

func TestStatusStreamLogsEvents(t *testing.T) {
	tracker := core.NewTracker("genre")
	tracker.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewServer(tracker, nil, logger)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/stream", nil))

	var closed map[string]any
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v", err)
		}
		if entry["msg"] == "stream closed" {
			closed = entry
		}
	}
	if closed == nil {
		t.Fatal("no stream closed entry logged")
	}
	if closed["events"] != float64(2) || closed["stream"] != "status" {
		t.Errorf("stream closed entry = %v, want 2 events on the status stream", closed)
	}
}

func TestRespondErrorLevel(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantCode  string
	}{
		{"classified", &core.ConfigurationError{Field: "table", Value: "movies", Reason: "unknown"}, "WARN", "CFG001"},
		{"unclassified", errors.New("something odd"), "ERROR", "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			req := httptest.NewRequest(http.MethodGet, "/status/movies", nil)
			req = req.WithContext(logging.NewContext(req.Context(), logger))

			rec := httptest.NewRecorder()
			respondError(rec, req, tt.err, http.StatusNotFound)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", entry["code"], tt.wantCode)
			}
			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
			}
		})
	}
}
