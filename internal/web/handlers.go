package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/moviesmigrate/internal/core"
	"github.com/JonMunkholm/moviesmigrate/internal/logging"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Done   bool                 `json:"done"`
	Tables []core.TableProgress `json:"tables"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

// handleStatus returns the progress of every table in run order.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, StatusResponse{
		Done:   s.tracker.Done(),
		Tables: s.tracker.Snapshot(),
	})
}

func (s *Server) handleTableStatus(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	p, ok := s.tracker.Get(table)
	if !ok {
		respondError(w, r, &core.ConfigurationError{Field: "table", Value: table, Reason: "not part of this run"}, http.StatusNotFound)
		return
	}
	writeJSON(w, r, p)
}

// handleStatusStream streams progress via Server-Sent Events.
// A snapshot event is sent first, then one progress event per update,
// then a complete event once the run has finished.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, fmt.Errorf("streaming not supported"), http.StatusInternalServerError)
		return
	}

	// Subscribe before the snapshot so no update falls between them
	updates := s.tracker.Subscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	log := logging.WithFields(r.Context(), "stream", "status")
	log.Debug("stream opened")

	eventID := 0
	defer func() { log.Debug("stream closed", "events", eventID) }()

	send := func(event string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			log.Error("encode event", "event", event, "error", err)
			return
		}
		eventID++
		fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", eventID, event, data)
		flusher.Flush()
	}

	send("snapshot", s.tracker.Snapshot())

	for {
		select {
		case p, ok := <-updates:
			if !ok {
				send("complete", StatusResponse{Done: true, Tables: s.tracker.Snapshot()})
				return
			}
			send("progress", p)

		case <-r.Context().Done():
			return
		}
	}
}
