package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-thermal/internal/control"
	"github.com/nerrad567/gray-logic-thermal/internal/history"
	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

// monitorResponse is the JSON view of a monitor snapshot.
type monitorResponse struct {
	Name             string     `json:"name"`
	Status           string     `json:"status"`
	Started          bool       `json:"started"`
	Enabled          bool       `json:"enabled"`
	Temperature      *int64     `json:"temperature"`
	Hot              bool       `json:"hot"`
	NextIntervalMS   int64      `json:"next_interval_ms"`
	PollIntervalMS   int64      `json:"poll_interval_ms"`
	HotIntervalMS    int64      `json:"hot_interval_ms"`
	HotThreshold     int64      `json:"hot_threshold"`
	Pending          bool       `json:"pending"`
	Polling          bool       `json:"polling"`
	Polls            uint64     `json:"polls"`
	ReadFailures     uint64     `json:"read_failures"`
	ScheduleFailures uint64     `json:"schedule_failures"`
	LastError        string     `json:"last_error,omitempty"`
	LastPoll         *time.Time `json:"last_poll,omitempty"`
}

func newMonitorResponse(s thermal.Snapshot) monitorResponse {
	resp := monitorResponse{
		Name:             s.Name,
		Status:           thermal.FormatStatus(s.Enabled, s.Config.NormalInterval),
		Started:          s.Started,
		Enabled:          s.Enabled,
		Hot:              s.Hot,
		NextIntervalMS:   s.NextInterval.Milliseconds(),
		PollIntervalMS:   s.Config.NormalInterval.Milliseconds(),
		HotIntervalMS:    s.Config.HotInterval.Milliseconds(),
		HotThreshold:     int64(s.Config.HotThreshold),
		Pending:          s.Pending,
		Polling:          s.Polling,
		Polls:            s.Polls,
		ReadFailures:     s.ReadFailures,
		ScheduleFailures: s.ScheduleFailures,
		LastError:        s.LastError,
	}
	if s.HasTemperature {
		v := int64(s.Temperature)
		resp.Temperature = &v
	}
	if !s.LastPoll.IsZero() {
		t := s.LastPoll.UTC()
		resp.LastPoll = &t
	}
	return resp
}

func (s *Server) handleListMonitors(w http.ResponseWriter, _ *http.Request) {
	snaps := s.monitors.Snapshots()
	out := make([]monitorResponse, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, newMonitorResponse(snap))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"monitors": out,
		"count":    len(out),
	})
}

func (s *Server) handleGetMonitor(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monitors.Get(chi.URLParam(r, "name"))
	if !ok {
		writeNotFound(w, "monitor not found")
		return
	}
	writeJSON(w, http.StatusOK, newMonitorResponse(m.Snapshot()))
}

// handleShowDisable returns the status line as plain text.
func (s *Server) handleShowDisable(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controls[chi.URLParam(r, "name")]
	if !ok {
		writeNotFound(w, "monitor not found")
		return
	}
	writeText(w, http.StatusOK, c.Show())
}

// handleStoreDisable applies a raw control write and returns the new
// status line.
func (s *Server) handleStoreDisable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	c, ok := s.controls[name]
	if !ok {
		writeNotFound(w, "monitor not found")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "could not read request body")
		return
	}

	if _, err := c.Store(r.Context(), body, history.SourceHTTP); err != nil {
		switch {
		case errors.Is(err, control.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		case errors.Is(err, thermal.ErrScheduler),
			errors.Is(err, thermal.ErrStopped),
			errors.Is(err, thermal.ErrNotStarted):
			writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
		default:
			writeInternalError(w, "control write failed")
		}
		return
	}

	s.logger.Info("thermal control write",
		"monitor", name,
		"subject", r.Context().Value(ctxKeySubject),
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeText(w, http.StatusOK, c.Show())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.monitors.Get(name); !ok {
		writeNotFound(w, "monitor not found")
		return
	}
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	readings, err := s.history.Readings(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("reading history query failed", "monitor", name, "error", err)
		writeInternalError(w, "history query failed")
		return
	}
	if readings == nil {
		readings = []history.ReadingRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"monitor":  name,
		"readings": readings,
		"count":    len(readings),
	})
}
