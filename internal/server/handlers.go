package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"github.com/jpalmerr/heartboard/internal/store"
)

const (
	errInvalidBody  = "invalid request body"
	errBodyTooLarge = "request entity too large"
)

var errTrailingData = errors.New("unexpected data after JSON value")

type submitResponse struct {
	Success bool              `json:"success"`
	User    store.UserReading `json:"user"`
}

type historyResponse struct {
	Name    string          `json:"name"`
	History []store.Reading `json:"history"`
	Count   int             `json:"count"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps store sentinel errors onto HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("store operation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// nameParam returns the decoded {name} path variable.
func nameParam(r *http.Request) (string, error) {
	return url.PathUnescape(mux.Vars(r)["name"])
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Users())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	name, heartRate, err := readSubmission(w, r)
	if err != nil {
		s.logger.Debug("rejected heart rate submission",
			"error", err,
			"request_id", requestID(r.Context()),
		)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
			return
		}
		s.writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	reading, err := s.store.Submit(name, heartRate)
	if err != nil {
		s.logger.Debug("rejected heart rate submission",
			"name", name,
			"heart_rate", heartRate,
			"error", err,
			"request_id", requestID(r.Context()),
		)
		s.writeStoreError(w, err)
		return
	}

	s.logger.Info("heart rate recorded",
		"name", reading.Name,
		"heart_rate", reading.HeartRate,
		"timestamp", reading.Timestamp,
		"request_id", requestID(r.Context()),
	)
	s.writeJSON(w, http.StatusOK, submitResponse{Success: true, User: reading})
}

// readSubmission extracts name and heartRate from a submission body.
//
// Only application/json bodies are parsed; anything else reads as an empty
// object, as does an empty body or a JSON array. Keys are matched exactly,
// so "heartrate" is not "heartRate". Absent and null fields come back as
// zero values for the store to reject.
func readSubmission(w http.ResponseWriter, r *http.Request) (name string, heartRate float64, err error) {
	if !isJSON(r.Header.Get("Content-Type")) {
		return "", 0, nil
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return "", 0, nil
		}
		return "", 0, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return "", 0, err
	}

	switch {
	case len(raw) > 0 && raw[0] == '[':
		return "", 0, nil
	case len(raw) == 0 || raw[0] != '{':
		return "", 0, fmt.Errorf("body must be a JSON object, got %q", raw)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", 0, err
	}
	if v, ok := fields["name"]; ok {
		var p *string
		if err := json.Unmarshal(v, &p); err != nil {
			return "", 0, fmt.Errorf("name: %w", err)
		}
		if p != nil {
			name = *p
		}
	}
	if v, ok := fields["heartRate"]; ok {
		var p *float64
		if err := json.Unmarshal(v, &p); err != nil {
			return "", 0, fmt.Errorf("heartRate: %w", err)
		}
		if p != nil {
			heartRate = *p
		}
	}
	return name, heartRate, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid user name: %v", err))
		return
	}

	reading, err := s.store.Latest(name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid user name: %v", err))
		return
	}

	n := historyLimit(r.URL.Query()["limit"], s.cfg.DefaultHistoryLimit)
	history, err := s.store.History(name, n)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, historyResponse{
		Name:    name,
		History: history,
		Count:   len(history),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: store.FormatTimestamp(s.now()),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "not found")
}

// handleSSE streams recorded readings via Server-Sent Events.
//
// The latest reading of every known user is sent first, then each new
// reading as it is recorded. Write deadlines keep a slow or vanished client
// from pinning the handler past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(reading store.UserReading) error {
		data, err := json.Marshal(reading)
		if err != nil {
			return err
		}
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe before the snapshot so nothing recorded in between is lost
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	for _, u := range s.store.Users() {
		snapshot := store.UserReading{Name: u.Name, HeartRate: u.LastHeartRate, Timestamp: u.LastUpdate}
		if err := writeAndFlush(snapshot); err != nil {
			return
		}
	}

	for {
		select {
		case reading, ok := <-ch:
			if !ok {
				return
			}
			if err := writeAndFlush(reading); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
