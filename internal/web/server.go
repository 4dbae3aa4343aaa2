// Package web exposes the decision engine over HTTP with an SSE stream of recorded decisions.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/quorum/internal/domain"
)

const (
	defaultPollInterval = 2 * time.Second
	heartbeatInterval   = 30 * time.Second
	maxBodyBytes        = 1 << 20
)

type decider interface {
	Decide(fv domain.FeatureVector) domain.DecisionRecord
	History() ([]domain.DecisionRecord, error)
}

type decisionReader interface {
	EventsAfter(index uint64) ([]domain.DecisionEventRecord, error)
}

type notifier interface {
	Subscribe() chan domain.DecisionRecord
	Unsubscribe(ch chan domain.DecisionRecord)
}

// Server serves decisions and history.
type Server struct {
	Addr   string
	Engine decider
	// Events feeds /decisions/stream; the endpoint answers 503 when nil.
	Events       decisionReader
	PollInterval time.Duration
	// Notify, when set, wakes streams as soon as a decision is published.
	Notify notifier

	logger *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(logger *zap.Logger, addr string, engine decider, events decisionReader) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:         addr,
		Engine:       engine,
		Events:       events,
		PollInterval: defaultPollInterval,
		logger:       logger,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /decide", s.handleDecide)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /decisions/stream", s.handleDecisionStream)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var fv domain.FeatureVector

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fv); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid feature vector: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, s.Engine.Decide(fv))
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	records, err := s.Engine.History()
	if err != nil {
		s.logger.Error("failed to list history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []domain.DecisionRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDecisionStream(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "decision stream not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// reconnecting clients resume after the last index they saw
	var lastIndex uint64
	if id := r.Header.Get("Last-Event-ID"); id != "" {
		parsed, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			http.Error(w, "invalid Last-Event-ID", http.StatusBadRequest)
			return
		}
		lastIndex = parsed
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	poll := s.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	pollTicker := time.NewTicker(poll)
	defer pollTicker.Stop()

	var wake chan domain.DecisionRecord
	if s.Notify != nil {
		wake = s.Notify.Subscribe()
		defer s.Notify.Unsubscribe(wake)
	}

	sendDecisions := func() error {
		records, err := s.Events.EventsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Record)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: decision\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendDecisions(); err != nil {
		s.logger.Error("decision stream initial load", zap.Error(err))
		http.Error(w, "failed to load decisions", http.StatusInternalServerError)
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendDecisions(); err != nil {
				s.logger.Warn("decision stream poll", zap.Error(err))
			}
		case <-wake:
			if err := sendDecisions(); err != nil {
				s.logger.Warn("decision stream notify", zap.Error(err))
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
