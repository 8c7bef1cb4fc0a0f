package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/notify"
)

// CommandRequest is one line typed into the console
type CommandRequest struct {
	Input string `json:"input"`
}

// CommandResponse returns the console history after the command ran
type CommandResponse struct {
	History []notify.Notification `json:"history"`
}

// handleCommand feeds one line to the console. The frame loop polls the
// console for requested commands on its next frame.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.console.Submit(req.Input); err != nil {
		if errors.Is(err, notify.ErrUnknownCommand) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("command failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{History: s.console.History().Items()})
}

// SSEEvent is one server-sent event
type SSEEvent struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// handleNotifications streams notifications as server-sent events until the
// client disconnects. ?history=true replays the console history first.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	buffer, err := parseIntParam(r.URL.Query(), "buffer", 32, 1, 1024)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	ctx := r.Context()
	notifications, unsubscribe := s.broadcaster.Subscribe(buffer)
	defer unsubscribe()

	sseEventChan := make(chan SSEEvent, buffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeSSEEvents(w, ctx, sseEventChan)
	}()

	if r.URL.Query().Get("history") == "true" {
		for _, n := range s.console.History().Items() {
			if !s.sendNotification(ctx, sseEventChan, n) {
				break
			}
		}
	}

	s.streamNotifications(ctx, notifications, sseEventChan)
	close(sseEventChan)
	<-done
}

// streamNotifications forwards broadcast notifications until ctx ends or the
// subscription closes
func (s *Server) streamNotifications(ctx context.Context, notifications <-chan Notification, sseEventChan chan<- SSEEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if !s.sendNotification(ctx, sseEventChan, n) {
				return
			}
		}
	}
}

// Notification is the streamed notification type
type Notification = notify.Notification

func (s *Server) sendNotification(ctx context.Context, sseEventChan chan<- SSEEvent, n Notification) bool {
	data, err := json.Marshal(n)
	if err != nil {
		core.Log().Warn("marshal notification", "error", err)
		return true
	}
	select {
	case sseEventChan <- SSEEvent{Type: "notification", Data: string(data)}:
		return true
	case <-ctx.Done():
		return false
	}
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// writeSSEEvents writes every event from one goroutine so writes never interleave
func (s *Server) writeSSEEvents(w http.ResponseWriter, ctx context.Context, sseEventChan <-chan SSEEvent) {
	for {
		select {
		case event, ok := <-sseEventChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		case <-ctx.Done():
			return
		}
	}
}
