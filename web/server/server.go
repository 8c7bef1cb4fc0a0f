package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/notify"
	"github.com/df07/go-gpu-pathtracer/pkg/renderer"
	"github.com/df07/go-gpu-pathtracer/pkg/scene"
)

// Server exposes the frame loop over HTTP. Handlers never touch the scene
// directly; they submit closures to the loop and wait for the reply.
type Server struct {
	loop        *renderer.FrameLoop
	console     *notify.Console
	broadcaster *notify.Broadcaster
	presetDir   string
	mux         *http.ServeMux
}

// NewServer creates the API. Notifications sent to broadcaster are streamed to
// /api/notifications subscribers.
func NewServer(loop *renderer.FrameLoop, console *notify.Console, broadcaster *notify.Broadcaster, presetDir string) *Server {
	s := &Server{
		loop:        loop,
		console:     console,
		broadcaster: broadcaster,
		presetDir:   presetDir,
		mux:         http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/scenes", s.handleScenes)
	s.mux.HandleFunc("POST /api/scenes/{id}", s.handleLoadScene)

	s.mux.HandleFunc("GET /api/objects", s.handleObjects)
	s.mux.HandleFunc("POST /api/objects", s.handleNewObject)
	s.mux.HandleFunc("GET /api/objects/{index}", s.handleInspect)
	s.mux.HandleFunc("PATCH /api/objects/{index}", s.handleEditObject)
	s.mux.HandleFunc("DELETE /api/objects/{index}", s.handleDeleteObject)
	s.mux.HandleFunc("POST /api/objects/{index}/clone", s.handleCloneObject)
	s.mux.HandleFunc("POST /api/select", s.handleSelect)

	s.mux.HandleFunc("POST /api/command", s.handleCommand)
	s.mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	s.mux.HandleFunc("POST /api/render", s.handleRender)
	s.mux.HandleFunc("POST /api/screenshot", s.handleScreenshot)
	s.mux.HandleFunc("PUT /api/settings", s.handleSettings)
	return s
}

// Handler returns the routed API with CORS headers
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		s.mux.ServeHTTP(w, r)
	})
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Requests inherit ctx so notification streams end on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		core.Log().Info("control server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports frame and sample counters, render mode and throughput
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loop.Status())
}

// handleScenes lists built-in and file presets
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := scene.ListPresets(s.presetDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// handleLoadScene replaces the scene with a preset
func (s *Server) handleLoadScene(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	preset, err := scene.FindPreset(s.presetDir, id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var objects int
	err = s.submit(r, func() error {
		if err := s.loop.LoadPreset(preset); err != nil {
			return err
		}
		objects = s.loop.Scene().Len()
		return nil
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"scene": preset.Info.ID, "objects": objects})
}

// submit runs fn on the frame loop, bounded by the request context
func (s *Server) submit(r *http.Request, fn func() error) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	return s.loop.Submit(ctx, fn)
}

// errNotFound marks a submitted operation whose target does not exist
var errNotFound = errors.New("not found")

func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound), errors.Is(err, scene.ErrNoSelection):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, renderer.ErrLoopExited):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		core.Log().Warn("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a request body into v; an empty body leaves v unchanged
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathIndex parses the {index} path segment
func pathIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid object index %q", raw)
	}
	return index, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}
