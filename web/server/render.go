package server

import (
	"errors"
	"net/http"

	"github.com/df07/go-gpu-pathtracer/pkg/renderer"
	"github.com/df07/go-gpu-pathtracer/pkg/scene"
)

// errConflict marks a request that clashes with the controller state
var errConflict = errors.New("conflict")

// RenderRequest starts a render to completion
type RenderRequest struct {
	Samples int `json:"samples"` // Zero uses the configured target
}

// handleRender starts a render to completion. The loop saves a screenshot when
// the target is reached.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Samples < 0 {
		writeError(w, http.StatusBadRequest, "samples must not be negative")
		return
	}

	var status renderer.Status
	err := s.submit(r, func() error {
		if !s.loop.StartRender(req.Samples) {
			return errConflict
		}
		status = s.loop.Controller().Status()
		return nil
	})
	if errors.Is(err, errConflict) {
		writeError(w, http.StatusConflict, "already rendering")
		return
	}
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, status)
}

// handleScreenshot asks the loop to save the accumulation buffer after the
// next frame
func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	err := s.submit(r, func() error {
		s.loop.RequestScreenshot()
		return nil
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

// SettingsRequest carries optional view settings. Every change restarts accumulation.
type SettingsRequest struct {
	SamplesPerFrame *int     `json:"samplesPerFrame"`
	LowRes          *float32 `json:"lowRes"`
	DebugView       *string  `json:"debugView"`
	LightMode       *string  `json:"lightMode"`
}

// handleSettings applies view settings
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var view renderer.DebugView
	if req.DebugView != nil {
		parsed, err := renderer.ParseDebugView(*req.DebugView)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		view = parsed
	}
	var mode scene.LightMode
	if req.LightMode != nil {
		parsed, err := scene.ParseLightMode(*req.LightMode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = parsed
	}

	var status renderer.Status
	err := s.submit(r, func() error {
		if req.SamplesPerFrame != nil {
			s.loop.Controller().SetSamplesPerFrame(*req.SamplesPerFrame)
		}
		if req.LowRes != nil {
			s.loop.SetLowResScale(*req.LowRes)
		}
		if req.DebugView != nil {
			s.loop.SetDebugView(view)
		}
		if req.LightMode != nil {
			s.loop.Scene().SetLightMode(mode)
		}
		status = s.loop.Controller().Status()
		return nil
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
