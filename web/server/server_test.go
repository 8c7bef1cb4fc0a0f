package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/gpu"
	"github.com/df07/go-gpu-pathtracer/pkg/notify"
	"github.com/df07/go-gpu-pathtracer/pkg/renderer"
	"github.com/df07/go-gpu-pathtracer/pkg/scene"
)

type testServer struct {
	server  *Server
	loop    *renderer.FrameLoop
	history *notify.History
}

// newTestServer runs a cornell box frame loop in the background for the
// lifetime of the test
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	alloc := gpu.NewMemoryAllocator(2)
	history := notify.NewHistory(0)
	broadcaster := notify.NewBroadcaster()
	sink := notify.Multi{history, broadcaster}

	sc, err := scene.New(alloc, sink)
	require.NoError(t, err)
	t.Cleanup(sc.Destroy)

	graphics, err := renderer.NewPreviewGraphics(renderer.PreviewConfig{Width: 32, Height: 24, TileSize: 16, NumWorkers: 2}, sc, alloc)
	require.NoError(t, err)
	t.Cleanup(graphics.Close)

	config := renderer.DefaultLoopConfig()
	config.ScreenshotDir = t.TempDir()
	config.FrameInterval = 2 * time.Millisecond

	console := notify.NewConsole(history, broadcaster)
	loop := renderer.NewFrameLoop(config, sc, core.NewCamera(core.DefaultCameraConfig()), graphics, console, nil, sink)

	preset, err := scene.FindPreset("", "cornell-box")
	require.NoError(t, err)
	require.NoError(t, loop.LoadPreset(preset))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &testServer{server: NewServer(loop, console, broadcaster, ""), loop: loop, history: history}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Scenes(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/scenes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decode[scene.ScenesResponse](t, rec)
	require.NotEmpty(t, response.Groups)
	assert.Equal(t, "Built-in Scenes", response.Groups[0].Name)

	var ids []string
	for _, info := range response.Groups[0].Scenes {
		ids = append(ids, info.ID)
	}
	assert.Contains(t, ids, "cornell-box")
}

func TestServer_LoadScene(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/scenes/no-such-scene", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/scenes/cornell-box", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, float64(8), body["objects"])
}

func TestServer_Objects(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/objects", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decode[ObjectsResponse](t, rec)
	require.Len(t, response.Objects, 8)
	assert.Equal(t, "sphere", response.Objects[0].KindName)
	assert.Equal(t, scene.NoSelection, response.Selected)
}

func TestServer_Inspect(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/objects/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	response := decode[InspectResponse](t, rec)
	assert.True(t, response.Hit)
	assert.Equal(t, "emissive", response.MaterialType)
	materialProps := response.Properties["material"].(map[string]interface{})
	assert.Contains(t, materialProps, "intensity")

	rec = ts.do(t, http.MethodGet, "/api/objects/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/objects/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_EditObject(t *testing.T) {
	ts := newTestServer(t)

	radius := float32(0.5)
	fuzz := float32(3) // clamped
	rec := ts.do(t, http.MethodPatch, "/api/objects/1", EditRequest{
		Radius:   &radius,
		Material: &MaterialEdit{Fuzz: &fuzz},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	response := decode[InspectResponse](t, rec)
	assert.Equal(t, true, response.Properties["changed"])
	geometryProps := response.Properties["geometry"].(map[string]interface{})
	assert.InDelta(t, 0.5, geometryProps["radius"], 1e-6)
	materialProps := response.Properties["material"].(map[string]interface{})
	assert.LessOrEqual(t, materialProps["fuzz"].(float64), 1.0)

	bogus := "velvet"
	rec = ts.do(t, http.MethodPatch, "/api/objects/1", EditRequest{Material: &MaterialEdit{Kind: &bogus}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/objects/1", map[string]string{"colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestServer_NewCloneDelete(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/objects", NewObjectRequest{Kind: "sphere"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[InspectResponse](t, rec)
	assert.Equal(t, 8, created.Index)
	assert.True(t, created.Selected)

	rec = ts.do(t, http.MethodPost, "/api/objects", NewObjectRequest{Kind: "mesh"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/objects/0/clone", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	clone := decode[InspectResponse](t, rec)
	assert.Equal(t, 9, clone.Index)
	assert.Equal(t, "sphere", clone.GeometryType)

	rec = ts.do(t, http.MethodPost, "/api/objects/42/clone", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/objects/9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"objects": 9}, decode[map[string]int](t, rec))

	rec = ts.do(t, http.MethodDelete, "/api/objects/9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Select(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/select", SelectRequest{X: 16, Y: 12, Width: 32, Height: 24})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	response := decode[InspectResponse](t, rec)
	assert.True(t, response.Hit)
	assert.Equal(t, 6, response.Index, "center ray hits the back wall")
	assert.InDelta(t, 15, response.Distance, 1e-3)
	assert.True(t, response.Selected)

	rec = ts.do(t, http.MethodPost, "/api/select", SelectRequest{X: 1, Y: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Command(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/command", CommandRequest{Input: "frobnicate"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/command", CommandRequest{Input: "render -5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/command", CommandRequest{Input: "help"})
	require.Equal(t, http.StatusOK, rec.Code)
	response := decode[CommandResponse](t, rec)
	require.NotEmpty(t, response.History)

	echoed := false
	for _, n := range response.History {
		if n.Type == notify.Command && n.Content == "help" {
			echoed = true
		}
	}
	assert.True(t, echoed, "history should decode with the command echo typed as a command")
}

func TestServer_RenderConflict(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/render", RenderRequest{Samples: 1_000_000})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	status := decode[renderer.Status](t, rec)
	assert.Equal(t, 1_000_000, status.TargetSamples)

	rec = ts.do(t, http.MethodPost, "/api/render", RenderRequest{Samples: 10})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/render", RenderRequest{Samples: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RenderProducesScreenshot(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/render", RenderRequest{Samples: 4})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return ts.loop.Status().LastScreenshot != ""
	}, 5*time.Second, 5*time.Millisecond)
	assert.True(t, strings.HasSuffix(ts.loop.Status().LastScreenshot, ".png"))
}

func TestServer_Settings(t *testing.T) {
	ts := newTestServer(t)

	spf := 4
	view := "normal"
	rec := ts.do(t, http.MethodPut, "/api/settings", SettingsRequest{SamplesPerFrame: &spf, DebugView: &view})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Eventually(t, func() bool {
		return ts.loop.Status().DebugView == "normal"
	}, 5*time.Second, 5*time.Millisecond)

	bogus := "infrared"
	rec = ts.do(t, http.MethodPut, "/api/settings", SettingsRequest{DebugView: &bogus})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/settings", SettingsRequest{LightMode: &bogus})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Notifications(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/notifications", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Headers are flushed before the subscription, so keep posting until one lands
	handler := ts.server.Handler()
	go func() {
		for ctx.Err() == nil {
			post := httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(`{"input":"help"}`))
			handler.ServeHTTP(httptest.NewRecorder(), post)
			time.Sleep(20 * time.Millisecond)
		}
	}()

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			event = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.Equal(t, "notification", event)

	var n map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(data), &n))
	assert.Contains(t, n, "content")
	assert.Contains(t, n, "type")
}
