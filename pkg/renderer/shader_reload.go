package renderer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/gogpu/naga"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/notify"
	"github.com/df07/go-gpu-pathtracer/shaders"
)

const shaderExt = ".wgsl"

// CompileSource compiles WGSL to SPIR-V and returns the word count
func CompileSource(name, source string) (int, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return 0, fmt.Errorf("failed to compile shader [%s]: %w", name, err)
	}
	return len(spirv) / 4, nil
}

// CompileShader reads and compiles one WGSL file
func CompileShader(path string) (int, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read shader: %w", err)
	}
	return CompileSource(path, string(source))
}

// ShaderReloader validates shaders and watches a directory for edits. A successful
// compile raises a reload request that the frame loop takes once per frame, so the
// pipeline is only ever rebuilt on the frame thread.
type ShaderReloader struct {
	dir     string
	sink    notify.Sink
	watcher *fsnotify.Watcher
	pending atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewShaderReloader watches dir. An empty dir validates the embedded shaders and
// watches nothing.
func NewShaderReloader(dir string, sink notify.Sink) (*ShaderReloader, error) {
	if sink == nil {
		sink = notify.Discard
	}
	r := &ShaderReloader{dir: dir, sink: sink, done: make(chan struct{})}
	if dir == "" {
		return r, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create shader watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	r.watcher = watcher

	r.wg.Add(1)
	go r.watch()
	return r, nil
}

// CompileAll compiles every shader, from the watched directory or the embedded set
func (r *ShaderReloader) CompileAll() error {
	sources, err := r.sources()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		words, err := CompileSource(name, sources[name])
		if err != nil {
			r.sink.Notify(notify.Error, err.Error()+": pipeline not built")
			return err
		}
		core.Log().Debug("shader compiled", "name", name, "words", words)
	}
	return nil
}

func (r *ShaderReloader) sources() (map[string]string, error) {
	if r.dir == "" {
		return shaders.Sources, nil
	}
	paths, err := filepath.Glob(filepath.Join(r.dir, "*"+shaderExt))
	if err != nil {
		return nil, err
	}
	sources := make(map[string]string, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read shader: %w", err)
		}
		sources[filepath.Base(path)] = string(data)
	}
	return sources, nil
}

// TakeReload reports whether a shader changed and compiled since the last call
func (r *ShaderReloader) TakeReload() bool {
	return r.pending.Swap(false)
}

func (r *ShaderReloader) watch() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, shaderExt) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			r.changed(event.Name)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			core.Log().Warn("shader watcher error", "error", err)
		}
	}
}

func (r *ShaderReloader) changed(path string) {
	if _, err := CompileShader(path); err != nil {
		core.Log().Warn("shader reload failed", "path", path, "error", err)
		r.sink.Notify(notify.Warning, err.Error())
		return
	}
	r.pending.Store(true)
	r.sink.Notify(notify.Info, fmt.Sprintf("Shader %s reloaded", filepath.Base(path)))
}

// Close stops watching
func (r *ShaderReloader) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.done)
	err := r.watcher.Close()
	r.wg.Wait()
	r.watcher = nil
	return err
}
