package archive

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/tracejack/internal/ports"
)

// guard warns when an indexed input file changes while the run is reading
// it. It only logs; the index is not updated mid-run.
type guard struct {
	watcher *fsnotify.Watcher
	logger  ports.Logger
	files   map[string]bool

	mu      sync.Mutex
	changed map[string]bool
	done    chan struct{}
}

func newGuard(files []inputFile, logger ports.Logger) (*guard, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	g := &guard{
		watcher: w,
		logger:  logger,
		files:   make(map[string]bool, len(files)),
		changed: map[string]bool{},
		done:    make(chan struct{}),
	}

	dirs := map[string]bool{}
	for _, f := range files {
		g.files[f.path] = true
		dirs[filepath.Dir(f.path)] = true
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			logger.Warn("cannot watch input directory", ports.String("dir", d), ports.Err(err))
		}
	}

	go g.run()
	return g, nil
}

func (g *guard) run() {
	defer close(g.done)
	for {
		select {
		case event, ok := <-g.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !g.files[event.Name] {
				continue
			}
			g.mu.Lock()
			first := !g.changed[event.Name]
			g.changed[event.Name] = true
			g.mu.Unlock()
			if first {
				g.logger.Warn("input file modified during run",
					ports.String("path", event.Name),
					ports.String("op", event.Op.String()))
			}

		case err, ok := <-g.watcher.Errors:
			if !ok {
				return
			}
			g.logger.Warn("input watcher error", ports.Err(err))
		}
	}
}

// Changed returns the input files modified since the archive was opened.
func (g *guard) Changed() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.changed))
	for p := range g.changed {
		out = append(out, p)
	}
	return out
}

func (g *guard) close() error {
	err := g.watcher.Close()
	<-g.done
	return err
}
