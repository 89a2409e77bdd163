package config

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/logging"
)

// Watcher reloads the detection settings when the config file changes.
// Only the Detection section is hot; other sections need a restart.
type Watcher struct {
	path    string
	runtime *Runtime
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a watcher for path feeding rt.
func NewWatcher(path string, rt *Runtime, logger *zap.Logger) *Watcher {
	return &Watcher{
		path:    filepath.Clean(path),
		runtime: rt,
		logger:  logging.OrNop(logger),
		done:    make(chan struct{}),
	}
}

// Start begins watching. The parent directory is watched so that editors
// replacing the file by rename are still seen. Call Stop() to clean up.
func (cw *Watcher) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(cw.path)); err != nil {
		_ = w.Close()
		return err
	}
	cw.watcher = w

	go cw.loop()
	cw.logger.Info("config: watching for changes", zap.String("path", cw.path))
	return nil
}

// Stop shuts down the watcher.
func (cw *Watcher) Stop() {
	if cw.watcher == nil {
		return
	}
	_ = cw.watcher.Close()
	<-cw.done
}

func (cw *Watcher) loop() {
	defer close(cw.done)
	for {
		select {
		case evt, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != cw.path {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				cw.reload()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warn("config: watcher error", zap.Error(err))
		}
	}
}

// reload re-reads the file. A bad file is logged and the running settings
// are kept.
func (cw *Watcher) reload() {
	data, err := os.ReadFile(cw.path)
	if err != nil {
		cw.logger.Warn("config: reload read failed", zap.Error(err))
		return
	}
	// Start from the running settings so a file that omits the detection
	// section does not reset them.
	cfg := Default()
	cfg.Detection = cw.runtime.Get()
	if err := cfg.mergeYAML(data); err != nil {
		cw.logger.Warn("config: reload parse failed", zap.Error(err))
		return
	}
	if err := cw.runtime.Replace(cfg.Detection); err != nil {
		cw.logger.Warn("config: reload rejected", zap.Error(err))
		return
	}
	cw.logger.Info("config: detection settings reloaded")
}
