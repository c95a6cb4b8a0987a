package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/troopbase/troopbase/pkg/observability"
)

// Watch re-reads the YAML config file whenever it changes and applies the
// log level to logger. Other settings require a restart; log verbosity is
// the one knob operators turn while debugging a live incident.
//
// The watch is on the file's directory rather than the file itself, since
// editors and kubelet configmap updates replace the file instead of writing
// it in place. Close the returned watcher to stop.
func Watch(path string, logger *observability.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				applyReload(target, logger)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("Config watcher error")
			}
		}
	}()

	return watcher, nil
}

func applyReload(path string, logger *observability.Logger) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		logger.WithError(err).Warn("Ignoring config reload")
		return
	}

	level := observability.ParseLevel(cfg.Observability.LogLevel)
	logger.SetLevel(level)
	logger.WithField("log_level", level.String()).Info("Applied config reload")
}
