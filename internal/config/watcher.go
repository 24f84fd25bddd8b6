package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mantonx/sonar/internal/logger"
)

// WatchForChanges watches the loaded config file and reloads it on change.
// Returns a stop function. A no-op stop function is returned when no config
// file is in use.
func (cm *ConfigManager) WatchForChanges() (func(), error) {
	path := cm.ConfigPath()
	if path == "" {
		return func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors replace the file on save, which would
	// invalidate a watch on the path itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	stopCh := make(chan struct{})
	go func() {
		var reloadTimer *time.Timer
		for {
			select {
			case <-stopCh:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// Debounce bursts of write events from a single save
				if reloadTimer != nil {
					reloadTimer.Stop()
				}
				reloadTimer = time.AfterFunc(250*time.Millisecond, func() {
					if err := cm.Reload(); err != nil {
						logger.Error("Failed to reload configuration: %v", err)
						return
					}
					logger.Info("Configuration reloaded from %s", path)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watcher error: %v", err)
			}
		}
	}()

	stop := func() {
		close(stopCh)
		watcher.Close()
	}
	return stop, nil
}
