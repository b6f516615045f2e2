// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Hot reload of a TOML config file into a ConfigStore.

package control

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/momentics/hioload-mem/api"
)

// ReloadFile loads path and installs it into cs.
func ReloadFile(cs *ConfigStore, path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	return cs.Set(cfg)
}

// WatchFile reloads path into cs whenever it is written, created or renamed
// into place, until ctx is done. A bad file is logged and the previous
// configuration stays active. The directory is watched rather than the file
// since editors commonly replace files through a rename.
func WatchFile(ctx context.Context, cs *ConfigStore, path string, log logr.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return api.Wrap(api.ErrCodeInvalidOperation, err, "config watch: cannot create watcher")
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return api.Wrap(api.ErrCodeInvalidArgument, err, "config watch: bad path").WithContext("path", path)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return api.Wrap(api.ErrCodeInvalidOperation, err, "config watch: cannot watch directory").
			WithContext("path", path)
	}
	log.V(1).Info("watching config", "path", abs)

	change := fsnotify.Write | fsnotify.Create | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&change == 0 {
				continue
			}
			if err := ReloadFile(cs, abs); err != nil {
				log.Error(err, "config reload rejected", "path", abs)
				continue
			}
			log.Info("config reloaded", "path", abs)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(err, "config watcher error", "path", abs)
		}
	}
}
