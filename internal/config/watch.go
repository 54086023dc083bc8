package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// Watch reloads the configuration whenever the config file is written or
// replaced and passes each valid result to onChange. Invalid edits are
// logged and skipped. It blocks until ctx is done and returns nil right away
// when no config file is in use.
func (l *Loader) Watch(ctx context.Context, log logr.Logger, onChange func(*Config)) error {
	file := l.over.ConfigFile
	if file == "" {
		return nil
	}
	file = filepath.Clean(file)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()

	// The directory is watched so editors that replace the file by rename
	// keep triggering events.
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	log.Info("watching config file", "file", file)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != file || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			c, err := l.Load()
			if err != nil {
				log.Error(err, "config reload failed, keeping previous settings", "file", file)
				continue
			}
			log.Info("config file changed, reloading", "file", file)
			onChange(c)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(err, "error watching config file")
		}
	}
}
