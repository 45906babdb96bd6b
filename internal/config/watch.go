package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay lets editors finish writing before the file is read.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the configuration whenever the file changes, until ctx is
// done. It watches the directory so that files replaced by rename are
// still seen. Reload failures are logged and the previous configuration
// stays active.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(m.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch config dir %s: %w", dir, err)
	}
	m.log.Info("watching config")

	target := filepath.Clean(m.path)
	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			m.log.Debug("config file event", zap.Stringer("op", ev.Op))
			timer.Reset(reloadDelay)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("config watcher error", zap.Error(err))
		case <-timer.C:
			if err := m.Load(); err != nil {
				m.log.Error("config reload failed, keeping previous", zap.Error(err))
				continue
			}
			m.log.Info("config reloaded")
		}
	}
}
