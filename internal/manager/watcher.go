package manager

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hedworth/mcpline/internal/config"
	"github.com/hedworth/mcpline/internal/conn"
)

// reloadDebounce absorbs the event bursts editors and atomic renames emit.
const reloadDebounce = 150 * time.Millisecond

// Run watches the config file and applies reloads until ctx is cancelled.
// A no-op when no config path was given.
func (m *Manager) Run(ctx context.Context) {
	if m.opts.ConfigPath != "" {
		go m.watchConfig(ctx, m.opts.ConfigPath)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case newCfg := <-m.reloadCh:
			m.applyReload(ctx, newCfg)
		}
	}
}

// watchConfig watches the config file and queues parsed configs on reloadCh.
// The parent directory is watched rather than the file itself so atomic
// renames are caught.
func (m *Manager) watchConfig(ctx context.Context, configPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Error("failed to create config watcher", "error", err)
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(configPath)
	filename := filepath.Base(configPath)

	if err := watcher.Add(dir); err != nil {
		m.logger.Error("failed to watch config directory", "dir", dir, "error", err)
		return
	}
	m.logger.Debug("watching config file", "path", configPath)

	var debounceTimer *time.Timer
	var debounceMu sync.Mutex

	triggerReload := func() {
		debounceMu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(reloadDebounce, func() {
			newCfg, err := config.LoadFrom(configPath)
			if err != nil {
				m.logger.Warn("config changed but failed to load, keeping current", "error", err)
				return
			}
			select {
			case m.reloadCh <- newCfg:
			default:
				m.logger.Debug("config reload already pending, skipping")
			}
		})
		debounceMu.Unlock()
	}

	for {
		select {
		case <-ctx.Done():
			debounceMu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceMu.Unlock()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			// Atomic writes show up as rename or create depending on the OS
			// and editor.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				m.logger.Debug("config file event", "name", event.Name, "op", event.Op.String())
				triggerReload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("config watcher error", "error", err)
		}
	}
}

// applyReload reconciles the live connections with a freshly loaded config:
// servers that were removed, disabled, or materially changed are stopped,
// and newly enabled servers are started. Untouched servers keep their
// connection.
func (m *Manager) applyReload(ctx context.Context, newCfg *config.Config) {
	m.mu.Lock()
	oldCfg := m.cfg
	m.cfg = newCfg

	var stop []*conn.Conn
	for name, c := range m.conns {
		oldSrv := oldCfg.FindServerByName(name)
		newSrv := newCfg.FindServerByName(name)
		switch {
		case newSrv == nil, !newSrv.IsEnabled():
			stop = append(stop, c)
			delete(m.conns, name)
		case oldSrv != nil && !reflect.DeepEqual(*oldSrv, *newSrv):
			// Changed servers reconnect with the new settings; the dialer
			// reads the stored config, so stopping is enough to pick them up.
			stop = append(stop, c)
			delete(m.conns, name)
		}
	}
	m.mu.Unlock()

	for _, c := range stop {
		if err := c.Disconnect(); err != nil {
			m.logger.Warn("error stopping server during reload", "server", c.Server(), "error", err)
		}
	}

	m.logger.Info("config reloaded", "servers", len(newCfg.Servers), "stopped", len(stop))

	if err := m.ConnectAll(ctx); err != nil {
		m.logger.Warn("some servers failed to connect after reload", "error", err)
	}
}
