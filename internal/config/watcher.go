package config

import (
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher reloads a config file whenever it changes on disk
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string

	Changes chan *Config
	Errors  chan error
	done    chan struct{}
}

// NewWatcher watches path. The parent directory is watched so that editors
// replacing the file via rename are still picked up.
func NewWatcher(path string) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("no config file to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	cleanPath := filepath.Clean(path)
	if err := fsw.Add(filepath.Dir(cleanPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsw,
		path:      cleanPath,
		Changes:   make(chan *Config, 1),
		Errors:    make(chan error, 1),
		done:      make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// watchLoop handles fsnotify events
func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.Warnf("config reload %s: %s", w.path, err)
		w.sendError(err)
		return
	}

	log.Infof("config reloaded from %s", w.path)
	// keep only the newest config if the consumer is slow
	select {
	case <-w.Changes:
	default:
	}
	select {
	case w.Changes <- cfg:
	case <-w.done:
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.Errors <- err:
	default:
		// Error channel full, drop
	}
}
