package logsource

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Notifier signals when a log file is written, created or renamed.
// Notifications are coalesced: at most one is pending at a time.
type Notifier struct {
	watcher *fsnotify.Watcher
	path    string
	changed chan struct{}
	done    chan struct{}
}

// NewNotifier watches the directory containing path, so that rotations that
// replace the file are observed as well as appends.
func NewNotifier(path string) (*Notifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	n := &Notifier{
		watcher: w,
		path:    filepath.Clean(path),
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go n.loop()
	return n, nil
}

// Changed returns a channel that receives a value after the file changed.
func (n *Notifier) Changed() <-chan struct{} {
	return n.changed
}

// Close stops watching.
func (n *Notifier) Close() error {
	err := n.watcher.Close()
	<-n.done
	return err
}

func (n *Notifier) loop() {
	defer close(n.done)
	for {
		select {
		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != n.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			select {
			case n.changed <- struct{}{}:
			default:
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			slog.Debug("File watcher error", "path", n.path, "error", err)
		}
	}
}
