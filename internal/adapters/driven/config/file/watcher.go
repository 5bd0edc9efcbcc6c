package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// PromptWatcher clears a PromptStore cache whenever a prompt file in its
// directory is created, written, renamed or removed.
type PromptWatcher struct {
	store   driven.PromptStore
	dir     string
	watcher *fsnotify.Watcher

	// reloaded receives the prompt name after each reload. Tests only.
	reloaded chan string
}

// NewPromptWatcher watches dir and reloads store on change.
// The directory must exist.
func NewPromptWatcher(store driven.PromptStore, dir string) (*PromptWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &PromptWatcher{store: store, dir: dir, watcher: w}, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *PromptWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if name := w.handleEvent(event); name != "" {
				logger.Info("prompt %s changed, reloading", name)
				w.store.Reload()
				if w.reloaded != nil {
					w.reloaded <- name
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("prompt watcher: %v", err)
		}
	}
}

// handleEvent returns the prompt name an event affects, or "".
func (w *PromptWatcher) handleEvent(event fsnotify.Event) string {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return ""
	}
	base := filepath.Base(event.Name)
	name, ok := strings.CutSuffix(base, ".txt")
	if !ok || strings.HasPrefix(base, ".") {
		return ""
	}
	for _, known := range driven.PromptNames() {
		if name == known {
			return name
		}
	}
	return ""
}

// Close stops watching.
func (w *PromptWatcher) Close() error {
	return w.watcher.Close()
}
