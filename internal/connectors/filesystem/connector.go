// Package filesystem reads documents from a local directory tree and
// watches it for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// MaxFileSize is the largest file read. Larger files are skipped.
const MaxFileSize = 10 << 20

// Connector reads files under a root directory. Hidden files and
// directories are skipped.
type Connector struct {
	root string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a connector rooted at root.
func New(root string) *Connector {
	return &Connector{root: filepath.Clean(root)}
}

// Root returns the watched directory.
func (c *Connector) Root() string {
	return c.root
}

// Validate checks that the root exists and is a directory.
func (c *Connector) Validate() error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, c.root)
	}
	return nil
}

// DocumentID returns the stable id for a file: its slash separated path
// relative to the root.
func (c *Connector) DocumentID(path string) string {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Walk streams every readable file under the root. Both channels are
// closed when the walk ends. Per-file read errors are sent on the error
// channel and do not stop the walk.
func (c *Connector) Walk(ctx context.Context) (<-chan domain.RawContent, <-chan error) {
	docs := make(chan domain.RawContent)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.Validate(); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if path != c.root && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			raw, ok, err := readFile(path)
			if err != nil {
				select {
				case errs <- err:
				default:
					logger.Warn("filesystem: %v", err)
				}
				return nil
			}
			if !ok {
				return nil
			}

			select {
			case docs <- raw:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			select {
			case errs <- err:
			default:
				logger.Warn("filesystem: %v", err)
			}
		}
	}()

	return docs, errs
}

// Watch reports files created, written, removed or renamed under the root
// until ctx is cancelled or Close is called. New directories are watched
// as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawContentChange, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("connector is closed")
	}
	if c.watcher != nil {
		c.mu.Unlock()
		return nil, errors.New("already watching")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	c.watcher = w
	c.mu.Unlock()

	if err := c.addTree(w, c.root); err != nil {
		_ = c.Close()
		return nil, err
	}

	changes := make(chan domain.RawContentChange)
	go c.run(ctx, w, changes)
	return changes, nil
}

func (c *Connector) run(ctx context.Context, w *fsnotify.Watcher, changes chan<- domain.RawContentChange) {
	defer close(changes)
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			change, ok := c.translate(w, event)
			if !ok {
				continue
			}
			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("filesystem watcher: %v", err)
		}
	}
}

// translate maps an fsnotify event to a change. Directory events only
// extend the watch set.
func (c *Connector) translate(w *fsnotify.Watcher, event fsnotify.Event) (domain.RawContentChange, bool) {
	rel, err := filepath.Rel(c.root, event.Name)
	if err != nil || hasHiddenPart(rel) {
		return domain.RawContentChange{}, false
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return domain.RawContentChange{
			Type:    domain.ChangeDeleted,
			Content: domain.RawContent{Name: event.Name},
		}, true

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return domain.RawContentChange{}, false
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				if err := c.addTree(w, event.Name); err != nil {
					logger.Warn("filesystem watcher: %v", err)
				}
			}
			return domain.RawContentChange{}, false
		}

		raw, ok, err := readFile(event.Name)
		if err != nil || !ok {
			return domain.RawContentChange{}, false
		}
		kind := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			kind = domain.ChangeCreated
		}
		return domain.RawContentChange{Type: kind, Content: raw}, true
	}
	return domain.RawContentChange{}, false
}

// addTree watches dir and every non-hidden directory below it.
func (c *Connector) addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Close stops any running watch. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

// readFile loads a regular file. ok is false for files that are skipped.
func readFile(path string) (domain.RawContent, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.RawContent{}, false, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return domain.RawContent{}, false, nil
	}
	if info.Size() > MaxFileSize {
		logger.Debug("filesystem: skipping %s (%d bytes)", path, info.Size())
		return domain.RawContent{}, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RawContent{}, false, fmt.Errorf("read %s: %w", path, err)
	}
	return domain.RawContent{Name: path, Data: data}, true, nil
}

// isHidden reports whether a file or directory name starts with a dot.
// "." and ".." are not hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// hasHiddenPart reports whether any element of a relative path is hidden.
func hasHiddenPart(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if isHidden(part) {
			return true
		}
	}
	return false
}
