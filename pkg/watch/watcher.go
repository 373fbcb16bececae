// Package watch triggers ingestion when CSV files land in a folder.
package watch

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler is invoked once per new CSV file.
type Handler func(ctx context.Context, path string) error

// FolderWatcher watches one directory (not recursively) for created CSV
// files. Files are handled one at a time, in arrival order.
type FolderWatcher struct {
	dir     string
	handle  Handler
	settle  time.Duration
	watcher *fsnotify.Watcher
}

// NewFolderWatcher creates a watcher for dir. settle delays each handler
// call so that a file still being copied in can finish.
func NewFolderWatcher(dir string, settle time.Duration, handle Handler) (*FolderWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &FolderWatcher{dir: dir, handle: handle, settle: settle, watcher: w}, nil
}

// Run blocks until ctx is cancelled or the watcher fails. Handler errors
// are logged and do not stop the watcher.
func (w *FolderWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	log.Printf("Watching folder %s for new CSV files...", w.dir)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !isNewCSV(event) {
				continue
			}
			log.Printf("CSV file created: %s", event.Name)
			if w.settle > 0 {
				select {
				case <-time.After(w.settle):
				case <-ctx.Done():
					return nil
				}
			}
			if err := w.handle(ctx, event.Name); err != nil {
				log.Printf("Ingestion of %s failed: %v", event.Name, err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Folder watcher error: %v", err)

		case <-ctx.Done():
			return nil
		}
	}
}

func isNewCSV(e fsnotify.Event) bool {
	if !e.Has(fsnotify.Create) {
		return false
	}
	return strings.EqualFold(filepath.Ext(e.Name), ".csv")
}
