package config

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchKeywords watches the keywords file and reloads the tables on change.
// Watching the parent directory is more reliable than watching the file itself
// (editors replace files on save). Returns immediately when no file is
// configured. Runs until stop is closed.
func WatchKeywords(source *KeywordSource, stop <-chan struct{}) {
	if source.Path() == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  [KEYWORDS] Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(source.Path())
	if err != nil {
		log.Printf("⚠️  [KEYWORDS] Failed to resolve %s: %v", source.Path(), err)
		return
	}
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  [KEYWORDS] Failed to watch directory %s: %v", dir, err)
		return
	}

	log.Printf("👁️  [KEYWORDS] Watching %s for changes (hot-reload enabled)", source.Path())

	// Debounce rapid successive writes from editors
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := source.Reload(); err != nil {
						log.Printf("⚠️  [KEYWORDS] Reload failed, keeping previous tables: %v", err)
					}
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  [KEYWORDS] Watcher error: %v", err)
		case <-stop:
			return
		}
	}
}
