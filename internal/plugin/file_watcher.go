package plugin

import (
	"os"
	"sync"
	"time"
)

// FileChangeCallback is invoked when a watched file is modified.
type FileChangeCallback func(path string)

type watchEntry struct {
	lastWriteTime    time.Time
	lastChangeAt     time.Time
	pendingCallback  bool
}

// FileWatcher is a polling-based file change detector. It watches plugin
// library files by periodically comparing last-write timestamps; changes
// within a debounce window are coalesced into a single callback.
//
// Usage:
//
//	w := NewFileWatcher()
//	w.SetCallback(func(path string) { ... })
//	w.Watch("/path/to/plugin.so")
//	w.Poll() // call periodically
type FileWatcher struct {
	mu         sync.Mutex
	entries    map[string]*watchEntry
	callback   FileChangeCallback
	debounce   time.Duration
}

// NewFileWatcher constructs a FileWatcher with the default 200ms debounce.
func NewFileWatcher() *FileWatcher {
	return &FileWatcher{
		entries:  make(map[string]*watchEntry),
		debounce: 200 * time.Millisecond,
	}
}

// SetCallback sets the callback invoked when a file modification is
// detected.
func (w *FileWatcher) SetCallback(cb FileChangeCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = cb
}

// Watch starts watching path for modifications, recording its current
// modification time as the baseline. Returns false if the file doesn't
// exist.
func (w *FileWatcher) Watch(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[path] = &watchEntry{lastWriteTime: info.ModTime()}
	return true
}

// Unwatch stops watching a specific file.
func (w *FileWatcher) Unwatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entries, path)
}

// UnwatchAll stops watching all files and clears state.
func (w *FileWatcher) UnwatchAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = make(map[string]*watchEntry)
}

// Poll checks all watched files for modifications. If a change is
// detected and the debounce window has elapsed since the most recent change
// was seen, the callback is invoked once, outside the lock.
func (w *FileWatcher) Poll() {
	var changed []string
	now := time.Now()

	w.mu.Lock()
	for path, entry := range w.entries {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		if !info.ModTime().Equal(entry.lastWriteTime) {
			entry.lastWriteTime = info.ModTime()
			entry.lastChangeAt = now
			entry.pendingCallback = true
		}

		if entry.pendingCallback && now.Sub(entry.lastChangeAt) >= w.debounce {
			entry.pendingCallback = false
			changed = append(changed, path)
		}
	}
	callback := w.callback
	w.mu.Unlock()

	if callback == nil {
		return
	}
	for _, path := range changed {
		callback(path)
	}
}

// SetDebounceMs sets the debounce duration in milliseconds.
func (w *FileWatcher) SetDebounceMs(ms uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = time.Duration(ms) * time.Millisecond
}

// WatchCount returns the number of watched files.
func (w *FileWatcher) WatchCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// IsWatching reports whether path is currently being watched.
func (w *FileWatcher) IsWatching(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.entries[path]
	return ok
}
