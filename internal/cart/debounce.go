package cart

import (
	"sync"
	"time"
)

// Debouncer remembers, per key, until when repeat calls are suppressed.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	until  map[string]time.Time
}

func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = time.Second
	}
	return &Debouncer{
		window: window,
		until:  make(map[string]time.Time),
	}
}

// Suppressed prunes expired keys and reports whether key is still inside its window.
func (d *Debouncer) Suppressed(key string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k, expiry := range d.until {
		if !now.Before(expiry) {
			delete(d.until, k)
		}
	}

	_, ok := d.until[key]
	return ok
}

// Mark opens a suppression window for key starting at now.
func (d *Debouncer) Mark(key string, now time.Time) {
	d.mu.Lock()
	d.until[key] = now.Add(d.window)
	d.mu.Unlock()
}

func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.until)
}
