// Package notify delivers the toasts a cashier sees on the terminal.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Category lets the UI style a toast. Out-of-stock warnings are shown
// differently from generic validation failures.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryValidation Category = "validation"
	CategoryOutOfStock Category = "out_of_stock"
	CategoryCart       Category = "cart"
	CategoryShift      Category = "shift"
	CategoryStock      Category = "stock"
	CategoryOrder      Category = "order"
	CategoryPrice      Category = "price"
	CategoryRemote     Category = "remote"
)

type Notification struct {
	Level     Level     `json:"level"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Notifier interface {
	Notify(n Notification)
}

func Success(n Notifier, category Category, msg string) { send(n, LevelSuccess, category, msg) }
func Info(n Notifier, category Category, msg string)    { send(n, LevelInfo, category, msg) }
func Warning(n Notifier, category Category, msg string) { send(n, LevelWarning, category, msg) }
func Error(n Notifier, category Category, msg string)   { send(n, LevelError, category, msg) }

func send(n Notifier, level Level, category Category, msg string) {
	if n == nil {
		return
	}
	n.Notify(Notification{
		Level:     level,
		Category:  category,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Drain returns and forgets everything recorded so far.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	return out
}

func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.Level == level {
			n++
		}
	}
	return n
}

type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, target := range m {
		if target != nil {
			target.Notify(n)
		}
	}
}

// Log writes notifications to a structured logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	level := slog.LevelInfo
	switch n.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}

	logger.Log(context.Background(), level, n.Message, "notification_level", string(n.Level), "category", string(n.Category))
}
