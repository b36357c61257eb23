// Package connlog writes the daily plain-text connection log: one
// pipe-delimited record per connection attempt, in the exact format the
// original server produced, so existing log-scraping tooling keeps
// working against a rewritten server.
package connlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger appends connection records to a daily file under Dir, named
// connections_YYYY-MM-DD.log, rotating to a new file when the date rolls
// over.
type Logger struct {
	mu      sync.Mutex
	dir     string
	day     string
	file    *os.File
	nowFunc func() time.Time
}

// New creates a Logger writing under dir, creating it if necessary.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("connlog: mkdir %s: %w", dir, err)
	}
	return &Logger{dir: dir, nowFunc: time.Now}, nil
}

// Record writes one line:
// "TIMESTAMP | SERVICE | USER | IP | STATUS\n". user is rendered as
// "Unknown" when empty, matching the original server's behavior for
// unauthenticated attempts.
func (l *Logger) Record(service, user, ip, status string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if err := l.ensureFileLocked(now); err != nil {
		return err
	}

	if user == "" {
		user = "Unknown"
	}
	line := fmt.Sprintf("%s | %s | %s | %s | %s\n",
		now.Format("2006-01-02 15:04:05"), service, user, ip, status)

	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("connlog: write: %w", err)
	}
	return nil
}

// Close closes the currently open log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) ensureFileLocked(now time.Time) error {
	day := now.Format("2006-01-02")
	if l.file != nil && l.day == day {
		return nil
	}
	if l.file != nil {
		l.file.Close()
	}

	path := filepath.Join(l.dir, fmt.Sprintf("connections_%s.log", day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("connlog: open %s: %w", path, err)
	}
	l.file = f
	l.day = day
	return nil
}
