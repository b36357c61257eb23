package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const defaultMaxSizeMB = 50

// RotatingWriter is an io.Writer over a log file that rotates the file
// once it grows past a size limit, keeping a fixed number of numbered
// backups (file.1 is the newest backup). Safe for concurrent use.
type RotatingWriter struct {
	mu sync.Mutex

	path    string
	limit   int64
	backups int

	f    *os.File
	size int64
}

// NewRotatingWriter opens (or creates) path for appending. The file
// rotates once it exceeds maxSizeMB; backups older than maxBackups are
// discarded during rotation.
func NewRotatingWriter(path string, maxSizeMB, maxBackups int) (*RotatingWriter, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	if maxBackups <= 0 {
		maxBackups = 3
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	rw := &RotatingWriter{
		path:    path,
		limit:   int64(maxSizeMB) << 20,
		backups: maxBackups,
	}
	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

// Write appends p, rotating first if the write would push the file past
// the size limit.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.size+int64(len(p)) > rw.limit {
		if err := rw.rotate(); err != nil {
			return 0, fmt.Errorf("log rotation: %w", err)
		}
	}

	n, err := rw.f.Write(p)
	rw.size += int64(n)
	return n, err
}

// Close closes the underlying file.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.f == nil {
		return nil
	}
	return rw.f.Close()
}

func (rw *RotatingWriter) open() error {
	f, err := os.OpenFile(rw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	rw.f = f
	rw.size = info.Size()
	return nil
}

func (rw *RotatingWriter) rotate() error {
	if rw.f != nil {
		rw.f.Close()
	}

	// Oldest backup falls off the end; the rest shift up one slot.
	os.Remove(fmt.Sprintf("%s.%d", rw.path, rw.backups))
	for i := rw.backups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", rw.path, i), fmt.Sprintf("%s.%d", rw.path, i+1))
	}
	os.Rename(rw.path, rw.path+".1")

	return rw.open()
}

// TeeWriter duplicates writes across both writers, for logging to stdout
// and a rotating file at once.
func TeeWriter(w1, w2 io.Writer) io.Writer {
	return io.MultiWriter(w1, w2)
}
