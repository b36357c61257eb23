package connlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecordWritesPipeDelimitedLine(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.nowFunc = func() time.Time { return time.Date(2026, 7, 29, 12, 30, 0, 0, time.UTC) }
	defer l.Close()

	if err := l.Record("AUTH", "alice", "127.0.0.1", "SUCCESS"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "connections_2026-07-29.log"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "2026-07-29 12:30:00 | AUTH | alice | 127.0.0.1 | SUCCESS\n"
	if string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}
}

func TestRecordDefaultsUnknownUser(t *testing.T) {
	dir := t.TempDir()
	l, _ := New(dir)
	l.nowFunc = func() time.Time { return time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC) }
	defer l.Close()

	l.Record("SCREEN", "", "10.0.0.5", "REJECTED")

	data, _ := os.ReadFile(filepath.Join(dir, "connections_2026-07-29.log"))
	if !strings.Contains(string(data), "| Unknown |") {
		t.Fatalf("expected Unknown placeholder, got %q", data)
	}
}

func TestRecordRotatesOnDayChange(t *testing.T) {
	dir := t.TempDir()
	l, _ := New(dir)
	day := time.Date(2026, 7, 29, 23, 59, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return day }
	defer l.Close()

	l.Record("INPUT", "alice", "127.0.0.1", "SUCCESS")
	day = day.Add(2 * time.Minute) // rolls to 2026-07-30
	l.Record("INPUT", "alice", "127.0.0.1", "SUCCESS")

	if _, err := os.Stat(filepath.Join(dir, "connections_2026-07-29.log")); err != nil {
		t.Fatalf("expected first day's file to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "connections_2026-07-30.log")); err != nil {
		t.Fatalf("expected second day's file to exist: %v", err)
	}
}
