package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRotatingFileWrite(t *testing.T) {
	tmpDir := t.TempDir()

	rf, err := NewRotatingFile(tmpDir)
	if err != nil {
		t.Fatalf("NewRotatingFile failed: %v", err)
	}
	defer rf.Close()

	if _, err := rf.Write([]byte(`{"msg":"test"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	today := time.Now().Format("2006-01-02")
	logFile := filepath.Join(tmpDir, today+".jsonl")
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Errorf("expected log file %s to exist", logFile)
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(content), `{"msg":"test"}`) {
		t.Errorf("expected content to contain test message, got: %s", content)
	}
}

func TestRotatingFileLatestSymlink(t *testing.T) {
	tmpDir := t.TempDir()

	rf, err := NewRotatingFile(tmpDir)
	if err != nil {
		t.Fatalf("NewRotatingFile failed: %v", err)
	}
	defer rf.Close()

	rf.Write([]byte(`{"msg":"test"}`))

	symlinkPath := filepath.Join(tmpDir, "latest")
	target, err := os.Readlink(symlinkPath)
	if err != nil {
		t.Fatalf("reading symlink: %v", err)
	}

	today := time.Now().Format("2006-01-02")
	expected := today + ".jsonl"
	if target != expected {
		t.Errorf("expected symlink to point to %s, got %s", expected, target)
	}
}

func TestPruneRemovesOldFiles(t *testing.T) {
	tmpDir := t.TempDir()

	old := time.Now().AddDate(0, 0, -10).Format("2006-01-02") + ".jsonl"
	recent := time.Now().Format("2006-01-02") + ".jsonl"
	if err := os.WriteFile(filepath.Join(tmpDir, old), []byte("{}"), 0o644); err != nil {
		t.Fatalf("seeding old file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, recent), []byte("{}"), 0o644); err != nil {
		t.Fatalf("seeding recent file: %v", err)
	}

	Prune(tmpDir, 3)

	if _, err := os.Stat(filepath.Join(tmpDir, old)); !os.IsNotExist(err) {
		t.Errorf("expected old log file to be pruned")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, recent)); err != nil {
		t.Errorf("expected recent log file to survive, got: %v", err)
	}
}
