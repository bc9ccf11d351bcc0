package log

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// RotatingFile is an io.Writer backed by dir/YYYY-MM-DD.jsonl, rolling over
// to a new file the first time it's written to on a new day.
type RotatingFile struct {
	dir      string
	mu       sync.Mutex
	file     *os.File
	currDate string
}

// NewRotatingFile opens (creating dir if needed) today's log file.
func NewRotatingFile(dir string) (*RotatingFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating debug log dir: %w", err)
	}
	rf := &RotatingFile{dir: dir}
	if err := rf.rotate(); err != nil {
		return nil, err
	}
	return rf, nil
}

// Write implements io.Writer, rotating to a fresh file on date change.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if today != rf.currDate {
		if err := rf.rotateLocked(); err != nil {
			return 0, err
		}
	}
	return rf.file.Write(p)
}

// Close closes the underlying file.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file != nil {
		return rf.file.Close()
	}
	return nil
}

func (rf *RotatingFile) rotate() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.rotateLocked()
}

func (rf *RotatingFile) rotateLocked() error {
	if rf.file != nil {
		rf.file.Close()
	}

	today := time.Now().Format("2006-01-02")
	filename := today + ".jsonl"
	path := filepath.Join(rf.dir, filename)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening debug log file: %w", err)
	}

	rf.file = f
	rf.currDate = today
	rf.relinkLatest(filename)
	return nil
}

// relinkLatest points dir/latest at filename, best effort — a failure here
// never blocks logging.
func (rf *RotatingFile) relinkLatest(filename string) {
	symlinkPath := filepath.Join(rf.dir, "latest")
	tmpPath := symlinkPath + ".tmp"

	os.Remove(tmpPath)
	if err := os.Symlink(filename, tmpPath); err != nil {
		return
	}
	_ = os.Rename(tmpPath, symlinkPath)
}

var debugFileNamePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.jsonl$`)

// Prune removes debug log files older than retentionDays.
func Prune(dir string, retentionDays int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !debugFileNamePattern.MatchString(name) {
			continue
		}
		fileDate, err := time.Parse("2006-01-02", name[:10])
		if err != nil {
			continue
		}
		if fileDate.Before(cutoff) {
			os.Remove(filepath.Join(dir, name))
		}
	}
}
