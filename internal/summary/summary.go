// Package summary appends one TSV row per engine run to a shared,
// multi-process summary file, guarded by an advisory exclusive lock
// (spec.md §6: "flock(LOCK_EX|LOCK_NB) with retry"). gofrs/flock is the
// purpose-built library for that primitive; TASKER adopts it here rather
// than hand-rolling syscall flock, its one bespoke cross-process
// coordination need (see DESIGN.md).
package summary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const header = "#Timestamp\tTask File\tTask ID\tHostname\tCommand\tExit Code\tStatus\tLog File"

// Row is one run's summary record.
type Row struct {
	Timestamp time.Time
	TaskFile  string
	TaskID    int
	Hostname  string
	Command   string
	ExitCode  int
	Status    string // "SUCCESS" or "FAILURE"
	LogFile   string
}

func (r Row) line() string {
	fields := []string{
		r.Timestamp.Format("02Jan06 15:04:05"),
		r.TaskFile,
		strconv.Itoa(r.TaskID),
		r.Hostname,
		r.Command,
		strconv.Itoa(r.ExitCode),
		r.Status,
		r.LogFile,
	}
	return strings.Join(fields, "\t")
}

// DefaultLockTimeout is how long Append retries acquiring the lock before
// giving up. TASK_EXECUTOR_HIGH_LOAD extends this to 45s (spec.md §6).
const DefaultLockTimeout = 10 * time.Second

const highLoadTimeout = 45 * time.Second

// LockTimeout returns the configured lock-acquisition timeout, honoring
// TASK_EXECUTOR_HIGH_LOAD.
func LockTimeout() time.Duration {
	if os.Getenv("TASK_EXECUTOR_HIGH_LOAD") != "" {
		return highLoadTimeout
	}
	return DefaultLockTimeout
}

// Append opens (creating if needed) the summary file at path, writes the
// header if the file is new, acquires an exclusive advisory lock with
// bounded retry, appends row, and releases the lock.
func Append(path string, row Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("summary: creating directory: %w", err)
	}

	needsHeader := false
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		needsHeader = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout())
	defer cancel()

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		return &TimeoutError{Path: path, Timeout: LockTimeout()}
	}
	defer fl.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("summary: opening %s: %w", path, err)
	}
	defer f.Close()

	if needsHeader {
		if _, err := f.WriteString(header + "\n"); err != nil {
			return fmt.Errorf("summary: writing header: %w", err)
		}
	}
	if _, err := f.WriteString(row.line() + "\n"); err != nil {
		return fmt.Errorf("summary: writing row: %w", err)
	}
	return f.Sync()
}

// TimeoutError reports failure to acquire the summary-file lock within the
// configured window.
type TimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("summary: could not acquire lock on %s within %s", e.Path, e.Timeout)
}
