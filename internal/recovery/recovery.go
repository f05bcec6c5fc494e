// Package recovery persists and validates the JSON resume snapshot
// described in spec.md §6: enough state (execution path, stored results,
// global vars, a hash of the task file that produced them) to let a
// second invocation of the same task file pick up where a prior run left
// off, or refuse to if anything has drifted underneath it.
package recovery

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tasker/internal/model"
)

const Version = "1.0"

// Snapshot is the on-disk recovery document.
type Snapshot struct {
	VersionTag    string                  `json:"version"`
	TaskFileHash  string                  `json:"task_file_hash"`
	ExecutionPath []int                   `json:"execution_path"`
	TaskResults   map[string]resultRecord `json:"task_results"`
	GlobalVars    model.Globals           `json:"global_vars"`
	FailureInfo   *FailureInfo            `json:"failure_info,omitempty"`
}

// FailureInfo records why a run stopped short, for a human reading the
// recovery file without replaying the log.
type FailureInfo struct {
	TaskID  int    `json:"task_id"`
	Message string `json:"message"`
}

// resultRecord is the JSON-safe projection of model.TaskResult; spill-file
// paths are kept (they may still exist on disk) but their in-memory
// preview bytes are not re-serialized verbatim beyond what TaskResult
// already bounds.
type resultRecord struct {
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	StdoutFile string `json:"stdout_file,omitempty"`
	StderrFile string `json:"stderr_file,omitempty"`
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped"`
	TimedOut   bool   `json:"timed_out"`
}

// HashTaskFile returns the hex SHA-256 of a task file's contents, the
// fingerprint recorded in the snapshot and embedded in its own filename
// (adapted from the teacher's content-hashing idiom, originally used to
// key a build cache — see DESIGN.md for why the cache concept itself was
// dropped while the hashing technique survives here).
func HashTaskFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Path returns the recovery file path for a given task file and its hash,
// under logDir/recovery/.
func Path(logDir, taskFile, hash string) string {
	base := strings.TrimSuffix(filepath.Base(taskFile), filepath.Ext(taskFile))
	short := hash
	if len(short) > 8 {
		short = short[:8]
	}
	return filepath.Join(logDir, "recovery", fmt.Sprintf("%s_%s.recovery.json", base, short))
}

// Build assembles a Snapshot from live run state.
func Build(taskFileHash string, executionPath []int, results map[int]model.TaskResult, globals model.Globals, failure *FailureInfo) Snapshot {
	rr := make(map[string]resultRecord, len(results))
	for id, r := range results {
		rr[fmt.Sprintf("%d", id)] = resultRecord{
			ExitCode: r.ExitCode, Stdout: r.Stdout, Stderr: r.Stderr,
			StdoutFile: r.StdoutFile, StderrFile: r.StderrFile,
			Success: r.Success, Skipped: r.Skipped, TimedOut: r.TimedOut,
		}
	}
	return Snapshot{
		VersionTag:    Version,
		TaskFileHash:  taskFileHash,
		ExecutionPath: executionPath,
		TaskResults:   rr,
		GlobalVars:    globals,
		FailureInfo:   failure,
	}
}

// Save atomically writes the snapshot: write to a temp file in the same
// directory, fsync it, rename over the destination, then fsync the
// directory — the same durable-write idiom the teacher uses for its own
// state files, so a crash mid-write never leaves a half-written recovery
// document that Load would have to guess about.
func Save(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".recovery-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	return fsyncDir(filepath.Dir(path))
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// Load reads a snapshot from path.
func Load(path string) (Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("recovery: malformed snapshot: %w", err)
	}
	return snap, nil
}

// ValidateResume checks a loaded snapshot against the task file about to
// be resumed: the hash must match (same task file, unmodified) and the
// required fields must be present. It does not itself decide where to
// resume from — that is the orchestrator's --start-from handling.
func ValidateResume(snap Snapshot, currentTaskFileHash string) error {
	if snap.VersionTag != Version {
		return fmt.Errorf("recovery: unsupported snapshot version %q", snap.VersionTag)
	}
	if snap.TaskFileHash == "" {
		return fmt.Errorf("recovery: snapshot missing task_file_hash")
	}
	if snap.TaskFileHash != currentTaskFileHash {
		return fmt.Errorf("recovery: task file has changed since this snapshot was written")
	}
	if len(snap.ExecutionPath) == 0 {
		return fmt.Errorf("recovery: snapshot has an empty execution_path")
	}
	return nil
}

// Delete removes a snapshot file, ignoring a not-exist error — called on
// clean completion per spec.md §6.
func Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
