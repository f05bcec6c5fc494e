package summary

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend_WritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.tsv")

	require.NoError(t, Append(path, Row{Timestamp: time.Now(), TaskFile: "t.tsk", TaskID: 1, Command: "echo", ExitCode: 0, Status: "SUCCESS", LogFile: "run.log"}))
	require.NoError(t, Append(path, Row{Timestamp: time.Now(), TaskFile: "t.tsk", TaskID: 2, Command: "echo", ExitCode: 1, Status: "FAILURE", LogFile: "run.log"}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(b)
	assert.Equal(t, 1, countOccurrences(content, header))
	assert.Contains(t, content, "SUCCESS")
	assert.Contains(t, content, "FAILURE")
}

func TestLockTimeout_HighLoad(t *testing.T) {
	os.Setenv("TASK_EXECUTOR_HIGH_LOAD", "1")
	defer os.Unsetenv("TASK_EXECUTOR_HIGH_LOAD")
	assert.Equal(t, highLoadTimeout, LockTimeout())
}

func TestLockTimeout_Default(t *testing.T) {
	os.Unsetenv("TASK_EXECUTOR_HIGH_LOAD")
	assert.Equal(t, DefaultLockTimeout, LockTimeout())
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}
