package recovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasker/internal/model"
)

func TestHashTaskFile_Deterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.tsk")
	require.NoError(t, os.WriteFile(path, []byte("task=normal\ncommand=true\n"), 0o644))

	h1, err := HashTaskFile(path)
	require.NoError(t, err)
	h2, err := HashTaskFile(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recovery", "job_abcd1234.recovery.json")

	snap := Build("deadbeef", []int{1, 2, 3}, map[int]model.TaskResult{
		1: {ExitCode: 0, Success: true},
		2: {ExitCode: 1, Success: false},
	}, model.Globals{"ENV": "prod"}, nil)

	require.NoError(t, Save(path, snap))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", loaded.TaskFileHash)
	assert.Equal(t, []int{1, 2, 3}, loaded.ExecutionPath)
	assert.Equal(t, "prod", loaded.GlobalVars["ENV"])
	assert.Len(t, loaded.TaskResults, 2)
}

func TestValidateResume_HashMismatch(t *testing.T) {
	snap := Build("hash-a", []int{1}, nil, nil, nil)
	err := ValidateResume(snap, "hash-b")
	assert.Error(t, err)
}

func TestValidateResume_EmptyPathRejected(t *testing.T) {
	snap := Build("hash-a", nil, nil, nil, nil)
	err := ValidateResume(snap, "hash-a")
	assert.Error(t, err)
}

func TestValidateResume_OK(t *testing.T) {
	snap := Build("hash-a", []int{1, 2}, nil, nil, nil)
	assert.NoError(t, ValidateResume(snap, "hash-a"))
}

func TestPath_ShortensHashTo8Chars(t *testing.T) {
	p := Path("/var/log/tasker", "deploy.tsk", "0123456789abcdef")
	assert.Equal(t, "/var/log/tasker/recovery/deploy_01234567.recovery.json", p)
}
