package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasker/internal/logging"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]string{"job.tsk"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "job.tsk", cfg.TaskFile)
	assert.False(t, cfg.Run)
	assert.Equal(t, logging.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 30, cfg.DefaultTimeout)
}

func TestParse_RunAndOverrides(t *testing.T) {
	cfg, err := Parse([]string{"-r", "--log-level", "DEBUG", "-t", "shell", "-o", "60", "job.tsk"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, cfg.Run)
	assert.Equal(t, logging.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 60, cfg.DefaultTimeout)
}

func TestParse_MissingTaskFile(t *testing.T) {
	_, err := Parse([]string{"-r"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParse_BadLogLevel(t *testing.T) {
	_, err := Parse([]string{"--log-level", "NOPE", "job.tsk"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParse_ShowPlanAndValidateOnly(t *testing.T) {
	cfg, err := Parse([]string{"--show-plan", "--validate-only", "job.tsk"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, cfg.ShowPlan)
	assert.True(t, cfg.ValidateOnly)
}
