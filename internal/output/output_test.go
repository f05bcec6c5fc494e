package output

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRun_CapturesStdoutAndExitCode(t *testing.T) {
	res, err := Run(context.Background(), "/bin/sh", []string{"-c", "echo hello"}, "", nil, 5*time.Second, nil)
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)
	require.Equal(t, "hello\n", res.Stdout)
	require.False(t, res.StdoutTruncated)
}

func TestRun_NonZeroExit(t *testing.T) {
	res, err := Run(context.Background(), "/bin/sh", []string{"-c", "exit 7"}, "", nil, 5*time.Second, nil)
	require.NoError(t, err)
	require.Equal(t, 7, res.ExitCode)
}

func TestRun_TimeoutEscalatesToSigkill(t *testing.T) {
	res, err := Run(context.Background(), "/bin/sh", []string{"-c", "trap '' TERM; sleep 10"}, "", nil, 1*time.Second, nil)
	require.NoError(t, err)
	require.True(t, res.TimedOut)
	require.Equal(t, 124, res.ExitCode)
}

func TestRun_SpillsBeyondThreshold(t *testing.T) {
	// Generate output larger than SpillThreshold to force the spill path.
	res, err := Run(context.Background(), "/bin/sh", []string{"-c", "yes x | head -c 1200000"}, "", nil, 10*time.Second, nil)
	require.NoError(t, err)
	require.True(t, res.StdoutTruncated)
	require.NotEmpty(t, res.StdoutFile)
	require.LessOrEqual(t, len(res.Stdout), SpillThreshold)
	require.True(t, strings.HasPrefix(res.Stdout, "x"))
}

func TestRun_ShutdownCheckTerminates(t *testing.T) {
	calls := 0
	shutdown := func() bool {
		calls++
		return calls > 2
	}
	res, err := Run(context.Background(), "/bin/sh", []string{"-c", "sleep 10"}, "", nil, 30*time.Second, shutdown)
	require.NoError(t, err)
	require.NotEqual(t, 0, res.ExitCode)
}
