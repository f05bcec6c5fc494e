package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasker/internal/model"
)

func TestParse_GlobalsAndTasks(t *testing.T) {
	src := `
# a comment
ENV=prod
-- reserved echo line, ignored
task=normal
hostname=web1
command=echo
arguments=hello
timeout=30
on_success=2
task=normal
command=echo done
return=0
`
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "prod", f.Globals["ENV"])
	require.Len(t, f.Tasks, 2)
	require.Equal(t, []int{1, 2}, f.Order)

	t1 := f.Tasks[1]
	assert.Equal(t, "web1", t1.Hostname)
	assert.Equal(t, "echo", t1.Command)
	assert.Equal(t, 30, t1.Timeout)
	assert.True(t, t1.HasTimeout)
	assert.Equal(t, 2, t1.OnSuccess)
	assert.True(t, t1.HasOnSucc)

	t2 := f.Tasks[2]
	assert.True(t, t2.HasReturn)
	assert.Equal(t, 0, t2.Return)
}

func TestParse_TasksList(t *testing.T) {
	src := `task=parallel
tasks=2,3, 4
max_parallel=2
task=normal
command=true
task=normal
command=true
task=normal
command=true
`
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, f.Tasks[1].Tasks)
	assert.Equal(t, model.TypeParallel, f.Tasks[1].Type)
}

func TestParse_UnknownFieldErrors(t *testing.T) {
	src := "task=normal\nbogus_field=1\n"
	_, err := Parse(strings.NewReader(src))
	require.Error(t, err)
}

func TestParse_MalformedLineErrors(t *testing.T) {
	src := "this line has no equals sign\n"
	_, err := Parse(strings.NewReader(src))
	require.Error(t, err)
}

func TestParse_InvalidIntFieldErrors(t *testing.T) {
	src := "task=normal\ntimeout=notanumber\n"
	_, err := Parse(strings.NewReader(src))
	require.Error(t, err)
}
