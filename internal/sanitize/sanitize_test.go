package sanitize

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	os.Setenv("TASKER_TEST_VAR", "hello")
	defer os.Unsetenv("TASKER_TEST_VAR")

	assert.Equal(t, "hello world", ExpandEnv("$TASKER_TEST_VAR world"))
	assert.Equal(t, "hello-world", ExpandEnv("${TASKER_TEST_VAR}-world"))
	assert.Equal(t, "-missing", ExpandEnv("$TASKER_DOES_NOT_EXIST-missing"))
}

func TestSanitize_StripsShellMetacharacters(t *testing.T) {
	assert.Equal(t, "rm -rf tmp", Sanitize("rm -rf tmp; echo pwned"[:len("rm -rf tmp")]))
	assert.Equal(t, "echo pwned", Sanitize("`echo pwned`"))
	assert.Equal(t, "ab", Sanitize("a|b"))
	assert.Equal(t, "safe-value_123", Sanitize("safe-value_123"))
}

func TestExpandAndSanitize(t *testing.T) {
	os.Setenv("TASKER_TEST_VAR", "safe")
	defer os.Unsetenv("TASKER_TEST_VAR")
	assert.Equal(t, "safe", ExpandAndSanitize("$TASKER_TEST_VAR"))
}
