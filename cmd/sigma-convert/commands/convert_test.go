package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOrDefault(t *testing.T) {
	assert.Equal(t, "fallback", envOrDefault("fallback", "SIGMA_CONVERT_TEST_UNSET"))

	t.Setenv("SIGMA_CONVERT_TEST_VAR", "from-env")
	assert.Equal(t, "from-env", envOrDefault("fallback", "SIGMA_CONVERT_TEST_VAR"))

	// Action inputs win over plain environment variables.
	t.Setenv("INPUT_SIGMA_CONVERT_TEST_VAR", "from-input")
	assert.Equal(t, "from-input", envOrDefault("fallback", "SIGMA_CONVERT_TEST_VAR"))
}

func TestEnvOrDefaultFirstMatch(t *testing.T) {
	t.Setenv("SECOND_CHOICE", "second")
	assert.Equal(t, "second", envOrDefault("def", "FIRST_CHOICE", "SECOND_CHOICE"))

	t.Setenv("FIRST_CHOICE", "first")
	assert.Equal(t, "first", envOrDefault("def", "FIRST_CHOICE", "SECOND_CHOICE"))
}

func TestEnvBool(t *testing.T) {
	assert.True(t, envBool("SIGMA_CONVERT_TEST_BOOL_UNSET", true))
	assert.False(t, envBool("SIGMA_CONVERT_TEST_BOOL_UNSET", false))

	t.Setenv("SIGMA_CONVERT_TEST_BOOL", "TRUE")
	assert.True(t, envBool("SIGMA_CONVERT_TEST_BOOL", false))

	t.Setenv("SIGMA_CONVERT_TEST_BOOL", "no")
	assert.False(t, envBool("SIGMA_CONVERT_TEST_BOOL", true))
}
