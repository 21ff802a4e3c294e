package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSteps(t *testing.T) {
	steps, err := parseSteps(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, steps)

	steps, err = parseSteps([]string{" 3 "})
	require.NoError(t, err)
	assert.Equal(t, 3, steps)

	_, err = parseSteps([]string{"0"})
	assert.Error(t, err)
	_, err = parseSteps([]string{"two"})
	assert.Error(t, err)
}

func TestParseVersionAndTarget(t *testing.T) {
	v, err := parseVersion("2")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	_, err = parseVersion("-1")
	assert.Error(t, err)

	target, err := parseTarget("3")
	require.NoError(t, err)
	assert.Equal(t, uint(3), target)
	_, err = parseTarget("latest")
	assert.Error(t, err)
}

func TestDatabaseURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	_, err := databaseURL()
	assert.Error(t, err)

	t.Setenv("DB_URL", "postgres://u:p@localhost:5432/peg_league?sslmode=disable")
	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "")
	got, err := databaseURL()
	require.NoError(t, err)
	assert.True(t, strings.Contains(got, "disable_prepared_binary_result=yes"))

	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "false")
	got, err = databaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/peg_league?sslmode=disable", got)

	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "maybe")
	_, err = databaseURL()
	assert.Error(t, err)
}

func TestCommandsHaveUsage(t *testing.T) {
	for name, cmd := range commands {
		assert.True(t, strings.HasPrefix(cmd.usage, name), "usage for %s", name)
		assert.NotNil(t, cmd.run)
	}
}
