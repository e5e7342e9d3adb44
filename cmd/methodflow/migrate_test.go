package main

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrate_Usage(t *testing.T) {
	code, stdout, _ := runCLI("migrate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stdout, "Usage: methodflow migrate")

	code, stdout, _ = runCLI("migrate", "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "status")
}

func TestRunMigrate_UpThenStatus(t *testing.T) {
	cfgPath := writeTestConfig(t)

	code, _, stderr := runCLI("migrate", "up", "--config", cfgPath)
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := runCLI("migrate", "--config", cfgPath, "status")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "create_registered_methods")
	assert.Contains(t, stdout, "Applied")

	code, _, stderr = runCLI("migrate", "--config", cfgPath, "steps")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "steps requires exactly one argument")
}

func TestRunMigrate_UnsupportedDriver(t *testing.T) {
	code, _, stderr := runCLI("migrate", "--db-type", "oracle", "--db-url", "oracle://x", "up")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Failed to create migrator")
}

func TestParseInterleaved(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg := fs.String("config", "", "")

	rest, err := parseInterleaved(fs, []string{"steps", "--config", "c.yaml", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"steps", "2"}, rest)
	assert.Equal(t, "c.yaml", *cfg)
}
