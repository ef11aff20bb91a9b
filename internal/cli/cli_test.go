package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateThenReset(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("STORE_BACKEND", "json")
	t.Setenv("DATA_FILE", filepath.Join(t.TempDir(), "data.json"))

	_, err := run(t, "migrate")
	require.NoError(t, err)

	out, err := run(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "re-seeded")
}

func TestResetNeedsConfirmation(t *testing.T) {
	_, err := run(t, "reset")
	assert.ErrorContains(t, err, "--yes")
}

func TestMigrateRejectsBadBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	_, err := run(t, "migrate")
	assert.ErrorContains(t, err, "STORE_BACKEND")
}
