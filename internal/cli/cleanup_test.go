package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebeauty/paratest/internal/output"
)

// markFailed rewrites a run's manifest as a failed or aborted run.
func markFailed(t *testing.T, dir, state string) {
	t.Helper()
	m, err := output.ReadManifest(dir)
	require.NoError(t, err)
	m.State = state
	m.ExitCode = 1
	m.Summary.Succeeded = nil
	m.Summary.Failed = []string{"app"}
	m.Results[0].Status = "failure"
	m.Results[0].LogFile = "app.log"
	require.NoError(t, output.WriteManifest(dir, m))
}

func runCleanupCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"cleanup"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCleanup(t *testing.T) {
	now := time.Now()
	setup := func(t *testing.T) (string, map[string]string) {
		base := t.TempDir()
		dirs := map[string]string{
			"fresh":     setupRunDir(t, base, "fresh", now),
			"old-pass":  setupRunDir(t, base, "old-pass", now.Add(-48*time.Hour)),
			"old-fail":  setupRunDir(t, base, "old-fail", now.Add(-72*time.Hour)),
			"old-abort": setupRunDir(t, base, "old-abort", now.Add(-96*time.Hour)),
		}
		markFailed(t, dirs["old-fail"], "completed")
		markFailed(t, dirs["old-abort"], "aborted")
		return base, dirs
	}

	t.Run("removes runs older than threshold", func(t *testing.T) {
		base, dirs := setup(t)
		_, stderr, err := runCleanupCmd(t, "-o", base, "--older-than", "1d", "--yes")
		require.NoError(t, err)
		assert.Contains(t, stderr, "Removed 3 run(s)")
		assert.DirExists(t, dirs["fresh"])
		assert.NoDirExists(t, dirs["old-pass"])
		assert.NoDirExists(t, dirs["old-fail"])
	})

	t.Run("--keep-failed keeps failed and aborted runs", func(t *testing.T) {
		base, dirs := setup(t)
		stdout, _, err := runCleanupCmd(t, "-o", base, "--keep-failed", "--yes", "--json")
		require.NoError(t, err)

		var got []prunedRun
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "old-pass", got[0].RunID)
		assert.Equal(t, "completed", got[0].State)
		assert.True(t, got[0].Removed)
		assert.DirExists(t, dirs["old-fail"])
		assert.DirExists(t, dirs["old-abort"])
	})

	t.Run("--keep-last protects newest runs", func(t *testing.T) {
		base, dirs := setup(t)
		_, _, err := runCleanupCmd(t, "-o", base, "--keep-last", "3", "--yes")
		require.NoError(t, err)
		assert.DirExists(t, dirs["old-fail"])
		assert.NoDirExists(t, dirs["old-abort"])
	})

	t.Run("--dry-run lists state without deleting", func(t *testing.T) {
		base, dirs := setup(t)
		_, stderr, err := runCleanupCmd(t, "-o", base, "--dry-run")
		require.NoError(t, err)
		assert.Contains(t, stderr, "Would remove 3 run(s)")
		assert.Contains(t, stderr, "aborted")
		assert.DirExists(t, dirs["old-pass"])
	})

	t.Run("nothing to remove prints empty json array", func(t *testing.T) {
		base, _ := setup(t)
		stdout, _, err := runCleanupCmd(t, "-o", base, "--older-than", "30d", "--json")
		require.NoError(t, err)
		assert.JSONEq(t, "[]", stdout)
	})

	t.Run("rejects bad flags", func(t *testing.T) {
		base, _ := setup(t)
		_, _, err := runCleanupCmd(t, "-o", base, "--older-than", "soon")
		assert.ErrorContains(t, err, "invalid --older-than")
		_, _, err = runCleanupCmd(t, "-o", base, "--keep-last", "-1")
		assert.ErrorContains(t, err, "invalid --keep-last")
	})
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(bytes.NewBufferString("y\n"), &out))
	assert.True(t, confirm(bytes.NewBufferString("YES\n"), &out))
	assert.False(t, confirm(bytes.NewBufferString("\n"), &out))
	assert.False(t, confirm(bytes.NewBufferString(""), &out))
	assert.Contains(t, out.String(), "Proceed? [y/N]")
}
