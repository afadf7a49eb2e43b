//go:build unix

package runner

import (
	"context"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebeauty/paratest/internal/adapter"
)

func TestRunnerClassifiesFailureAfterHugeOutput(t *testing.T) {
	script := `head -c 11000000 /dev/zero | tr '\0' x; echo; echo "TOTAL: 3 FAILED, 0 SUCCESS"; exit 1`
	a := &mockAdapter{binary: "/bin/sh", args: map[string][]string{
		"big": {"-c", script},
	}}
	r := newTestRunner(1, a)

	results := r.Run(context.Background(), []string{"big"}, adapter.RunParams{WorkDir: t.TempDir()})

	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, KindFailure, res.Outcome.Kind)
	assert.Contains(t, res.Outcome.Message, "TOTAL: 3 FAILED")
	assert.Contains(t, res.Stdout, "bytes omitted")
	assert.Less(t, len(res.Stdout), maxHeadBytes+maxTailBytes+128)
}

func TestKillProcessGroupAfterLeaderExit(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "sleep 30 >/dev/null 2>&1 & echo $!")
	setProcessGroup(cmd)
	out, err := cmd.Output()
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	require.NoError(t, err)

	require.NoError(t, killProcessGroup(cmd))

	assert.Eventually(t, func() bool {
		p, err := process.NewProcess(int32(pid))
		if err != nil {
			return true
		}
		status, err := p.Status()
		if err != nil {
			return true
		}
		return slices.Contains(status, process.Zombie)
	}, 5*time.Second, 50*time.Millisecond, "orphaned child in the group is killed")
}
