package runner

import (
	"context"
	"errors"
	"fmt"
	"os"

	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// KillPortListeners force-kills every process (other than this one) holding a
// listening socket on port. Finding nothing bound is not an error.
func KillPortListeners(ctx context.Context, port int) (int, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return 0, fmt.Errorf("listing connections: %w", err)
	}
	pids := listenerPIDs(conns, port, int32(os.Getpid()))

	killed := 0
	var errs []error
	for _, pid := range pids {
		p, err := process.NewProcessWithContext(ctx, pid)
		if err != nil {
			errs = append(errs, fmt.Errorf("pid %d: %w", pid, err))
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("killing pid %d: %w", pid, err))
			continue
		}
		killed++
	}
	return killed, errors.Join(errs...)
}

func listenerPIDs(conns []gnet.ConnectionStat, port int, self int32) []int32 {
	seen := make(map[int32]bool)
	var pids []int32
	for _, c := range conns {
		if c.Status != "LISTEN" || c.Laddr.Port != uint32(port) {
			continue
		}
		if c.Pid <= 0 || c.Pid == self || seen[c.Pid] {
			continue
		}
		seen[c.Pid] = true
		pids = append(pids, c.Pid)
	}
	return pids
}
