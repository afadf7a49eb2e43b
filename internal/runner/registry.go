package runner

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
)

// PortKiller terminates whatever is listening on port and reports how many
// processes it killed.
type PortKiller func(ctx context.Context, port int) (int, error)

// Cleanup reports what a TerminateAll call attempted.
type Cleanup struct {
	Signaled    int
	PortsKilled int
	Errors      int
}

// Registry tracks the child processes and listener ports of one run so they
// can be torn down on abort.
type Registry struct {
	mu         sync.Mutex
	procs      map[*exec.Cmd]struct{}
	ports      []int
	terminated bool

	interrupt func(cmd *exec.Cmd) error
	killPort  PortKiller
	log       logrus.FieldLogger
}

func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		procs:     make(map[*exec.Cmd]struct{}),
		interrupt: interruptProcessGroup,
		killPort:  KillPortListeners,
		log:       log.WithField("component", "registry"),
	}
}

// SetPortKiller replaces the port cleanup strategy.
func (r *Registry) SetPortKiller(fn PortKiller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.killPort = fn
}

// Register records a started process. A process registered after
// TerminateAll is interrupted immediately.
func (r *Registry) Register(cmd *exec.Cmd) {
	r.mu.Lock()
	if !r.terminated {
		r.procs[cmd] = struct{}{}
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	if err := r.interrupt(cmd); err != nil {
		r.log.WithError(err).Warn("interrupting late process")
	}
}

// Release forgets a process that has exited.
func (r *Registry) Release(cmd *exec.Cmd) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.procs, cmd)
}

func (r *Registry) RegisterPort(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ports = append(r.ports, port)
}

func (r *Registry) Ports() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.ports...)
}

// Live returns the number of registered processes that have not exited.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

type cleanupAction struct {
	name string
	run  func(ctx context.Context) (int, error)
}

// TerminateAll interrupts every live process group and kills anything
// listening on a recorded port. Only the first call does work; failures are
// logged and never returned.
func (r *Registry) TerminateAll(ctx context.Context) Cleanup {
	r.mu.Lock()
	if r.terminated {
		r.mu.Unlock()
		return Cleanup{}
	}
	r.terminated = true
	var actions []cleanupAction
	for cmd := range r.procs {
		actions = append(actions, cleanupAction{
			name: "interrupt " + cmdLabel(cmd),
			run: func(context.Context) (int, error) {
				if err := r.interrupt(cmd); err != nil {
					return 0, err
				}
				return 1, nil
			},
		})
	}
	killPort := r.killPort
	for _, port := range r.ports {
		actions = append(actions, cleanupAction{
			name: fmt.Sprintf("kill listeners on port %d", port),
			run: func(ctx context.Context) (int, error) {
				return killPort(ctx, port)
			},
		})
	}
	nprocs := len(r.procs)
	r.procs = make(map[*exec.Cmd]struct{})
	r.ports = nil
	r.mu.Unlock()

	var c Cleanup
	for i, a := range actions {
		n, err := runCleanup(ctx, a)
		if err != nil {
			c.Errors++
			r.log.WithField("action", a.name).WithError(err).Warn("cleanup step failed")
			continue
		}
		if i < nprocs {
			c.Signaled += n
		} else {
			c.PortsKilled += n
		}
	}
	r.log.WithFields(logrus.Fields{
		"signaled":    c.Signaled,
		"portsKilled": c.PortsKilled,
		"errors":      c.Errors,
	}).Info("terminated in-flight work")
	return c
}

func runCleanup(ctx context.Context, a cleanupAction) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return a.run(ctx)
}

func cmdLabel(cmd *exec.Cmd) string {
	if cmd.Process == nil {
		return cmd.Path
	}
	return fmt.Sprintf("%s (pid %d)", cmd.Path, cmd.Process.Pid)
}
