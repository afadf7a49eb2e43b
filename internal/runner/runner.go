package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/codebeauty/paratest/internal/adapter"
)

var injectedEnv = []string{
	"CI=true",
	"NG_CLI_ANALYTICS=false",
}

const (
	maxHeadBytes     = 1 * 1024 * 1024 // kept from the start of each stream
	maxTailBytes     = 4 * 1024 * 1024 // kept from the end; result summaries live here
	defaultWaitDelay = 5 * time.Second
)

type ProgressFunc func(project, event string, result *Result)

// ResultFunc receives each invocation's result as soon as it completes, before
// its concurrency slot is released.
type ResultFunc func(result Result)

type Runner struct {
	maxParallel int64
	adapter     adapter.Adapter
	registry    *Registry
	onProgress  ProgressFunc
	onResult    ResultFunc
	waitDelay   time.Duration
	log         logrus.FieldLogger
}

// New returns a runner that keeps at most maxParallel invocations in flight.
// Callers validate maxParallel; values below one are treated as one.
func New(maxParallel int, a adapter.Adapter, registry *Registry, log logrus.FieldLogger) *Runner {
	if maxParallel < 1 {
		maxParallel = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if registry == nil {
		registry = NewRegistry(log)
	}
	return &Runner{
		maxParallel: int64(maxParallel),
		adapter:     a,
		registry:    registry,
		waitDelay:   defaultWaitDelay,
		log:         log.WithField("component", "runner"),
	}
}

func (r *Runner) SetProgressFunc(fn ProgressFunc) {
	r.onProgress = fn
}

func (r *Runner) SetResultFunc(fn ResultFunc) {
	r.onResult = fn
}

// SetWaitDelay bounds how long an interrupted child may keep running before
// it is killed.
func (r *Runner) SetWaitDelay(d time.Duration) {
	r.waitDelay = d
}

func (r *Runner) Registry() *Registry { return r.registry }

func Env() []string {
	return append(os.Environ(), injectedEnv...)
}

// Run dispatches one invocation per project. Projects are admitted in input
// order as slots free up; cancelling ctx stops admission and interrupts
// in-flight children. Results are indexed like projects; entries that were
// never admitted have Admitted == false.
func (r *Runner) Run(ctx context.Context, projects []string, params adapter.RunParams) []Result {
	results := make([]Result, len(projects))
	for i, p := range projects {
		results[i] = Result{Project: p}
	}

	if params.Env == nil {
		params.Env = Env()
	}

	sem := semaphore.NewWeighted(r.maxParallel)
	var g errgroup.Group

	for i, project := range projects {
		if err := sem.Acquire(ctx, 1); err != nil {
			r.log.WithField("pending", len(projects)-i).Debug("admission stopped")
			break
		}
		// A slot may be granted after cancellation; do not start new work.
		if ctx.Err() != nil {
			sem.Release(1)
			r.log.WithField("pending", len(projects)-i).Debug("admission stopped")
			break
		}

		g.Go(func() error {
			defer sem.Release(1)

			res := r.execProject(ctx, project, params)
			results[i] = res
			if r.onResult != nil {
				r.onResult(res)
			}
			return nil
		})
	}

	g.Wait()
	return results
}

func (r *Runner) execProject(ctx context.Context, project string, params adapter.RunParams) Result {
	start := time.Now()
	log := r.log.WithField("project", project)

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if params.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, params.Timeout)
	}
	defer cancel()

	inv := r.adapter.BuildInvocation(project, params)

	cmd := exec.CommandContext(runCtx, inv.Binary, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = params.Env
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return interruptProcessGroup(cmd) }
	cmd.WaitDelay = r.waitDelay

	stdoutBuf := newLimitedWriter(maxHeadBytes, maxTailBytes)
	stderrBuf := newLimitedWriter(maxHeadBytes, maxTailBytes)
	cmd.Stdout = stdoutBuf
	cmd.Stderr = stderrBuf

	result := Result{Project: project, Admitted: true}

	if err := cmd.Start(); err != nil {
		result.Duration = time.Since(start)
		result.ExitCode = -1
		result.Canceled = ctx.Err() != nil
		result.Outcome = Outcome{
			Kind:    KindFailure,
			Message: fmt.Sprintf("starting %s: %v", inv.Binary, err),
		}
		log.WithError(err).Debug("start failed")
		return result
	}
	r.registry.Register(cmd)

	if r.onProgress != nil {
		r.onProgress(project, "started", nil)
	}
	log.WithField("pid", cmd.Process.Pid).Debug("started")

	waitErr := cmd.Wait()
	r.registry.Release(cmd)

	result.Duration = time.Since(start)
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}

	switch {
	case ctx.Err() != nil:
		result.Canceled = true
		result.Outcome = Outcome{Kind: KindFailure, Message: "canceled"}
		killProcessGroup(cmd)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.Outcome = Outcome{
			Kind:    KindFailure,
			Message: fmt.Sprintf("timed out after %s\n%s%s", params.Timeout, result.Stdout, result.Stderr),
		}
		killProcessGroup(cmd)
	default:
		var errMsg string
		if waitErr != nil {
			errMsg = commandFailedMessage(inv, waitErr, result.Stderr)
		}
		result.Outcome = Classify(waitErr != nil, errMsg, result.Stdout)
	}

	if result.Outcome.Port != 0 {
		r.registry.RegisterPort(result.Outcome.Port)
		log.WithField("port", result.Outcome.Port).Debug("listener reported")
	}

	if r.onProgress != nil {
		r.onProgress(project, "completed", &result)
	}
	log.WithFields(logrus.Fields{
		"kind":     result.Outcome.Kind,
		"exitCode": result.ExitCode,
		"duration": result.Duration.Round(time.Millisecond),
	}).Debug("completed")

	return result
}

// commandFailedMessage mirrors the shape of a failed exec error: the command
// line, the wait error, then whatever the child wrote to stderr.
func commandFailedMessage(inv adapter.Invocation, waitErr error, stderr string) string {
	cmdline := strings.TrimSpace(inv.Binary + " " + strings.Join(inv.Args, " "))
	return fmt.Sprintf("Command failed: %s (%v)\n%s", cmdline, waitErr, stderr)
}

// limitedWriter keeps the first headMax and the last tailMax bytes of a
// stream and drops the middle. Karma prints its TOTAL line last, so the tail
// must survive however long the output gets.
type limitedWriter struct {
	head    bytes.Buffer
	tail    []byte
	headMax int
	tailMax int
	dropped int64
}

func newLimitedWriter(headMax, tailMax int) *limitedWriter {
	return &limitedWriter{headMax: headMax, tailMax: tailMax}
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if room := w.headMax - w.head.Len(); room > 0 {
		take := min(room, len(p))
		w.head.Write(p[:take])
		p = p[take:]
	}
	if len(p) == 0 {
		return n, nil
	}
	w.tail = append(w.tail, p...)
	// Compact lazily so each byte is copied a bounded number of times.
	if len(w.tail) > 2*w.tailMax {
		drop := len(w.tail) - w.tailMax
		w.dropped += int64(drop)
		w.tail = append(w.tail[:0], w.tail[drop:]...)
	}
	return n, nil
}

func (w *limitedWriter) Truncated() bool {
	return w.dropped > 0 || len(w.tail) > w.tailMax
}

func (w *limitedWriter) String() string {
	tail, dropped := w.tail, w.dropped
	if len(tail) > w.tailMax {
		dropped += int64(len(tail) - w.tailMax)
		tail = tail[len(tail)-w.tailMax:]
	}
	if dropped == 0 {
		return w.head.String() + string(tail)
	}
	return fmt.Sprintf("%s\n[output truncated: %d bytes omitted]\n%s", w.head.String(), dropped, tail)
}
