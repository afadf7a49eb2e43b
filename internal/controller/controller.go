// Package controller drives one test run: it feeds the project list through
// the bounded runner, records each outcome, and aborts the whole run on the
// first failure unless told to continue.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codebeauty/paratest/internal/adapter"
	"github.com/codebeauty/paratest/internal/ledger"
	"github.com/codebeauty/paratest/internal/runner"
)

type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

const cleanupTimeout = 15 * time.Second

var (
	ErrInvalidConcurrency = errors.New("concurrency must be a positive integer")
	ErrAlreadyRun         = errors.New("controller has already run")
)

type Config struct {
	Concurrency       int
	ContinueOnFailure bool
}

// Diagnostic is the failure output of one project, with a hint when the
// output matches a known problem.
type Diagnostic struct {
	Project string            `json:"project"`
	Output  string            `json:"output"`
	Hint    *runner.Diagnosis `json:"hint,omitempty"`
}

type Report struct {
	State       State           `json:"state"`
	AbortReason string          `json:"abortReason,omitempty"`
	Projects    []string        `json:"projects"`
	Summary     ledger.Summary  `json:"summary"`
	Results     []runner.Result `json:"results"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
	Cleanup     runner.Cleanup  `json:"cleanup"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt time.Time       `json:"completedAt"`
}

// ExitCode is non-zero when the run aborted or any project did not end in
// succeeded or no-tests.
func (r *Report) ExitCode() int {
	if r.State == StateAborted {
		return 1
	}
	return r.Summary.ExitCode()
}

// OutcomeFunc is called once for every outcome the controller records.
type OutcomeFunc func(result runner.Result)

type Controller struct {
	cfg      Config
	runner   *runner.Runner
	registry *runner.Registry
	ledger   *ledger.Ledger
	log      logrus.FieldLogger

	onOutcome OutcomeFunc

	mu          sync.Mutex
	state       State
	started     bool
	abortReason string
	cancel      context.CancelFunc
	cleanup     runner.Cleanup
	failures    map[string]string
}

// New validates cfg and wires a fresh registry, runner and ledger for one run.
func New(cfg Config, a adapter.Adapter, log logrus.FieldLogger) (*Controller, error) {
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, cfg.Concurrency)
	}
	if a == nil {
		return nil, errors.New("no test command adapter configured")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	reg := runner.NewRegistry(log)
	c := &Controller{
		cfg:      cfg,
		registry: reg,
		runner:   runner.New(cfg.Concurrency, a, reg, log),
		ledger:   ledger.New(),
		log:      log.WithField("component", "controller"),
		state:    StateRunning,
		failures: make(map[string]string),
	}
	c.runner.SetResultFunc(c.handle)
	return c, nil
}

func (c *Controller) Runner() *runner.Runner     { return c.runner }
func (c *Controller) Registry() *runner.Registry { return c.registry }

func (c *Controller) SetOutcomeFunc(fn OutcomeFunc) {
	c.onOutcome = fn
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run executes every project and returns the final report. A controller runs
// once.
func (c *Controller) Run(ctx context.Context, projects []string, params adapter.RunParams) (*Report, error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	startedAt := time.Now()
	c.log.WithFields(logrus.Fields{
		"projects":          len(projects),
		"concurrency":       c.cfg.Concurrency,
		"continueOnFailure": c.cfg.ContinueOnFailure,
	}).Info("dispatching")

	results := c.runner.Run(runCtx, projects, params)

	c.mu.Lock()
	if c.state == StateRunning {
		if err := ctx.Err(); err != nil {
			c.abortLocked(fmt.Sprintf("interrupted: %v", err))
		} else {
			c.state = StateCompleted
		}
	}
	report := &Report{
		State:       c.state,
		AbortReason: c.abortReason,
		Projects:    projects,
		Summary:     c.ledger.Summary(projects),
		Results:     results,
		Cleanup:     c.cleanup,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
	}
	for _, p := range report.Summary.Failed {
		out := c.failures[p]
		report.Diagnostics = append(report.Diagnostics, Diagnostic{
			Project: p,
			Output:  out,
			Hint:    runner.Diagnose(p, out),
		})
	}
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"state":      report.State,
		"succeeded":  len(report.Summary.Succeeded),
		"noTests":    len(report.Summary.NoTests),
		"failed":     len(report.Summary.Failed),
		"unfinished": len(report.Summary.Unfinished),
	}).Info("run finished")
	return report, nil
}

// handle is the runner's completion callback. Completions that arrive after
// an abort are dropped so those projects stay unfinished.
func (c *Controller) handle(res runner.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning || res.Canceled {
		return
	}
	c.ledger.Record(res.Project, res.Outcome.Kind)
	if res.Outcome.Kind == runner.KindFailure {
		c.failures[res.Project] = res.Outcome.Message
	}
	if c.onOutcome != nil {
		c.onOutcome(res)
	}

	if res.Outcome.Kind == runner.KindFailure && !c.cfg.ContinueOnFailure {
		c.abortLocked(fmt.Sprintf("%s failed", res.Project))
	}
}

func (c *Controller) abortLocked(reason string) {
	c.state = StateAborted
	c.abortReason = reason
	c.log.WithField("reason", reason).Warn("aborting run")
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	c.cleanup = c.registry.TerminateAll(ctx)
}
