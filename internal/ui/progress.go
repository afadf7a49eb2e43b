package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/codebeauty/paratest/internal/tui"
)

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

const (
	statusPending = "pending"
	statusRunning = "running"
)

type projectStatus struct {
	status  string // pending, running or an outcome kind
	started time.Time
	elapsed time.Duration
}

// Progress reports per-project status lines. On a terminal it redraws a
// block of spinner lines; otherwise it prints one line per event.
type Progress struct {
	projects []string
	states   map[string]*projectStatus
	out      io.Writer
	mu       sync.Mutex
	isTTY    bool
	drawn    int
	done     chan struct{}
	stopOnce sync.Once
}

func NewProgress(projects []string) *Progress {
	return newProgress(projects, os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

func newProgress(projects []string, out io.Writer, isTTY bool) *Progress {
	states := make(map[string]*projectStatus, len(projects))
	for _, p := range projects {
		states[p] = &projectStatus{status: statusPending}
	}
	return &Progress{
		projects: projects,
		states:   states,
		out:      out,
		isTTY:    isTTY,
		done:     make(chan struct{}),
	}
}

func (p *Progress) Start(concurrency int) {
	fmt.Fprintf(p.out, "Testing %d project(s), %d at a time\n", len(p.projects), concurrency)
	if p.isTTY {
		go p.animate()
	}
}

func (p *Progress) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	if p.isTTY {
		p.mu.Lock()
		p.clear()
		p.mu.Unlock()
	}
}

func (p *Progress) MarkRunning(project string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.states[project]; ok {
		s.status = statusRunning
		s.started = time.Now()
	}
	if !p.isTTY {
		fmt.Fprintf(p.out, "  started: %s\n", project)
	}
}

func (p *Progress) MarkDone(project, kind string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.states[project]
	if ok {
		s.status = kind
		if !s.started.IsZero() {
			s.elapsed = time.Since(s.started).Round(time.Second)
		}
	}
	if !p.isTTY {
		if ok && s.elapsed > 0 {
			fmt.Fprintf(p.out, "  %s: %s (%s)\n", kind, project, s.elapsed)
		} else {
			fmt.Fprintf(p.out, "  %s: %s\n", kind, project)
		}
	}
}

func (p *Progress) animate() {
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	frame := 0
	for {
		select {
		case <-p.done:
			return
		case <-tick.C:
			p.mu.Lock()
			p.clear()
			spinner := spinnerFrames[frame%len(spinnerFrames)]
			for _, name := range p.projects {
				fmt.Fprintln(p.out, renderLine(name, p.states[name], spinner))
			}
			p.drawn = len(p.projects)
			frame++
			p.mu.Unlock()
		}
	}
}

// clear erases the previously drawn block. Caller holds mu.
func (p *Progress) clear() {
	for ; p.drawn > 0; p.drawn-- {
		fmt.Fprint(p.out, "\033[A\033[2K")
	}
}

func renderLine(name string, s *projectStatus, spinner string) string {
	switch s.status {
	case statusPending:
		return fmt.Sprintf(" %s %-30s waiting", tui.StatusIcon(statusPending), name)
	case statusRunning:
		return fmt.Sprintf(" %s %-30s running  %s", spinner, name, time.Since(s.started).Round(time.Second))
	case "success":
		return fmt.Sprintf(" %s %-30s passed   %s", tui.StatusIcon(s.status), name, s.elapsed)
	case "no-tests":
		return fmt.Sprintf(" %s %-30s no tests", tui.StatusIcon(s.status), name)
	case "failure":
		return fmt.Sprintf(" %s %-30s failed   %s", tui.StatusIcon(s.status), name, s.elapsed)
	default:
		return fmt.Sprintf(" - %-30s %s", name, s.status)
	}
}
