// Package ledger records per-project outcomes for one run and derives the
// categorized summary and exit code from them.
package ledger

import (
	"sync"

	"github.com/codebeauty/paratest/internal/runner"
)

type Ledger struct {
	mu     sync.Mutex
	byName map[string]runner.Kind
}

func New() *Ledger {
	return &Ledger{byName: make(map[string]runner.Kind)}
}

// Record files project under kind. A project is recorded at most once; later
// calls for the same project are ignored and report false.
func (l *Ledger) Record(project string, kind runner.Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byName[project]; ok {
		return false
	}
	l.byName[project] = kind
	return true
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byName)
}

// Summary is the categorized view of a ledger. Every list follows the order
// of the project list it was built from.
type Summary struct {
	NoTests    []string `json:"noTests"`
	Succeeded  []string `json:"succeeded"`
	Failed     []string `json:"failed"`
	Unfinished []string `json:"unfinished"`
}

// Summary categorizes all against the recorded outcomes. Projects with no
// recorded outcome are unfinished.
func (l *Ledger) Summary(all []string) Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{
		NoTests:    []string{},
		Succeeded:  []string{},
		Failed:     []string{},
		Unfinished: []string{},
	}
	for _, p := range all {
		kind, ok := l.byName[p]
		switch {
		case !ok:
			s.Unfinished = append(s.Unfinished, p)
		case kind == runner.KindNoTests:
			s.NoTests = append(s.NoTests, p)
		case kind == runner.KindSuccess:
			s.Succeeded = append(s.Succeeded, p)
		default:
			s.Failed = append(s.Failed, p)
		}
	}
	return s
}

// OK reports whether every project either passed or had no tests.
func (s Summary) OK() bool {
	return len(s.Failed) == 0 && len(s.Unfinished) == 0
}

// ExitCode is 0 when every project passed or had no tests, 1 otherwise.
func (s Summary) ExitCode() int {
	if s.OK() {
		return 0
	}
	return 1
}
