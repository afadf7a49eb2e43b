package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/codebeauty/paratest/internal/controller"
)

// Run is a persisted run directory. Manifest is nil when run.json does not
// parse.
type Run struct {
	Name     string
	Path     string
	Mtime    time.Time
	Manifest *Manifest
}

// Started is the recorded start time, or the directory mtime for runs whose
// manifest is unreadable.
func (r Run) Started() time.Time {
	if r.Manifest != nil && !r.Manifest.StartedAt.IsZero() {
		return r.Manifest.StartedAt
	}
	return r.Mtime
}

// Failed reports whether the run ended with failures or was aborted.
func (r Run) Failed() bool {
	if r.Manifest == nil {
		return false
	}
	return r.Manifest.ExitCode != 0 || r.Manifest.State == string(controller.StateAborted)
}

// Passed counts projects that succeeded or had no tests.
func (r Run) Passed() int {
	if r.Manifest == nil {
		return 0
	}
	return len(r.Manifest.Summary.Succeeded) + len(r.Manifest.Summary.NoTests)
}

// LoadRuns lists directories under baseDir holding a run.json, newest first.
// Anything else in the output dir is left alone.
func LoadRuns(baseDir string) ([]Run, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading output dir: %w", err)
	}

	var runs []Run
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 || !entry.IsDir() {
			continue
		}
		path := filepath.Join(baseDir, entry.Name())
		if _, err := os.Stat(filepath.Join(path, "run.json")); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		run := Run{Name: entry.Name(), Path: path, Mtime: info.ModTime()}
		if m, err := ReadManifest(path); err == nil {
			run.Manifest = m
		}
		runs = append(runs, run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Started().After(runs[j].Started())
	})
	return runs, nil
}

// PruneOptions selects runs for removal.
type PruneOptions struct {
	Before     time.Time // only runs started before this
	KeepLast   int       // never prune the newest N runs
	KeepFailed bool      // never prune failed or aborted runs
}

// SelectPrunable filters runs (newest first, as LoadRuns returns them).
func SelectPrunable(runs []Run, opts PruneOptions) []Run {
	var out []Run
	for i, r := range runs {
		if i < opts.KeepLast {
			continue
		}
		if !r.Started().Before(opts.Before) {
			continue
		}
		if opts.KeepFailed && r.Failed() {
			continue
		}
		out = append(out, r)
	}
	return out
}

var durationUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"ms", time.Millisecond},
	{"s", time.Second},
	{"m", time.Minute},
	{"h", time.Hour},
	{"d", 24 * time.Hour},
	{"w", 7 * 24 * time.Hour},
}

// ParseDuration accepts ms, s, m, h, d and w suffixes. A bare number is days.
func ParseDuration(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("empty duration")
	}

	num, unit := input, 24*time.Hour
	for _, u := range durationUnits {
		if strings.HasSuffix(input, u.suffix) {
			num, unit = strings.TrimSuffix(input, u.suffix), u.unit
			break
		}
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", input, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid duration %q: negative", input)
	}
	return time.Duration(n * float64(unit)), nil
}
