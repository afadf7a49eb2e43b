package output

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codebeauty/paratest/internal/runner"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
var multiDash = regexp.MustCompile(`-{2,}`)

// SafeName turns a project identifier into a file name component.
func SafeName(project string) string {
	s := unsafeChars.ReplaceAllString(project, "-")
	s = multiDash.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	if len(s) > 80 {
		s = strings.TrimRight(s[:80], "-")
	}
	if s == "" {
		return "project"
	}
	return s
}

func LogFileName(project string) string {
	return SafeName(project) + ".log"
}

func NewRunID() string {
	return uuid.NewString()
}

// RunDir creates <baseDir>/<timestamp>-<short run id>.
func RunDir(baseDir, runID string, now time.Time) (string, error) {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	dirName := fmt.Sprintf("%s-%s", now.Format("20060102-150405"), short)
	path := filepath.Join(baseDir, dirName)
	if err := os.MkdirAll(path, 0o700); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	return path, nil
}

// WriteLogs writes the captured output of every admitted invocation.
func WriteLogs(dir string, results []runner.Result) error {
	for _, r := range results {
		if !r.Admitted {
			continue
		}
		var b strings.Builder
		b.WriteString(r.Stdout)
		if r.Stderr != "" {
			b.WriteString("\n--- stderr ---\n")
			b.WriteString(r.Stderr)
		}
		if err := os.WriteFile(filepath.Join(dir, LogFileName(r.Project)), []byte(b.String()), 0o600); err != nil {
			return fmt.Errorf("writing log for %s: %w", r.Project, err)
		}
	}
	return nil
}

func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".paratest-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
