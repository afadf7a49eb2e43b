package output

import (
	"fmt"
	"path/filepath"
	"strings"
)

// BuildSummary renders a markdown summary of a persisted run.
func BuildSummary(m *Manifest) string {
	var b strings.Builder

	b.WriteString("# Test Run Summary\n\n")
	fmt.Fprintf(&b, "**Run:** %s\n", m.RunID)
	if m.Workspace != "" {
		fmt.Fprintf(&b, "**Workspace:** %s\n", m.Workspace)
	}
	fmt.Fprintf(&b, "**State:** %s\n", m.State)
	if m.AbortReason != "" {
		fmt.Fprintf(&b, "**Abort reason:** %s\n", m.AbortReason)
	}
	fmt.Fprintf(&b, "**Concurrency:** %d, continue on failure: %t\n",
		m.Config.Concurrency, m.Config.ContinueOnFailure)
	fmt.Fprintf(&b, "**Duration:** %s\n", m.Duration)

	b.WriteString("\n## Results\n\n")
	b.WriteString("| Project | Status | Total | Duration |\n")
	b.WriteString("|---------|--------|-------|----------|\n")
	for _, r := range m.Results {
		fmt.Fprintf(&b, "| %s %s | %s | %s | %s |\n",
			statusIcon(r.Status), r.Project, r.Status, dashIfEmpty(r.Total), dashIfEmpty(r.Duration))
	}

	writeList(&b, "No tests", m.Summary.NoTests)
	writeList(&b, "Succeeded", m.Summary.Succeeded)
	writeList(&b, "Failed", m.Summary.Failed)
	writeList(&b, "Unfinished", m.Summary.Unfinished)

	if m.ExitCode == 0 {
		b.WriteString("\n" + MsgAllPassed + "\n")
	} else {
		b.WriteString("\n" + MsgSomeFailed + "\n")
	}
	return b.String()
}

func WriteSummary(dir, content string) error {
	return AtomicWrite(filepath.Join(dir, "summary.md"), []byte(content), 0o600)
}

func writeList(b *strings.Builder, title string, projects []string) {
	if len(projects) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s (%d)\n\n", title, len(projects))
	for _, p := range projects {
		fmt.Fprintf(b, "- %s\n", p)
	}
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func statusIcon(status string) string {
	switch status {
	case "success":
		return "✓"
	case "no-tests":
		return "○"
	case StatusUnfinished:
		return "…"
	default:
		return "✗"
	}
}
