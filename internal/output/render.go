package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/codebeauty/paratest/internal/controller"
	"github.com/codebeauty/paratest/internal/ledger"
	"github.com/codebeauty/paratest/internal/tui"
)

const (
	MsgAllPassed  = "All tests completed successfully"
	MsgSomeFailed = "Some tests failed"
)

// maxDiagnosticOutput caps how much of a failed project's output is echoed
// to the terminal; the full text is in the project log.
const maxDiagnosticOutput = 8 * 1024

// PrintReport writes the terminal summary for a finished run. An aborted run
// dumps the failure diagnostics before the summary.
func PrintReport(w io.Writer, report *controller.Report, styled bool) {
	if report.State == controller.StateAborted {
		PrintDiagnostics(w, report.Diagnostics, styled)
	}

	PrintTable(w, report, styled)
	printCategories(w, report.Summary, styled)

	fmt.Fprintln(w)
	if report.ExitCode() == 0 {
		fmt.Fprintln(w, paint(styled, tui.StyleSuccess.Render, MsgAllPassed))
	} else {
		fmt.Fprintln(w, paint(styled, tui.StyleError.Render, MsgSomeFailed))
	}
}

func PrintDiagnostics(w io.Writer, diags []controller.Diagnostic, styled bool) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s %s\n", paint(styled, tui.StyleError.Render, "✗ FAILED"), paint(styled, tui.StyleBold.Render, d.Project))
		fmt.Fprintln(w, truncateOutput(d.Output))
		if d.Hint != nil {
			fmt.Fprintf(w, "%s %s\n", paint(styled, tui.StyleWarning.Render, "hint:"), d.Hint.String())
		}
		fmt.Fprintln(w)
	}
}

// PrintTable renders one row per project in input order.
func PrintTable(w io.Writer, report *controller.Report, styled bool) {
	status := statusByProject(report.Summary)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if !styled {
		t.SetStyle(table.StyleLight)
	}
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Project", "Status", "Total", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
	})

	for _, r := range report.Results {
		st := status[r.Project]
		total, dur := "-", "-"
		if st != StatusUnfinished {
			if r.Outcome.Total != "" {
				total = r.Outcome.Total
			}
			dur = r.Duration.Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{r.Project, paintStatus(styled, st), total, dur})
	}

	s := report.Summary
	t.AppendFooter(table.Row{
		"", fmt.Sprintf("%d ok / %d failed", len(s.Succeeded)+len(s.NoTests), len(s.Failed)),
		fmt.Sprintf("%d unfinished", len(s.Unfinished)),
		report.CompletedAt.Sub(report.StartedAt).Round(time.Millisecond).String(),
	})
	t.Render()
}

func printCategories(w io.Writer, s ledger.Summary, styled bool) {
	section := func(title string, projects []string) {
		fmt.Fprintf(w, "\n%s (%d)\n", paint(styled, tui.StyleBold.Render, title), len(projects))
		for _, p := range projects {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
	section("No tests", s.NoTests)
	section("Succeeded", s.Succeeded)
	section("Failed", s.Failed)
	section("Unfinished", s.Unfinished)
}

func paintStatus(styled bool, status string) string {
	switch status {
	case "success":
		return paint(styled, tui.StyleSuccess.Render, status)
	case "no-tests":
		return paint(styled, tui.StyleMuted.Render, status)
	case StatusUnfinished:
		return paint(styled, tui.StyleWarning.Render, status)
	default:
		return paint(styled, tui.StyleError.Render, status)
	}
}

func paint(styled bool, render func(...string) string, s string) string {
	if !styled {
		return s
	}
	return render(s)
}

func truncateOutput(s string) string {
	s = strings.TrimRight(s, "\n")
	if len(s) <= maxDiagnosticOutput {
		return s
	}
	return "... (truncated, see project log)\n" + s[len(s)-maxDiagnosticOutput:]
}
