package runner

import (
	"fmt"
	"regexp"
	"strings"
)

type DiagCategory string

const (
	DiagBinaryMissing  DiagCategory = "binary_missing"
	DiagBrowserMissing DiagCategory = "browser_missing"
	DiagPortInUse      DiagCategory = "port_in_use"
	DiagModuleMissing  DiagCategory = "module_missing"
	DiagCompile        DiagCategory = "compile_error"
	DiagUnknownProject DiagCategory = "unknown_project"
)

type Diagnosis struct {
	Category   DiagCategory
	Message    string
	Suggestion string
}

func (d *Diagnosis) String() string {
	return fmt.Sprintf("%s\n%s", d.Message, d.Suggestion)
}

// Diagnose maps well-known failure output to a hint. It returns nil when
// nothing is recognised.
func Diagnose(project, output string) *Diagnosis {
	for _, check := range diagChecks {
		if d := check(project, output); d != nil {
			return d
		}
	}
	return nil
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

var diagChecks = []func(project, output string) *Diagnosis{
	checkBinaryMissing,
	checkUnknownProject,
	checkBrowserMissing,
	checkPortInUse,
	checkModuleMissing,
	checkCompile,
}

var (
	binaryNotFoundRe = regexp.MustCompile(`exec: "([^"]+)": executable file not found`)
	moduleNotFoundRe = regexp.MustCompile(`Cannot find module '([^']+)'`)
	tsErrorRe        = regexp.MustCompile(`error TS\d+:`)
	addrInUseRe      = regexp.MustCompile(`EADDRINUSE[^\n]*?:(\d+)`)
)

func checkBinaryMissing(_, output string) *Diagnosis {
	m := binaryNotFoundRe.FindStringSubmatch(output)
	if m == nil {
		return nil
	}
	return &Diagnosis{
		Category:   DiagBinaryMissing,
		Message:    fmt.Sprintf("Binary %q not found on PATH.", m[1]),
		Suggestion: fmt.Sprintf("Install %s or run from a workspace where it is available (npm ci).", m[1]),
	}
}

func checkUnknownProject(project, output string) *Diagnosis {
	patterns := []string{
		fmt.Sprintf("Project %q does not exist", project),
		fmt.Sprintf("Project '%s' does not exist", project),
		"could not be found in the workspace",
	}
	if !containsAny(output, patterns) {
		return nil
	}
	return &Diagnosis{
		Category:   DiagUnknownProject,
		Message:    fmt.Sprintf("Project %s is not defined in the workspace.", project),
		Suggestion: "Check the project name against angular.json.",
	}
}

func checkBrowserMissing(_, output string) *Diagnosis {
	patterns := []string{
		"No binary for ChromeHeadless browser",
		"No binary for Chrome browser",
		"Cannot start ChromeHeadless",
		"CHROME_BIN",
	}
	if !containsAny(output, patterns) {
		return nil
	}
	return &Diagnosis{
		Category:   DiagBrowserMissing,
		Message:    "The test browser could not be started.",
		Suggestion: "Install Chrome/Chromium or set CHROME_BIN to its path.",
	}
}

func checkPortInUse(_, output string) *Diagnosis {
	if !strings.Contains(output, "EADDRINUSE") {
		return nil
	}
	msg := "A port required by the test server is already in use."
	if m := addrInUseRe.FindStringSubmatch(output); m != nil {
		msg = fmt.Sprintf("Port %s required by the test server is already in use.", m[1])
	}
	return &Diagnosis{
		Category:   DiagPortInUse,
		Message:    msg,
		Suggestion: "Stop the process holding the port or lower --concurrency.",
	}
}

func checkModuleMissing(_, output string) *Diagnosis {
	m := moduleNotFoundRe.FindStringSubmatch(output)
	if m == nil && !strings.Contains(output, "Module not found") {
		return nil
	}
	msg := "A required module could not be resolved."
	if m != nil {
		msg = fmt.Sprintf("Module %q could not be resolved.", m[1])
	}
	return &Diagnosis{
		Category:   DiagModuleMissing,
		Message:    msg,
		Suggestion: "Run npm ci and check the project's import paths.",
	}
}

func checkCompile(project, output string) *Diagnosis {
	if !tsErrorRe.MatchString(output) {
		return nil
	}
	return &Diagnosis{
		Category:   DiagCompile,
		Message:    fmt.Sprintf("TypeScript compilation failed for %s.", project),
		Suggestion: "Fix the compiler errors above; no specs were run.",
	}
}
