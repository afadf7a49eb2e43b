package runner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/acarl005/stripansi"
)

// Markers emitted by `ng test` / karma. They are the contract with the external
// test command and change only when the tool's output format changes.
const (
	NoInputsMarker = "No inputs were found"
	totalPrefix    = "TOTAL: "
)

var (
	totalFailedRe  = regexp.MustCompile(`TOTAL: \d+ FAILED`)
	zeroExecutedRe = regexp.MustCompile(`Executed 0 of 0\b|TOTAL: 0 SUCCESS`)
	portRe         = regexp.MustCompile(`(?:localhost|127\.0\.0\.1|0\.0\.0\.0):(\d+)`)

	serverErrorMarkers = []string{
		"ERROR [karma-server]",
		"[karma-server]: Server start failed",
		"Error: listen EADDRINUSE",
	}
)

type classifyInput struct {
	exitedWithError bool
	errorMessage    string
	stdout          string
}

// Rules are evaluated in order; the first non-nil outcome wins.
var classifyRules = []func(in classifyInput) *Outcome{
	ruleNoInputs,
	ruleZeroExecuted,
	ruleSuccess,
}

// Classify turns the raw output of a finished test invocation into an Outcome.
func Classify(exitedWithError bool, errorMessage, stdout string) Outcome {
	in := classifyInput{
		exitedWithError: exitedWithError,
		errorMessage:    stripansi.Strip(errorMessage),
		stdout:          stripansi.Strip(stdout),
	}
	for _, rule := range classifyRules {
		if o := rule(in); o != nil {
			return *o
		}
	}
	return Outcome{
		Kind:    KindFailure,
		Message: in.stdout + in.errorMessage,
	}
}

func ruleNoInputs(in classifyInput) *Outcome {
	if !strings.Contains(strings.ToLower(in.errorMessage), strings.ToLower(NoInputsMarker)) {
		return nil
	}
	return &Outcome{Kind: KindNoTests, Message: "this project doesn't have any tests"}
}

func ruleZeroExecuted(in classifyInput) *Outcome {
	if !zeroExecutedRe.MatchString(in.stdout) || totalFailedRe.MatchString(in.stdout) {
		return nil
	}
	return &Outcome{Kind: KindNoTests, Message: "no tests were executed"}
}

func ruleSuccess(in classifyInput) *Outcome {
	if in.exitedWithError && (totalFailedRe.MatchString(in.stdout) || hasServerError(in.stdout)) {
		return nil
	}
	total := ParseTotal(in.stdout)
	msg := "tests passed"
	if total != "" {
		msg = fmt.Sprintf("tests passed (%s)", total)
	}
	return &Outcome{
		Kind:    KindSuccess,
		Message: msg,
		Total:   total,
		Port:    ExtractPort(in.stdout),
	}
}

func hasServerError(stdout string) bool {
	for _, m := range serverErrorMarkers {
		if strings.Contains(stdout, m) {
			return true
		}
	}
	return false
}

// ParseTotal returns the text after the last "TOTAL: " up to the end of that
// line, or "" when the marker is absent.
func ParseTotal(stdout string) string {
	i := strings.LastIndex(stdout, totalPrefix)
	if i < 0 {
		return ""
	}
	rest := stdout[i+len(totalPrefix):]
	if nl := strings.IndexAny(rest, "\r\n"); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}

// ExtractPort returns the first loopback or any-interface port mentioned in
// stdout, or 0.
func ExtractPort(stdout string) int {
	m := portRe.FindStringSubmatch(stdout)
	if m == nil {
		return 0
	}
	port, err := strconv.Atoi(m[1])
	if err != nil || port <= 0 || port > 65535 {
		return 0
	}
	return port
}
