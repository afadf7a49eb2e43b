package runner

import "time"

type Kind string

const (
	KindNoTests Kind = "no-tests"
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

// Outcome is the classified terminal result of one invocation.
// Port is zero when the invocation did not report a listener.
type Outcome struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message,omitempty"`
	Total   string `json:"total,omitempty"`
	Port    int    `json:"port,omitempty"`
}

type Result struct {
	Project  string        `json:"project"`
	Outcome  Outcome       `json:"outcome"`
	Admitted bool          `json:"admitted"`
	Canceled bool          `json:"canceled,omitempty"`
	Stdout   string        `json:"-"`
	Stderr   string        `json:"-"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}
