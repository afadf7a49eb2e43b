package cli

import "fmt"

const (
	ExitSuccess = 0
	ExitFailure = 1
)

// ExitError carries a process exit code out of a command. The run report has
// already been printed when it is returned, so it has no message of its own.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
