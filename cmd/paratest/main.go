package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/codebeauty/paratest/internal/cli"
)

func main() {
	err := cli.Execute()
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
