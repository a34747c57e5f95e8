package main

import (
	"fmt"
	"os"

	"github.com/temirov/subssh/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main runs subssh and exits with status 1 on any fatal error.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
