// Command tasker is TASKER's entry point: parse CLI flags, hand off to
// the orchestrator, and translate its Result into a process exit code.
package main

import (
	"fmt"
	"os"

	"tasker/internal/cli"
	"tasker/internal/orchestrator"
)

func main() {
	cfg, err := cli.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(20)
	}

	result := orchestrator.Run(cfg, os.Stdout, os.Stderr)
	os.Exit(result.ExitCode)
}
