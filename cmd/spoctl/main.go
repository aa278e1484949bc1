package main

import (
	"errors"
	"io"
	"os"

	"github.com/telekom/spoctl/pkg/spoctl/cmd"
	"github.com/telekom/spoctl/pkg/spoctl/command"
	"github.com/telekom/spoctl/pkg/spoctl/output"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code. Errors
// already reported by a command are not printed twice.
func run(args []string, stdout, stderr io.Writer) int {
	cfg := cmd.DefaultConfig()
	cfg.OutputWriter = stdout
	cfg.ErrorWriter = stderr

	root := cmd.NewRootCommand(cfg)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		var reported *command.ReportedError
		if !errors.As(err, &reported) {
			output.WriteError(stderr, nil, err)
		}
		return 1
	}
	return 0
}
