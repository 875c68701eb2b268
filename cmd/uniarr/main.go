package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/raulshma/uniarr-sub005/internal/cli"
	"github.com/raulshma/uniarr-sub005/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := cli.NewRootCommand(os.Stdout, cli.BuildInfo{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildTime: version.BuildTime,
	})

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	// The root command silences cobra's own error printing, so this is the
	// single place failures reach the user.
	fmt.Fprintf(os.Stderr, "uniarr: %v\n", err)

	var withExitCode interface{ ExitCode() int }
	if errors.As(err, &withExitCode) {
		return withExitCode.ExitCode()
	}
	return 1
}
