package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:    "flubber",
		Version: Version,
		Usage:   "Run a JavaScript entry script inside a headless host",
		Commands: []*cli.Command{
			newRunCmd(),
			newValidateCmd(),
			newVersionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
