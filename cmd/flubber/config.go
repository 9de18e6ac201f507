package main

import (
	"github.com/urfave/cli/v3"

	"github.com/tx7do/flubber/internal/config"
)

func newConfigFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the TOML configuration file",
	}
}

// loadConfig reads --config, or returns the defaults when it is not set.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.NewConfig(path)
}
