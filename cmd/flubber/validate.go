package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tx7do/flubber/internal/config"
	"github.com/tx7do/flubber/internal/fancy"
)

func newValidateCmd() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"lint"},
		Usage:   "Validate a configuration file",
		Flags: []cli.Flag{
			newConfigFlag(),
		},
		Action: validateAction,
	}
}

func validateAction(_ context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		if cmd.Args().Len() < 1 {
			return fmt.Errorf(
				"config file path required (use the --config flag, or provide the config file as positional argument)",
			)
		}
		configPath = cmd.Args().Get(0)
	}

	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("Configuration file %s is %s\n", fancy.PathText(configPath), fancy.ValidText("valid"))
	fmt.Println(renderConfigSummary(cfg))
	return nil
}

// renderConfigSummary creates a formatted summary string for the configuration
func renderConfigSummary(cfg *config.Config) string {
	var summary strings.Builder

	summary.WriteString(fancy.HeaderText("\nConfig Summary:") + "\n")
	fmt.Fprintf(&summary, "- Entry: %s\n", fancy.PathText(cfg.Script.Entry))
	fmt.Fprintf(&summary, "- Drain timeout: %s\n", fancy.SummaryText(drainTimeout(cfg)))
	fmt.Fprintf(&summary, "- Permissions: %s\n", fancy.SummaryText(cfg.Permissions.Policy))
	fmt.Fprintf(&summary, "- User-Agent: %s\n", fancy.SummaryText(cfg.UserAgent(Version)))
	fmt.Fprintf(&summary, "- Frames: %s at %s fps\n",
		fancy.CountText(fmt.Sprint(cfg.Host.Frames)),
		fancy.CountText(fmt.Sprint(cfg.Host.PhysicsFPS)))

	return summary.String()
}

func drainTimeout(cfg *config.Config) string {
	if cfg.Script.DrainTimeout == 0 {
		return "none"
	}
	return cfg.Script.DrainTimeout.String()
}
