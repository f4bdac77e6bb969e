// Package cli provides the dropsdeploy command line interface.
package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/ourzora/drops-deployer/engine/artifacts"
	"github.com/ourzora/drops-deployer/pkg/logger"
)

var (
	rootShort = "Deploy the Zora drops contracts"

	rootLong = longDesc(`
		Deploys the Zora drops contracts (ERC721Drop, DropMetadataRenderer and ZoraNFTCreatorV1)
		to a network, verifies them on the block explorer and records the deployed addresses in a
		dated manifest under ./deployments.
	`)
)

// Config holds the configuration of the CLI.
type Config struct {
	// Logger is the logger to use for command output. Optional, a console logger at the level of
	// --log-level is created when nil.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

// app is the state shared by the commands of one invocation.
type app struct {
	cfg  Config
	lggr logger.Logger
}

func (a *app) logger() logger.Logger {
	if a.lggr == nil {
		return logger.Nop()
	}

	return a.lggr
}

// date returns the manifest date selected by the --date flag, or today in UTC.
func (a *app) date(flagValue string) (string, error) {
	if flagValue == "" {
		return artifacts.Date(a.cfg.deps().Now()), nil
	}

	if _, err := time.Parse(time.DateOnly, flagValue); err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", flagValue)
	}

	return flagValue, nil
}

// NewRootCommand creates the dropsdeploy command with all subcommands.
func NewRootCommand(cfg Config) *cobra.Command {
	cfg.deps()
	a := &app{cfg: cfg, lggr: cfg.Logger}

	cmd := &cobra.Command{
		Use:           "dropsdeploy",
		Short:         rootShort,
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.lggr != nil {
				return nil
			}

			level, err := zapcore.ParseLevel(mustString(cmd.Flags().GetString("log-level")))
			if err != nil {
				return err
			}

			a.lggr, err = logger.NewCLI(level)

			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger().Sync()
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Log level: "+strings.Join(logLevels, ", "))

	cmd.AddCommand(newDeployCmd(a))
	cmd.AddCommand(newManifestCmd(a))
	cmd.AddCommand(newVerifyCmd(a))

	return cmd
}

var logLevels = []string{"debug", "info", "warn", "error"}

// requireNetwork returns the network flag value or an error naming both ways to set it.
func requireNetwork(cmd *cobra.Command) (string, error) {
	network := strings.TrimSpace(mustString(cmd.Flags().GetString("network")))
	if network == "" {
		return "", errors.New("network is required: set --network or $" + NetworkEnvVar)
	}

	return network, nil
}
