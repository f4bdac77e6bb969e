package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ourzora/drops-deployer/engine/artifacts"
)

var (
	manifestShort = "Inspect deployment manifests"

	manifestLong = longDesc(`
		Commands for locating and reading the dated deployment manifests written by deploy.
	`)

	manifestPathExample = examples(`
		# Print where today's mainnet manifest is written
		dropsdeploy manifest path --network mainnet
	`)

	manifestShowExample = examples(`
		# Print the goerli manifest written on 2024-03-01
		dropsdeploy manifest show --network goerli --date 2024-03-01
	`)
)

// newManifestCmd creates the "manifest" command group.
func newManifestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: manifestShort,
		Long:  manifestLong,
	}

	cmd.AddCommand(newManifestPathCmd(a))
	cmd.AddCommand(newManifestShowCmd(a))

	return cmd
}

func newManifestPathCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "path",
		Short:   "Print the manifest path of a network and date",
		Example: manifestPathExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			network, err := requireNetwork(cmd)
			if err != nil {
				return err
			}
			date, err := a.date(mustString(cmd.Flags().GetString("date")))
			if err != nil {
				return err
			}

			p := artifacts.NewArtifactsDir(mustString(cmd.Flags().GetString("out"))).ManifestPath(date, network)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)

			return err
		},
	}

	networkFlag(cmd)
	outFlag(cmd)
	dateFlag(cmd)

	return cmd
}

func newManifestShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show",
		Short:   "Print the manifest of a network and date",
		Example: manifestShowExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			network, err := requireNetwork(cmd)
			if err != nil {
				return err
			}
			date, err := a.date(mustString(cmd.Flags().GetString("date")))
			if err != nil {
				return err
			}

			m, err := artifacts.NewArtifactsDir(mustString(cmd.Flags().GetString("out"))).LoadManifest(network, date)
			if err != nil {
				return err
			}

			b, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal manifest: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return err
		},
	}

	networkFlag(cmd)
	outFlag(cmd)
	dateFlag(cmd)

	return cmd
}
