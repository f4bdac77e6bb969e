package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ourzora/drops-deployer/engine/artifacts"
)

var (
	verifyShort = "Check the explorer verification of deployed contracts"

	verifyLong = longDesc(`
		Reads a deployment manifest and asks the network's block explorer whether the source code
		of every contract in it is verified. Fails when any contract is not verified.
	`)

	verifyExample = examples(`
		# Check today's mainnet deployment
		dropsdeploy verify --network mainnet

		# Check an earlier goerli deployment
		dropsdeploy verify --network goerli --date 2024-03-01
	`)
)

// newVerifyCmd creates the "verify" command.
func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "verify",
		Short:   verifyShort,
		Long:    verifyLong,
		Example: verifyExample,
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

			return runVerify(cmd, a, network, date)
		},
	}

	networkFlag(cmd)
	configDirFlag(cmd)
	outFlag(cmd)
	dateFlag(cmd)

	return cmd
}

// runVerify executes the verify command logic.
func runVerify(cmd *cobra.Command, a *app, network, date string) error {
	deps := a.cfg.deps()

	envCfg, err := deps.ConfigLoader(mustString(cmd.Flags().GetString("config-dir")), network)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m, err := artifacts.NewArtifactsDir(mustString(cmd.Flags().GetString("out"))).LoadManifest(network, date)
	if err != nil {
		return err
	}

	explorer, err := deps.ExplorerFactory(a.logger(), envCfg)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Contract", "Address", "Status"})

	var unverified int
	for _, e := range m.Entries() {
		ok, err := explorer.IsVerified(cmd.Context(), e.Result.DeployedAddress)
		if err != nil {
			return fmt.Errorf("failed to check %s (%s): %w", e.Name, e.Result.DeployedAddress, err)
		}

		status := "verified"
		if !ok {
			status = "NOT verified"
			unverified++
		}
		table.Append([]string{e.Name, e.Result.DeployedAddress, status})
	}
	table.Render()

	if unverified > 0 {
		return fmt.Errorf("%d of %d contracts are not verified", unverified, m.Len())
	}

	return nil
}
