package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ourzora/drops-deployer/deployment"
	"github.com/ourzora/drops-deployer/drops"
	"github.com/ourzora/drops-deployer/engine/artifacts"
	"github.com/ourzora/drops-deployer/operations"
)

var (
	deployShort = "Deploy and verify the drops contracts"

	deployLong = longDesc(`
		Deploys ERC721Drop, DropMetadataRenderer and ZoraNFTCreatorV1 in order, verifying each on
		the block explorer, and writes the deployed addresses to
		<out>/<YYYY-MM-DD>.<network>.json.

		The configuration is read from <config-dir>/.env.<network>, which must set
		ZORA_ERC_721_TRANSFER_HELPER_ADDRESS. The first failing deployment stops the run and
		reports the contracts already deployed. Every run journals its operations under
		<out>/reports; --resume reuses the contracts the journal of the same day already deployed
		with identical arguments instead of deploying them again.
	`)

	deployExample = examples(`
		# Deploy to goerli using .env.goerli
		dropsdeploy deploy --network goerli

		# Network taken from $CHAIN, as with the deploy script
		CHAIN=mainnet dropsdeploy deploy

		# Continue a run that failed part way through today
		dropsdeploy deploy --network mainnet --resume
	`)
)

type deployFlags struct {
	network   string
	configDir string
	out       string
	resume    bool
}

// newDeployCmd creates the "deploy" command.
func newDeployCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deploy",
		Short:   deployShort,
		Long:    deployLong,
		Example: deployExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			network, err := requireNetwork(cmd)
			if err != nil {
				return err
			}

			f := deployFlags{
				network:   network,
				configDir: mustString(cmd.Flags().GetString("config-dir")),
				out:       mustString(cmd.Flags().GetString("out")),
				resume:    mustBool(cmd.Flags().GetBool("resume")),
			}

			return runDeploy(cmd, a, f)
		},
	}

	networkFlag(cmd)
	configDirFlag(cmd)
	outFlag(cmd)
	cmd.Flags().Bool("resume", false, "Reuse contracts deployed by an earlier run today with identical arguments")

	return cmd
}

// runDeploy executes the deploy command logic.
func runDeploy(cmd *cobra.Command, a *app, f deployFlags) error {
	ctx := cmd.Context()
	deps := a.cfg.deps()
	lggr := a.logger()
	plan := drops.Plan()

	// --- Load

	envCfg, err := deps.ConfigLoader(f.configDir, f.network, plan.RequiredKeys...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err = plan.CheckConfig(envCfg.Deployment); err != nil {
		return err
	}

	arts := artifacts.NewArtifactsDir(f.out)
	date, err := a.date("")
	if err != nil {
		return err
	}

	reporter := operations.NewMemoryReporter()
	if f.resume {
		prev, loadErr := arts.LoadOperationsReports(f.network, date)
		if loadErr != nil {
			return fmt.Errorf("failed to load operations journal: %w", loadErr)
		}
		reporter = operations.NewMemoryReporter(operations.WithReports(prev))
		cmd.Printf("Resuming from %d journaled operations\n", len(prev))
	}

	deployer, closeFn, err := deps.DeployerFactory(ctx, lggr, envCfg)
	if err != nil {
		return fmt.Errorf("failed to create deployer: %w", err)
	}
	defer closeFn()

	// --- Execute

	b := operations.NewBundle(func() context.Context { return ctx }, lggr, reporter)
	manifest, runErr := drops.RunDeployment(b, deployer, envCfg.Deployment)

	if reports, repErr := reporter.GetReports(); repErr == nil && len(reports) > 0 {
		if saveErr := arts.SaveOperationsReports(f.network, date, reports); saveErr != nil {
			lggr.Warnw("Failed to save operations journal", "path", arts.ReportsPath(date, f.network), "error", saveErr)
		}
	}

	if runErr != nil {
		var derr *deployment.DeploymentError
		if errors.As(runErr, &derr) {
			if len(derr.Completed) > 0 {
				cmd.Printf("Deployed before the failure (rerun with --resume to reuse them):\n")
				for _, c := range derr.Completed {
					cmd.Printf("  %s: %s\n", c.Name, c.Address)
				}
			}
			if d := derr.Deployed; d != nil {
				cmd.Printf("Created by the failed step but not verified (verify it manually):\n  %s: %s\n", d.Name, d.Address)
			}
		}

		return runErr
	}

	// --- Persist

	p, err := arts.PersistManifest(manifest, f.network, date)
	if err != nil {
		var ioErr *deployment.IOError
		if errors.As(err, &ioErr) {
			lggr.Errorw("Failed to write manifest, deployed contracts follow", "path", ioErr.Path, "manifest", ioErr.ManifestJSON())
		}

		return err
	}

	for _, e := range manifest.Entries() {
		cmd.Printf("%s: %s\n", e.Name, e.Result.DeployedAddress)
	}
	cmd.Printf("Manifest written to %s\n", p)

	return nil
}
