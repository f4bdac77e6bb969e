package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ourzora/drops-deployer/engine/artifacts"
)

// NetworkEnvVar provides the default of the --network flag.
const NetworkEnvVar = "CHAIN"

// mustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func mustString(s string, _ error) string { return s }

// mustBool returns the bool value, ignoring the error.
// Safe to use with registered flags where GetBool cannot fail.
func mustBool(b bool, _ error) bool { return b }

// networkFlag adds the --network/-n flag, defaulting to $CHAIN. The --chain spelling is accepted
// as an alias.
func networkFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("network", "n", os.Getenv(NetworkEnvVar),
		"Network to deploy to, selects the .env.<network> file (default $"+NetworkEnvVar+")")

	existingNormalize := cmd.Flags().GetNormalizeFunc()
	cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "chain" {
			return pflag.NormalizedName("network")
		}
		if existingNormalize != nil {
			return existingNormalize(f, name)
		}

		return pflag.NormalizedName(name)
	})
}

// configDirFlag adds the --config-dir flag.
func configDirFlag(cmd *cobra.Command) {
	cmd.Flags().String("config-dir", ".", "Directory holding the .env.<network> files and networks.yaml")
}

// outFlag adds the --out/-o flag for the manifests directory.
func outFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("out", "o", artifacts.DefaultDir, "Directory the deployment manifests are written to")
}

// dateFlag adds the --date flag selecting a manifest by its UTC date.
func dateFlag(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "Manifest date as YYYY-MM-DD (default today, UTC)")
}
