// Package config loads the configuration of a deployment run from the per network dotenv file,
// the process environment and the optional networks file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ourzora/drops-deployer/deployment"
)

// Deployment backends.
const (
	BackendForge = "forge"
	BackendGeth  = "geth"
)

// DefaultConfirmTimeout bounds how long the geth backend waits for a deployment to be mined.
const DefaultConfirmTimeout = 5 * time.Minute

// EnvFileName returns the dotenv file name of a network, e.g. .env.mainnet.
func EnvFileName(network string) string {
	return ".env." + network
}

// ExplorerConfig is the configuration of the block explorer used to verify contracts.
//
// WARNING: This data type contains sensitive fields and should not be logged.
type ExplorerConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"` // Secret: The explorer API key.
}

// OnchainConfig is the configuration of the deploy-and-verify backend.
//
// WARNING: This data type contains sensitive fields and should not be logged.
type OnchainConfig struct {
	Backend        string         `mapstructure:"backend"`
	RPCURL         string         `mapstructure:"rpc_url"`
	ChainID        uint64         `mapstructure:"chain_id"`
	DeployerKey    string         `mapstructure:"deployer_key"` // Secret: The private key of the deployer account.
	ContractsDir   string         `mapstructure:"contracts_dir"`
	Verify         bool           `mapstructure:"verify"`
	Explorer       ExplorerConfig `mapstructure:"explorer"`
	ConfirmTimeout time.Duration  `mapstructure:"confirm_timeout"`
}

// Validate checks that the fields required by the selected backend are set.
func (c OnchainConfig) Validate() error {
	switch c.Backend {
	case BackendForge, BackendGeth:
	default:
		return fmt.Errorf("unknown backend %q: must be %s or %s", c.Backend, BackendForge, BackendGeth)
	}

	if c.RPCURL == "" {
		return errors.New("rpc url is required")
	}

	if c.DeployerKey == "" {
		return errors.New("deployer key is required")
	}

	if c.Backend == BackendGeth && c.ConfirmTimeout <= 0 {
		return errors.New("confirm timeout must be positive")
	}

	if c.Verify && c.Explorer.APIKey == "" {
		return errors.New("explorer api key is required to verify contracts")
	}

	return nil
}

// Config is the configuration of a deployment run against a single network.
type Config struct {
	Network string
	// Deployment holds the raw values of the network's dotenv file consumed by the deployment plan.
	Deployment deployment.Config
	Onchain    OnchainConfig
}

// Load loads the configuration of the network from dir.
//
// The deployment values are read from dir/.env.<network>. A missing file yields no values, leaving
// the plan to report the missing keys. The process environment overrides the file for every
// deploymentKeys entry. Onchain values are resolved in order from the process environment, the
// dotenv file, and the network's entry in dir/networks.yaml. The process environment is never
// modified.
func Load(dir, network string, deploymentKeys ...string) (*Config, error) {
	if network == "" {
		return nil, errors.New("network is required")
	}

	values, err := readEnvFile(filepath.Join(dir, EnvFileName(network)))
	if err != nil {
		return nil, err
	}

	depCfg := make(deployment.Config, len(values))
	for k, v := range values {
		depCfg[k] = v
	}
	for _, key := range deploymentKeys {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			depCfg[key] = v
		}
	}

	v := viper.New()
	setDefaults(v)

	if err = applyNetworksFile(v, filepath.Join(dir, NetworksFileName), network); err != nil {
		return nil, err
	}

	if err = v.MergeConfigMap(fileSettings(values)); err != nil {
		return nil, err
	}

	if err = bindEnvs(v); err != nil {
		return nil, err
	}

	onchain := OnchainConfig{}
	if err = v.Unmarshal(&onchain); err != nil {
		return nil, fmt.Errorf("failed to unmarshal onchain config: %w", err)
	}

	return &Config{
		Network:    network,
		Deployment: depCfg,
		Onchain:    onchain,
	}, nil
}

func readEnvFile(filePath string) (map[string]string, error) {
	values, err := godotenv.Read(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	return values, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendForge)
	v.SetDefault("contracts_dir", ".")
	v.SetDefault("verify", true)
	v.SetDefault("confirm_timeout", DefaultConfirmTimeout)
}

// applyNetworksFile sets the network's entry of the networks file as defaults. The file is
// optional and so is the network's entry in it.
func applyNetworksFile(v *viper.Viper, filePath, network string) error {
	if _, err := os.Stat(filePath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	manifest, err := LoadNetworks(filePath)
	if err != nil {
		return err
	}

	n, ok := manifest.Network(network)
	if !ok {
		return nil
	}

	chainID, err := n.ResolveChainID()
	if err != nil {
		return fmt.Errorf("network %s: %w", network, err)
	}
	if chainID != 0 {
		v.SetDefault("chain_id", chainID)
	}
	if len(n.RPCs) > 0 {
		v.SetDefault("rpc_url", n.RPCs[0].PreferredEndpoint())
	}
	if n.BlockExplorer.URL != "" {
		v.SetDefault("explorer.url", n.BlockExplorer.URL)
	}

	return nil
}

// fileSettings maps the dotenv values onto config keys using the same names as the environment
// bindings. For each key the first listed name present in the file wins.
func fileSettings(values map[string]string) map[string]any {
	settings := map[string]any{}
	explorer := map[string]any{}

	for key, envs := range envBindings {
		for _, env := range envs {
			val, ok := values[env]
			if !ok || val == "" {
				continue
			}

			if sub, found := strings.CutPrefix(key, "explorer."); found {
				explorer[sub] = val
			} else {
				settings[key] = val
			}

			break
		}
	}

	if len(explorer) > 0 {
		settings["explorer"] = explorer
	}

	return settings
}

var (
	// envBindings maps each config key to the environment variable names that can provide its
	// value. The first name is the preferred one, any following names are the legacy names used by
	// existing .env files. The first name that is set wins.
	envBindings = map[string][]string{
		"backend":          {"ONCHAIN_BACKEND"},
		"rpc_url":          {"ONCHAIN_RPC_URL", "ETH_RPC_URL", "RPC_URL"},
		"chain_id":         {"ONCHAIN_CHAIN_ID", "CHAIN_ID"},
		"deployer_key":     {"ONCHAIN_DEPLOYER_KEY", "PRIVATE_KEY"},
		"contracts_dir":    {"ONCHAIN_CONTRACTS_DIR"},
		"verify":           {"ONCHAIN_VERIFY"},
		"confirm_timeout":  {"ONCHAIN_CONFIRM_TIMEOUT"},
		"explorer.url":     {"ONCHAIN_EXPLORER_URL", "ETHERSCAN_API_URL"},
		"explorer.api_key": {"ONCHAIN_EXPLORER_API_KEY", "ETHERSCAN_API_KEY"},
	}
)

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
