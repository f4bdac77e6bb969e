package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ourzora/drops-deployer/chain/evm"
	"github.com/ourzora/drops-deployer/chain/evm/etherscan"
	"github.com/ourzora/drops-deployer/chain/evm/forge"
	"github.com/ourzora/drops-deployer/deployment"
	"github.com/ourzora/drops-deployer/engine/config"
	"github.com/ourzora/drops-deployer/pkg/logger"
)

// ConfigLoaderFunc loads the configuration of a network from a config directory.
type ConfigLoaderFunc func(dir, network string, deploymentKeys ...string) (*config.Config, error)

// DeployerFactoryFunc creates the deployment backend for a network. The returned close function
// releases the backend's connections.
type DeployerFactoryFunc func(ctx context.Context, lggr logger.Logger, cfg *config.Config) (deployment.Deployer, func(), error)

// VerificationChecker reports whether a contract is verified on the block explorer.
type VerificationChecker interface {
	IsVerified(ctx context.Context, address string) (bool, error)
}

// ExplorerFactoryFunc creates the block explorer client of a network.
type ExplorerFactoryFunc func(lggr logger.Logger, cfg *config.Config) (VerificationChecker, error)

// Deps holds the injectable dependencies of the commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the network configuration.
	// Default: config.Load
	ConfigLoader ConfigLoaderFunc

	// DeployerFactory creates the deploy-and-verify backend.
	// Default: forge or geth backend selected by the onchain config
	DeployerFactory DeployerFactoryFunc

	// ExplorerFactory creates the explorer client used by the verify command.
	// Default: etherscan.NewClient
	ExplorerFactory ExplorerFactoryFunc

	// Now returns the current time, which dates the manifest.
	// Default: time.Now
	Now func() time.Time
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.DeployerFactory == nil {
		d.DeployerFactory = defaultDeployerFactory
	}
	if d.ExplorerFactory == nil {
		d.ExplorerFactory = defaultExplorerFactory
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// defaultDeployerFactory is the production implementation selecting the backend named by the
// onchain config.
func defaultDeployerFactory(ctx context.Context, lggr logger.Logger, cfg *config.Config) (deployment.Deployer, func(), error) {
	oc := cfg.Onchain
	if err := oc.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid onchain config for %s: %w", cfg.Network, err)
	}

	forgeCfg := forge.Config{
		ContractsDir:    oc.ContractsDir,
		RPCURL:          oc.RPCURL,
		PrivateKey:      oc.DeployerKey,
		ChainID:         oc.ChainID,
		Verify:          oc.Verify,
		EtherscanAPIKey: oc.Explorer.APIKey,
		VerifierURL:     oc.Explorer.URL,
	}

	var forgeOpts []forge.Option
	if oc.Verify && oc.Explorer.URL != "" {
		forgeOpts = append(forgeOpts, forge.WithExplorer(etherscan.NewClient(lggr, oc.Explorer.URL, oc.Explorer.APIKey)))
	}

	switch oc.Backend {
	case config.BackendGeth:
		client, err := evm.Dial(ctx, lggr, evm.DefaultDialConfig(), oc.RPCURL)
		if err != nil {
			return nil, nil, err
		}

		profile, err := forge.ReadFoundryProfile(oc.ContractsDir, os.Getenv("FOUNDRY_PROFILE"))
		if err != nil {
			client.Close()
			return nil, nil, err
		}

		opts := []evm.DeployerOption{
			evm.WithExpectedChainID(oc.ChainID),
			evm.WithOutDir(profile.OutDir(oc.ContractsDir)),
			evm.WithConfirmFunc(evm.ConfirmFuncGeth(client, oc.ConfirmTimeout, evm.DefaultTickInterval)),
		}
		if oc.Verify {
			opts = append(opts, evm.WithVerifier(forge.NewVerifier(lggr, forgeCfg, forgeOpts...)))
		}

		d, err := evm.NewDeployer(ctx, lggr, client, oc.DeployerKey, opts...)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		lggr.Infow("Using geth backend", "chain", d.Chain().String(), "deployer", d.From().Hex())

		return d, client.Close, nil
	default:
		lggr.Infow("Using forge backend", "contractsDir", oc.ContractsDir)

		return forge.NewDeployer(lggr, forgeCfg, forgeOpts...), func() {}, nil
	}
}

// defaultExplorerFactory is the production implementation creating an Etherscan client.
func defaultExplorerFactory(lggr logger.Logger, cfg *config.Config) (VerificationChecker, error) {
	explorer := cfg.Onchain.Explorer
	if explorer.URL == "" {
		return nil, fmt.Errorf("no block explorer url configured for %s", cfg.Network)
	}

	return etherscan.NewClient(lggr, explorer.URL, explorer.APIKey), nil
}
