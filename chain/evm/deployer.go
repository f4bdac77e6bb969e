package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ourzora/drops-deployer/deployment"
	"github.com/ourzora/drops-deployer/pkg/logger"
)

// DefaultConfirmTimeout bounds how long a deployment transaction may take to be mined.
const DefaultConfirmTimeout = 5 * time.Minute

// VerifyRequest describes a deployed contract to verify on a block explorer.
type VerifyRequest struct {
	Artifact        string
	Address         common.Address
	Chain           ChainInfo
	ConstructorArgs []byte
}

// Verifier verifies the source code of deployed contracts. The returned record is stored in the
// deployment manifest.
type Verifier interface {
	Verify(ctx context.Context, req VerifyRequest) (json.RawMessage, error)
}

// Deployer deploys Foundry artifacts by sending the creation transactions itself.
type Deployer struct {
	lggr     logger.Logger
	client   OnchainClient
	auth     *bind.TransactOpts
	chain    ChainInfo
	outDir   string
	confirm  ConfirmFunc
	verifier Verifier
}

var _ deployment.Deployer = (*Deployer)(nil)

type deployerOptions struct {
	expectedChainID uint64
	outDir          string
	confirm         ConfirmFunc
	verifier        Verifier
}

// DeployerOption configures a Deployer.
type DeployerOption func(*deployerOptions)

// WithExpectedChainID makes NewDeployer fail when the RPC serves a different chain.
func WithExpectedChainID(chainID uint64) DeployerOption {
	return func(o *deployerOptions) {
		o.expectedChainID = chainID
	}
}

// WithOutDir sets the Foundry output directory artifacts are read from. Defaults to ./out.
func WithOutDir(dir string) DeployerOption {
	return func(o *deployerOptions) {
		o.outDir = dir
	}
}

// WithConfirmFunc overrides how deployment transactions are confirmed.
func WithConfirmFunc(confirm ConfirmFunc) DeployerOption {
	return func(o *deployerOptions) {
		o.confirm = confirm
	}
}

// WithVerifier verifies every deployed contract. Without a verifier no verification record is
// stored.
func WithVerifier(v Verifier) DeployerOption {
	return func(o *deployerOptions) {
		o.verifier = v
	}
}

// NewDeployer creates a Deployer signing with the hex encoded deployerKey. The chain ID is read
// from the client.
func NewDeployer(
	ctx context.Context, lggr logger.Logger, client OnchainClient, deployerKey string, opts ...DeployerOption,
) (*Deployer, error) {
	o := deployerOptions{outDir: "out"}
	for _, opt := range opts {
		opt(&o)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return nil, fmt.Errorf("chain id %s out of range", chainID)
	}
	if o.expectedChainID != 0 && chainID.Uint64() != o.expectedChainID {
		return nil, fmt.Errorf("rpc serves chain id %s, expected %d", chainID, o.expectedChainID)
	}

	auth, err := TransactorFromRaw(deployerKey, chainID)
	if err != nil {
		return nil, err
	}

	if o.confirm == nil {
		o.confirm = ConfirmFuncGeth(client, DefaultConfirmTimeout, DefaultTickInterval)
	}

	return &Deployer{
		lggr:     lggr,
		client:   client,
		auth:     auth,
		chain:    LookupChain(chainID.Uint64()),
		outDir:   o.outDir,
		confirm:  o.confirm,
		verifier: o.verifier,
	}, nil
}

// Chain returns the chain the deployer deploys to.
func (d *Deployer) Chain() ChainInfo {
	return d.chain
}

// From returns the deployer account.
func (d *Deployer) From() common.Address {
	return d.auth.From
}

// DeployAndVerify deploys the artifact with the constructor arguments, waits for the deployment to
// be mined and verifies it when a verifier is configured.
func (d *Deployer) DeployAndVerify(ctx context.Context, artifact string, args []string) (deployment.Result, error) {
	art, err := LoadArtifact(d.outDir, artifact)
	if err != nil {
		return deployment.Result{}, err
	}

	values, err := ConvertConstructorArgs(art.ABI, args)
	if err != nil {
		return deployment.Result{}, fmt.Errorf("invalid constructor arguments for %s: %w", artifact, err)
	}

	opts := *d.auth
	opts.Context = ctx

	addr, tx, _, err := bind.DeployContract(&opts, art.ABI, art.Bytecode, d.client, values...)
	if err != nil {
		return deployment.Result{}, fmt.Errorf("failed to send deployment of %s on %s: %w", artifact, d.chain, err)
	}
	d.lggr.Debugw("Sent deployment transaction", "artifact", artifact, "tx", tx.Hash().Hex(), "chain", d.chain.String())

	receipt, err := d.confirm(ctx, tx)
	if err != nil {
		return deployment.Result{}, fmt.Errorf("deployment of %s not confirmed: %w", artifact, err)
	}
	if receipt.ContractAddress != (common.Address{}) {
		addr = receipt.ContractAddress
	}

	code, err := d.client.CodeAt(ctx, addr, receipt.BlockNumber)
	if err != nil {
		return deployment.Result{}, fmt.Errorf("failed to read code at %s: %w", addr.Hex(), err)
	}
	if len(code) == 0 {
		return deployment.Result{}, fmt.Errorf("no code at %s after deploying %s", addr.Hex(), artifact)
	}

	res := deployment.Result{
		DeployedAddress: addr.Hex(),
		TransactionHash: tx.Hash().Hex(),
		Deployer:        d.auth.From.Hex(),
	}

	if d.verifier == nil {
		return res, nil
	}

	packed, err := art.ABI.Pack("", values...)
	if err != nil {
		return res, fmt.Errorf("failed to encode constructor arguments of %s: %w", artifact, err)
	}

	res.Verification, err = d.verifier.Verify(ctx, VerifyRequest{
		Artifact:        artifact,
		Address:         addr,
		Chain:           d.chain,
		ConstructorArgs: packed,
	})
	if err != nil {
		return res, fmt.Errorf("deployed %s at %s but verification failed: %w", artifact, addr.Hex(), err)
	}

	return res, nil
}
