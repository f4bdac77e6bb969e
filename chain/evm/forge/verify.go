package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ourzora/drops-deployer/chain/evm"
	"github.com/ourzora/drops-deployer/pkg/logger"
)

// Verifier verifies deployed contracts with forge verify-contract.
type Verifier struct {
	lggr logger.Logger
	cfg  Config
	opts options
}

var _ evm.Verifier = (*Verifier)(nil)

// NewVerifier creates a forge backed evm.Verifier. Only the binary, contracts dir, explorer and,
// for guessing constructor arguments, RPC fields of cfg are used.
func NewVerifier(lggr logger.Logger, cfg Config, opts ...Option) *Verifier {
	return &Verifier{
		lggr: lggr,
		cfg:  cfg,
		opts: newOptions(opts),
	}
}

// VerifyArgs returns the forge verify-contract arguments for the request. Without encoded
// constructor arguments forge guesses them from the creation transaction.
func (v *Verifier) VerifyArgs(req evm.VerifyRequest) []string {
	cmd := []string{
		"verify-contract", req.Address.Hex(), req.Artifact,
		"--chain", strconv.FormatUint(req.Chain.ChainID, 10),
		"--etherscan-api-key", v.cfg.EtherscanAPIKey,
		"--watch",
	}
	if v.cfg.VerifierURL != "" {
		cmd = append(cmd, "--verifier-url", v.cfg.VerifierURL)
	}

	switch {
	case len(req.ConstructorArgs) > 0:
		cmd = append(cmd, "--constructor-args", hexutil.Encode(req.ConstructorArgs))
	case req.ConstructorArgs == nil && v.cfg.RPCURL != "":
		cmd = append(cmd, "--guess-constructor-args", "--rpc-url", v.cfg.RPCURL)
	}

	return cmd
}

// Verify submits the contract source to the block explorer and returns the verification record.
func (v *Verifier) Verify(ctx context.Context, req evm.VerifyRequest) (json.RawMessage, error) {
	cmdArgs := v.VerifyArgs(req)
	v.lggr.Infow("Verifying contract", "artifact", req.Artifact, "address", req.Address.Hex(), "chain", req.Chain.String())
	v.lggr.Debugf("Running forge (secrets redacted): %s %s", v.cfg.binary(), strings.Join(RedactArgs(cmdArgs), " "))

	stdout, err := v.opts.runner.Run(ctx, v.cfg.ContractsDir, v.cfg.binary(), cmdArgs...)
	if err != nil {
		return nil, fmt.Errorf("forge verify-contract %s failed: %w", req.Address.Hex(), err)
	}
	if out := strings.TrimSpace(string(stdout)); out != "" {
		v.lggr.Debug(out)
	}

	return v.opts.verificationRecord(ctx, req.Address.Hex(), v.cfg.VerifierURL)
}
