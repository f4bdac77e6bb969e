package forge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ourzora/drops-deployer/chain/evm/etherscan"
	"github.com/ourzora/drops-deployer/deployment"
	"github.com/ourzora/drops-deployer/pkg/logger"
)

// DefaultBinary is the forge executable looked up in PATH.
const DefaultBinary = "forge"

// ErrNoDeployment is returned when forge exits successfully without reporting a deployment.
var ErrNoDeployment = errors.New("no deployment found in forge output")

// Config configures the forge backend.
//
// WARNING: This data type contains sensitive fields and should not be logged.
type Config struct {
	// Binary is the forge executable. Defaults to DefaultBinary.
	Binary string
	// ContractsDir is the Foundry project directory the commands run in.
	ContractsDir string
	RPCURL       string
	PrivateKey   string // Secret: The private key of the deployer account.
	// ChainID is passed to forge when set.
	ChainID uint64
	// Verify submits the source code to the block explorer while deploying.
	Verify          bool
	EtherscanAPIKey string // Secret: The explorer API key.
	VerifierURL     string
}

func (c Config) binary() string {
	if c.Binary == "" {
		return DefaultBinary
	}

	return c.Binary
}

// createOutput is the JSON printed by forge create --json.
type createOutput struct {
	Deployer        string `json:"deployer"`
	DeployedTo      string `json:"deployedTo"`
	TransactionHash string `json:"transactionHash"`
}

// Submission is the verification record of a contract submitted by forge when no explorer client
// confirms the verification.
type Submission struct {
	Submitted bool   `json:"submitted"`
	Verifier  string `json:"verifier,omitempty"`
}

type options struct {
	runner   Runner
	explorer *etherscan.Client
}

// Option configures a Deployer or a Verifier.
type Option func(*options)

// WithRunner overrides how forge is run. Defaults to ExecRunner.
func WithRunner(r Runner) Option {
	return func(o *options) {
		o.runner = r
	}
}

// WithExplorer waits for the explorer to report each verified contract and stores the explorer's
// verification record.
func WithExplorer(c *etherscan.Client) Option {
	return func(o *options) {
		o.explorer = c
	}
}

func newOptions(opts []Option) options {
	o := options{runner: ExecRunner{}}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// verificationRecord waits for the explorer to confirm the verification when an explorer is set.
func (o options) verificationRecord(ctx context.Context, address, verifierURL string) (json.RawMessage, error) {
	if o.explorer == nil {
		return json.Marshal(Submission{Submitted: true, Verifier: verifierURL})
	}

	v, err := o.explorer.WaitVerified(ctx, address)
	if err != nil {
		return nil, err
	}

	return json.Marshal(v)
}

// Deployer deploys contracts with forge create.
type Deployer struct {
	lggr logger.Logger
	cfg  Config
	opts options
}

var _ deployment.Deployer = (*Deployer)(nil)

// NewDeployer creates a forge backed deployment.Deployer.
func NewDeployer(lggr logger.Logger, cfg Config, opts ...Option) *Deployer {
	return &Deployer{
		lggr: lggr,
		cfg:  cfg,
		opts: newOptions(opts),
	}
}

// CreateArgs returns the forge create arguments deploying artifact with the constructor args.
func (d *Deployer) CreateArgs(artifact string, args []string) []string {
	cmd := []string{
		"create", artifact,
		"--rpc-url", d.cfg.RPCURL,
		"--private-key", d.cfg.PrivateKey,
		"--broadcast",
		"--json",
	}
	if d.cfg.ChainID != 0 {
		cmd = append(cmd, "--chain", strconv.FormatUint(d.cfg.ChainID, 10))
	}
	if d.cfg.Verify {
		cmd = append(cmd, "--verify", "--etherscan-api-key", d.cfg.EtherscanAPIKey)
		if d.cfg.VerifierURL != "" {
			cmd = append(cmd, "--verifier-url", d.cfg.VerifierURL)
		}
	}
	// --constructor-args is variadic and must come last
	if len(args) > 0 {
		cmd = append(cmd, "--constructor-args")
		cmd = append(cmd, args...)
	}

	return cmd
}

// DeployAndVerify runs forge create for the artifact and reads the deployed address from its JSON
// output.
func (d *Deployer) DeployAndVerify(ctx context.Context, artifact string, args []string) (deployment.Result, error) {
	cmdArgs := d.CreateArgs(artifact, args)
	d.lggr.Debugf("Running forge (secrets redacted): %s %s", d.cfg.binary(), strings.Join(RedactArgs(cmdArgs), " "))

	stdout, err := d.opts.runner.Run(ctx, d.cfg.ContractsDir, d.cfg.binary(), cmdArgs...)
	if err != nil {
		// forge create --verify exits non-zero when verification fails after the broadcast
		out, perr := parseCreateOutput(stdout)
		if perr != nil {
			return deployment.Result{}, fmt.Errorf("forge create %s failed: %w", artifact, err)
		}

		return deployment.Result{
			DeployedAddress: out.DeployedTo,
			TransactionHash: out.TransactionHash,
			Deployer:        out.Deployer,
		}, fmt.Errorf("forge create %s failed after deploying at %s: %w", artifact, out.DeployedTo, err)
	}

	out, err := parseCreateOutput(stdout)
	if err != nil {
		return deployment.Result{}, fmt.Errorf("forge create %s: %w", artifact, err)
	}

	res := deployment.Result{
		DeployedAddress: out.DeployedTo,
		TransactionHash: out.TransactionHash,
		Deployer:        out.Deployer,
	}
	if !d.cfg.Verify {
		return res, nil
	}

	res.Verification, err = d.opts.verificationRecord(ctx, out.DeployedTo, d.cfg.VerifierURL)
	if err != nil {
		return res, fmt.Errorf("deployed %s at %s but verification failed: %w", artifact, out.DeployedTo, err)
	}

	return res, nil
}

// parseCreateOutput finds the deployment in the forge output. forge may print other lines, such as
// compiler or verification progress, around the JSON object.
func parseCreateOutput(stdout []byte) (createOutput, error) {
	var found *createOutput

	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		var out createOutput
		if err := json.Unmarshal(line, &out); err != nil {
			continue
		}
		if out.DeployedTo != "" || out.TransactionHash != "" {
			found = &out
		}
	}
	if err := scanner.Err(); err != nil {
		return createOutput{}, err
	}

	if found == nil {
		return createOutput{}, ErrNoDeployment
	}

	return *found, nil
}
