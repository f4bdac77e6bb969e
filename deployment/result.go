package deployment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMissingAddress = errors.New("deployment result has no valid deployed address")

// Result is the outcome of one deploy-and-verify call.
type Result struct {
	DeployedAddress string `json:"deployedAddress"`
	TransactionHash string `json:"transactionHash,omitempty"`
	Deployer        string `json:"deployer,omitempty"`
	// Verification is the backend specific record of the block explorer verification.
	Verification json.RawMessage `json:"verification,omitempty"`
}

// Validate checks the result carries a hex encoded address.
func (r Result) Validate() error {
	if !isHexAddress(r.DeployedAddress) {
		return fmt.Errorf("%w: %q", ErrMissingAddress, r.DeployedAddress)
	}

	return nil
}

// Deployer is the deploy-and-verify primitive: it creates the contract built from artifact with
// the positional constructor args, waits for it to be confirmed and registers it with a block
// explorer. Timeouts are the implementation's responsibility. An implementation that fails after
// the contract was created returns the result holding its address together with the error.
type Deployer interface {
	DeployAndVerify(ctx context.Context, artifact string, args []string) (Result, error)
}

// DeployerFunc adapts a function to the Deployer interface.
type DeployerFunc func(ctx context.Context, artifact string, args []string) (Result, error)

// DeployAndVerify calls f.
func (f DeployerFunc) DeployAndVerify(ctx context.Context, artifact string, args []string) (Result, error) {
	return f(ctx, artifact, args)
}

func isHexAddress(s string) bool {
	if len(s) < 3 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}

	return true
}
