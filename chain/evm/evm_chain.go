// Package evm deploys Foundry compiled contracts to EVM chains with go-ethereum.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	chainsel "github.com/smartcontractkit/chain-selectors"
)

// ConfirmFunc waits for a transaction to be mined and returns its receipt. A reverted transaction
// is returned as an error.
type ConfirmFunc func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

// OnchainClient is an EVM chain client.
// For EVM specifically we can use existing geth interface to abstract chain clients.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	ChainID(ctx context.Context) (*big.Int, error)
}

// ChainInfo identifies an EVM chain.
type ChainInfo struct {
	ChainID  uint64
	Selector uint64
	Name     string
}

// LookupChain resolves the chain name and selector of an EVM chain ID. Unknown chains, such as
// local development chains, are returned with only the chain ID set.
func LookupChain(chainID uint64) ChainInfo {
	info := ChainInfo{ChainID: chainID}

	details, err := chainsel.GetChainDetailsByChainIDAndFamily(strconv.FormatUint(chainID, 10), chainsel.FamilyEVM)
	if err != nil {
		return info
	}
	info.Selector = details.ChainSelector
	info.Name = details.ChainName

	return info
}

// String returns chain name and chain id "<name> (<chain id>)"
func (c ChainInfo) String() string {
	if c.Name == "" {
		return fmt.Sprintf("chain %d", c.ChainID)
	}

	return fmt.Sprintf("%s (%d)", c.Name, c.ChainID)
}
