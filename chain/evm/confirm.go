package evm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultTickInterval is the receipt polling interval, the same value bind.WaitMined uses.
const DefaultTickInterval = 1 * time.Second

// ErrReverted is returned when a mined transaction has a failed status.
var ErrReverted = errors.New("transaction reverted")

// ConfirmFuncGeth returns a ConfirmFunc that polls the backend for the receipt of a transaction
// every tick until it is mined or waitMinedTimeout elapses.
func ConfirmFuncGeth(backend bind.DeployBackend, waitMinedTimeout, tick time.Duration) ConfirmFunc {
	if tick <= 0 {
		tick = DefaultTickInterval
	}

	return func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		if tx == nil {
			return nil, errors.New("tx was nil, nothing to confirm")
		}

		ctxTimeout, cancel := context.WithTimeout(ctx, waitMinedTimeout)
		defer cancel()

		receipt, err := WaitMinedWithInterval(ctxTimeout, tick, backend, tx.Hash())
		if err != nil {
			return nil, fmt.Errorf("tx %s failed to confirm: %w", tx.Hash().Hex(), err)
		}

		return receipt, CheckReceipt(receipt)
	}
}

// CheckReceipt returns ErrReverted when the receipt has a failed status.
func CheckReceipt(receipt *types.Receipt) error {
	if receipt == nil {
		return errors.New("receipt was nil")
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return fmt.Errorf("tx %s in block %s: %w", receipt.TxHash.Hex(), receipt.BlockNumber, ErrReverted)
	}

	return nil
}

// WaitMinedWithInterval is a custom function that allows to get receipts faster for networks with
// instant blocks.
func WaitMinedWithInterval(ctx context.Context, tick time.Duration, b bind.DeployBackend, txHash common.Hash) (*types.Receipt, error) {
	queryTicker := time.NewTicker(tick)
	defer queryTicker.Stop()
	for {
		receipt, err := b.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-queryTicker.C:
		}
	}
}
