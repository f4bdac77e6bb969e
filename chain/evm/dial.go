package evm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ourzora/drops-deployer/pkg/logger"
)

const (
	// Default retry configuration for dialing RPC endpoints
	RPCDefaultDialRetryAttempts = 1
	RPCDefaultDialRetryDelay    = 1000 * time.Millisecond
	RPCDefaultDialTimeout       = 10 * time.Second

	// Default timeout for health checks
	RPCDefaultHealthCheckTimeout = 2 * time.Second
)

// ErrNoHealthyRPC is returned by Dial when none of the RPC endpoints could be used.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint")

// DialConfig configures how RPC endpoints are dialed.
type DialConfig struct {
	Attempts uint
	Delay    time.Duration
	Timeout  time.Duration
}

// DefaultDialConfig returns the default DialConfig.
func DefaultDialConfig() DialConfig {
	return DialConfig{
		Attempts: RPCDefaultDialRetryAttempts,
		Delay:    RPCDefaultDialRetryDelay,
		Timeout:  RPCDefaultDialTimeout,
	}
}

// Dial connects to the first of the RPC URLs that answers a health check. Only the connection is
// retried, never a transaction.
func Dial(ctx context.Context, lggr logger.Logger, cfg DialConfig, rpcURLs ...string) (*ethclient.Client, error) {
	if len(rpcURLs) == 0 {
		return nil, errors.New("no RPCs provided, need at least one")
	}

	for i, rpcURL := range rpcURLs {
		client, err := dialWithRetry(ctx, cfg, rpcURL)
		if err != nil {
			lggr.Warnf("failed to dial RPC %d, trying with the next one: %v", i, err)

			continue
		}
		if err = rpcHealthCheck(ctx, client); err != nil {
			lggr.Warnf("health check failed for RPC %d, trying with the next one: %v", i, err)
			client.Close()

			continue
		}

		return client, nil
	}

	return nil, ErrNoHealthyRPC
}

func dialWithRetry(ctx context.Context, cfg DialConfig, rpcURL string) (*ethclient.Client, error) {
	var client *ethclient.Client

	err := retry.Do(func() error {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		var err error
		client, err = ethclient.DialContext(dialCtx, rpcURL)

		return err
	},
		retry.Context(ctx),
		retry.Attempts(cfg.Attempts),
		retry.Delay(cfg.Delay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	return client, nil
}

// rpcHealthCheck performs a basic health check on the RPC client by calling eth_blockNumber
func rpcHealthCheck(ctx context.Context, client *ethclient.Client) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, RPCDefaultHealthCheckTimeout)
	defer cancel()

	if _, err := client.BlockNumber(timeoutCtx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}
