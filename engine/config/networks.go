package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	chain_selectors "github.com/smartcontractkit/chain-selectors"
	"gopkg.in/yaml.v3"
)

// NetworksFileName is the optional file in the config directory describing the known networks.
const NetworksFileName = "networks.yaml"

// NetworkType represents the type of network, which can either be mainnet or testnet.
type NetworkType string

const (
	NetworkTypeMainnet NetworkType = "mainnet"
	NetworkTypeTestnet NetworkType = "testnet"
)

// Network describes a network a deployment can target. Values set here are the lowest precedence
// source of the onchain configuration.
type Network struct {
	Name          string        `yaml:"name"`
	Type          NetworkType   `yaml:"type"`
	ChainID       uint64        `yaml:"chain_id"`
	ChainSelector uint64        `yaml:"chain_selector"`
	BlockExplorer BlockExplorer `yaml:"block_explorer"`
	RPCs          []RPC         `yaml:"rpcs"`
}

// ResolveChainID returns the chain ID of the network, derived from the chain selector when it is
// not set explicitly. Zero means unknown.
func (n *Network) ResolveChainID() (uint64, error) {
	if n.ChainID != 0 || n.ChainSelector == 0 {
		return n.ChainID, nil
	}

	id, err := chain_selectors.GetChainIDFromSelector(n.ChainSelector)
	if err != nil {
		return 0, err
	}

	return strconv.ParseUint(id, 10, 64)
}

// Validate validates the network configuration to ensure that all required fields are set.
func (n *Network) Validate() error {
	if n.Name == "" {
		return errors.New("name is required")
	}

	if n.ChainID == 0 && n.ChainSelector == 0 {
		return errors.New("chain id or chain selector is required")
	}

	return nil
}

// RPC is an RPC endpoint of a network.
type RPC struct {
	RPCName            string `yaml:"rpc_name"`
	PreferredURLScheme string `yaml:"preferred_url_scheme"`
	HTTPURL            string `yaml:"http_url"`
	WSURL              string `yaml:"ws_url"`
}

// PreferredEndpoint returns the correct endpoint based on the preferred URL scheme. By default, it
// returns the HTTP URL.
func (rpc *RPC) PreferredEndpoint() string {
	if rpc.PreferredURLScheme == "ws" {
		return rpc.WSURL
	}

	return rpc.HTTPURL
}

// BlockExplorer is the verification API of a network's block explorer.
type BlockExplorer struct {
	URL string `yaml:"url"`
}

// NetworksManifest is the YAML representation of the networks file.
type NetworksManifest struct {
	Networks []Network `yaml:"networks"`
}

// LoadNetworks reads and validates a networks file.
func LoadNetworks(filePath string) (*NetworksManifest, error) {
	b, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read networks file: %w", err)
	}

	m := &NetworksManifest{}
	if err = yaml.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal networks file %s: %w", filePath, err)
	}

	seen := make(map[string]struct{}, len(m.Networks))
	for i := range m.Networks {
		n := &m.Networks[i]
		if err = n.Validate(); err != nil {
			return nil, fmt.Errorf("network %d: %w", i, err)
		}
		if _, ok := seen[n.Name]; ok {
			return nil, fmt.Errorf("network %s: duplicate name", n.Name)
		}
		seen[n.Name] = struct{}{}
	}

	return m, nil
}

// Network returns the network with the given name.
func (m *NetworksManifest) Network(name string) (Network, bool) {
	for _, n := range m.Networks {
		if n.Name == name {
			return n, true
		}
	}

	return Network{}, false
}
