package evm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is a compiled contract read from the Foundry output directory.
type Artifact struct {
	Ref      string
	ABI      abi.ABI
	Bytecode []byte
}

type foundryArtifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode struct {
		Object string `json:"object"`
	} `json:"bytecode"`
}

// ParseArtifactRef splits a contract reference such as src/ERC721Drop.sol:ERC721Drop into the
// source file name and the contract name. A bare contract name refers to <name>.sol.
func ParseArtifactRef(ref string) (file, contract string, err error) {
	path, contract, found := strings.Cut(ref, ":")
	if !found {
		contract = path
		path = contract + ".sol"
	}
	if contract == "" || path == "" {
		return "", "", fmt.Errorf("invalid artifact reference %q", ref)
	}

	return filepath.Base(path), contract, nil
}

// ArtifactPath returns the path of the artifact in a Foundry output directory,
// <outDir>/<File>.sol/<Contract>.json.
func ArtifactPath(outDir, ref string) (string, error) {
	file, contract, err := ParseArtifactRef(ref)
	if err != nil {
		return "", err
	}

	return filepath.Join(outDir, file, contract+".json"), nil
}

// LoadArtifact reads the ABI and creation bytecode of a contract from a Foundry output directory.
func LoadArtifact(outDir, ref string) (*Artifact, error) {
	p, err := ArtifactPath(outDir, ref)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s (run forge build first): %w", ref, err)
	}

	var fa foundryArtifact
	if err = json.Unmarshal(b, &fa); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact %s: %w", p, err)
	}

	parsed, err := abi.JSON(bytes.NewReader(fa.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse abi of %s: %w", ref, err)
	}

	if fa.Bytecode.Object == "" || fa.Bytecode.Object == "0x" {
		return nil, fmt.Errorf("artifact %s has no bytecode, it may be abstract or an interface", ref)
	}

	code, err := hexutil.Decode(ensure0x(fa.Bytecode.Object))
	if err != nil {
		return nil, fmt.Errorf("failed to decode bytecode of %s (unlinked libraries?): %w", ref, err)
	}

	return &Artifact{Ref: ref, ABI: parsed, Bytecode: code}, nil
}

func ensure0x(s string) string {
	if strings.HasPrefix(s, "0x") {
		return s
	}

	return "0x" + s
}
