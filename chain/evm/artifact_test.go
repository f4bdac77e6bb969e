package evm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// returns the 10 byte runtime 602a60805260206080f3, which answers every call with 42
	testInitCode = "0x600a600c600039600a6000f3602a60805260206080f3"
	testRuntime  = "0x602a60805260206080f3"

	testHelperABI = `[{"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"helper","type":"address"}]}]`
)

// writeArtifact writes a Foundry artifact for ref into outDir.
func writeArtifact(t *testing.T, outDir, ref, abiJSON, bytecode string) {
	t.Helper()

	p, err := ArtifactPath(outDir, ref)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))

	content := `{"abi":` + abiJSON + `,"bytecode":{"object":"` + bytecode + `"}}`
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func TestParseArtifactRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref          string
		wantFile     string
		wantContract string
		wantErr      bool
	}{
		{ref: "src/ERC721Drop.sol:ERC721Drop", wantFile: "ERC721Drop.sol", wantContract: "ERC721Drop"},
		{
			ref:          "src/metadata/DropMetadataRenderer.sol:DropMetadataRenderer",
			wantFile:     "DropMetadataRenderer.sol",
			wantContract: "DropMetadataRenderer",
		},
		{ref: "ERC721Drop", wantFile: "ERC721Drop.sol", wantContract: "ERC721Drop"},
		{ref: "src/ERC721Drop.sol:", wantErr: true},
		{ref: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			t.Parallel()

			file, contract, err := ParseArtifactRef(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFile, file)
			assert.Equal(t, tt.wantContract, contract)
		})
	}
}

func TestLoadArtifact(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	writeArtifact(t, outDir, "src/ERC721Drop.sol:ERC721Drop", testHelperABI, testInitCode)

	art, err := LoadArtifact(outDir, "src/ERC721Drop.sol:ERC721Drop")
	require.NoError(t, err)
	assert.Equal(t, "src/ERC721Drop.sol:ERC721Drop", art.Ref)
	assert.Len(t, art.ABI.Constructor.Inputs, 1)
	assert.Len(t, art.Bytecode, 22)
}

func TestLoadArtifact_Errors(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	writeArtifact(t, outDir, "src/IFace.sol:IFace", `[]`, "0x")
	writeArtifact(t, outDir, "src/Linked.sol:Linked", `[]`, "0x60__$abc$__")

	_, err := LoadArtifact(outDir, "src/Missing.sol:Missing")
	require.ErrorContains(t, err, "run forge build first")

	_, err = LoadArtifact(outDir, "src/IFace.sol:IFace")
	require.ErrorContains(t, err, "has no bytecode")

	_, err = LoadArtifact(outDir, "src/Linked.sol:Linked")
	require.ErrorContains(t, err, "unlinked libraries")
}
