package deployment

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_JSONKeepsDeploymentOrder(t *testing.T) {
	t.Parallel()

	m, err := NewManifest(
		ManifestEntry{Name: "dropContract", Result: Result{DeployedAddress: "0x1"}},
		ManifestEntry{Name: "dropMetadataContract", Result: Result{DeployedAddress: "0x2"}},
		ManifestEntry{Name: "creatorImpl", Result: Result{
			DeployedAddress: "0x3",
			Verification:    json.RawMessage(`{"verified":true}`),
		}},
	)
	require.NoError(t, err)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"dropContract": {"deployedAddress": "0x1"},
		"dropMetadataContract": {"deployedAddress": "0x2"},
		"creatorImpl": {"deployedAddress": "0x3", "verification": {"verified": true}}
	}`, string(b))
	assert.Regexp(t, `^\{"dropContract".*"dropMetadataContract".*"creatorImpl"`, string(b))

	var decoded Manifest
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, m.Names(), decoded.Names())
	assert.Equal(t, m.Entries(), decoded.Entries())
}

func TestManifest_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewManifest(ManifestEntry{Name: "a"}, ManifestEntry{Name: "a"})
	require.ErrorContains(t, err, "duplicate manifest entry a")

	_, err = NewManifest(ManifestEntry{})
	require.Error(t, err)

	var m Manifest
	require.Error(t, json.Unmarshal([]byte(`[]`), &m))
	require.Error(t, json.Unmarshal([]byte(`{"a":{},"a":{}}`), &m))
}

func TestResult_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr    string
		wantErr bool
	}{
		{addr: "0x1"},
		{addr: "0xABC"},
		{addr: "0x5E0f2bDa9D0eC8c2E8E0e5cB0ED0B3d1a9aE3b4F"},
		{addr: "", wantErr: true},
		{addr: "0x", wantErr: true},
		{addr: "5E0f", wantErr: true},
		{addr: "0xZZ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()

			err := Result{DeployedAddress: tt.addr}.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMissingAddress)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("nonce too low")
	derr := &DeploymentError{
		Step: "creatorImpl", Index: 3, Total: 3, Artifact: "src/ZoraNFTCreatorV1.sol:ZoraNFTCreatorV1",
		Completed: []CompletedStep{{Name: "dropContract", Address: "0x1"}, {Name: "dropMetadataContract", Address: "0x2"}},
		Err:       cause,
	}
	assert.Equal(t,
		"deployment step 3/3 creatorImpl (src/ZoraNFTCreatorV1.sol:ZoraNFTCreatorV1) failed: nonce too low; "+
			"already deployed: dropContract=0x1, dropMetadataContract=0x2",
		derr.Error())
	require.ErrorIs(t, derr, cause)

	first := &DeploymentError{Step: "dropContract", Index: 1, Total: 3, Artifact: "A", Err: cause}
	assert.Contains(t, first.Error(), "no contracts were deployed")

	m, err := NewManifest(ManifestEntry{Name: "dropContract", Result: Result{DeployedAddress: "0x1"}})
	require.NoError(t, err)
	ioErr := &IOError{Path: "./deployments/x.json", Manifest: m, Err: cause}
	require.ErrorIs(t, ioErr, cause)
	assert.JSONEq(t, `{"dropContract":{"deployedAddress":"0x1"}}`, ioErr.ManifestJSON())

	assert.Equal(t, "missing required configuration KEY", (&ConfigurationError{Key: "KEY"}).Error())
}

func TestConfig_Get(t *testing.T) {
	t.Parallel()

	cfg := Config{"A": " 0xabc ", "B": ""}

	v, ok := cfg.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "0xabc", v)

	_, ok = cfg.Get("B")
	assert.False(t, ok)

	_, err := cfg.Require("C")
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
}
