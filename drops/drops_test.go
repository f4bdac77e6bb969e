package drops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourzora/drops-deployer/deployment"
	"github.com/ourzora/drops-deployer/operations/optest"
)

type recordingDeployer struct {
	artifacts []string
	args      [][]string
	failAt    int
}

func (d *recordingDeployer) DeployAndVerify(_ context.Context, artifact string, args []string) (deployment.Result, error) {
	d.artifacts = append(d.artifacts, artifact)
	d.args = append(d.args, args)
	n := len(d.artifacts)
	if n == d.failAt {
		return deployment.Result{}, errors.New("execution reverted")
	}

	return deployment.Result{
		DeployedAddress: fmt.Sprintf("0x%d", n),
		Verification:    json.RawMessage(`{"verified":true}`),
	}, nil
}

func TestRunDeployment(t *testing.T) {
	t.Parallel()

	d := &recordingDeployer{}
	cfg := deployment.Config{TransferHelperAddressKey: "0xABC"}

	m, err := RunDeployment(optest.NewBundle(t), d, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{ERC721DropArtifact, DropMetadataRendererArtifact, ZoraNFTCreatorV1Artifact}, d.artifacts)
	assert.Equal(t, [][]string{{"0xABC"}, {}, {"0x1", "0x2"}}, d.args)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"dropContract": {"deployedAddress": "0x1", "verification": {"verified": true}},
		"dropMetadataContract": {"deployedAddress": "0x2", "verification": {"verified": true}},
		"creatorImpl": {"deployedAddress": "0x3", "verification": {"verified": true}}
	}`, string(b))
}

func TestRunDeployment_MissingTransferHelper(t *testing.T) {
	t.Parallel()

	d := &recordingDeployer{}

	_, err := RunDeployment(optest.NewBundle(t), d, deployment.Config{})

	var cerr *deployment.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, TransferHelperAddressKey, cerr.Key)
	assert.Empty(t, d.artifacts)
}

func TestRunDeployment_CreatorFails(t *testing.T) {
	t.Parallel()

	d := &recordingDeployer{failAt: 3}

	_, err := RunDeployment(optest.NewBundle(t), d, deployment.Config{TransferHelperAddressKey: "0xABC"})

	var derr *deployment.DeploymentError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, CreatorImpl, derr.Step)
	assert.Equal(t, []deployment.CompletedStep{
		{Name: DropContract, Address: "0x1"},
		{Name: DropMetadataContract, Address: "0x2"},
	}, derr.Completed)
}

func TestCreatorImplArgs_Order(t *testing.T) {
	t.Parallel()

	args := CreatorImplArgs{
		MetadataRenderer:   deployment.AddressOf(DropMetadataContract),
		DropImplementation: deployment.AddressOf(DropContract),
	}.Args()

	assert.Equal(t, []deployment.Arg{deployment.AddressOf(DropContract), deployment.AddressOf(DropMetadataContract)}, args)
}
