package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourzora/drops-deployer/deployment"
	"github.com/ourzora/drops-deployer/drops"
	"github.com/ourzora/drops-deployer/engine/artifacts"
	"github.com/ourzora/drops-deployer/engine/config"
	"github.com/ourzora/drops-deployer/pkg/logger"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var testAddresses = map[string]string{
	drops.ERC721DropArtifact:           "0x1",
	drops.DropMetadataRendererArtifact: "0x2",
	drops.ZoraNFTCreatorV1Artifact:     "0x3",
}

type fakeDeployer struct {
	failOn       string
	unverifiedOn string
	calls        []string
}

func (d *fakeDeployer) DeployAndVerify(_ context.Context, artifact string, _ []string) (deployment.Result, error) {
	d.calls = append(d.calls, artifact)
	if artifact == d.failOn {
		return deployment.Result{}, errors.New("execution reverted")
	}
	if artifact == d.unverifiedOn {
		return deployment.Result{DeployedAddress: testAddresses[artifact]}, errors.New("verification failed")
	}

	return deployment.Result{DeployedAddress: testAddresses[artifact]}, nil
}

type fakeExplorer map[string]bool

func (e fakeExplorer) IsVerified(_ context.Context, address string) (bool, error) {
	return e[address], nil
}

// testDeps returns deps loading depCfg and deploying with d. loadedNetworks records the networks the
// config loader was asked for.
func testDeps(depCfg deployment.Config, d deployment.Deployer, loadedNetworks *[]string) Deps {
	return Deps{
		ConfigLoader: func(_, network string, _ ...string) (*config.Config, error) {
			if loadedNetworks != nil {
				*loadedNetworks = append(*loadedNetworks, network)
			}

			return &config.Config{Network: network, Deployment: depCfg}, nil
		},
		DeployerFactory: func(context.Context, logger.Logger, *config.Config) (deployment.Deployer, func(), error) {
			if d == nil {
				return nil, nil, errors.New("deployer must not be created")
			}

			return d, func() {}, nil
		},
		Now: func() time.Time { return testNow },
	}
}

func execute(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand(Config{Logger: logger.Test(t), Deps: deps})

	return executeCmd(t, cmd, args...)
}

func executeCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())

	return buf.String(), err
}

func helperConfig() deployment.Config {
	return deployment.Config{drops.TransferHelperAddressKey: "0xABC"}
}

func TestDeploy(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	d := &fakeDeployer{}

	stdout, err := execute(t, testDeps(helperConfig(), d, nil), "deploy", "--network", "mainnet", "--out", out)
	require.NoError(t, err)

	p := filepath.Join(out, "2024-03-01.mainnet.json")
	assert.Contains(t, stdout, "Manifest written to "+p)
	assert.Contains(t, stdout, "creatorImpl: 0x3")

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"dropContract": {"deployedAddress": "0x1"},
		"dropMetadataContract": {"deployedAddress": "0x2"},
		"creatorImpl": {"deployedAddress": "0x3"}
	}`, string(b))

	assert.FileExists(t, filepath.Join(out, artifacts.ReportsDirName, "2024-03-01.mainnet-reports.json"))
}

func TestDeploy_MissingTransferHelper(t *testing.T) {
	t.Parallel()

	out := t.TempDir()

	_, err := execute(t, testDeps(deployment.Config{}, nil, nil), "deploy", "-n", "mainnet", "-o", out)

	var cerr *deployment.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, drops.TransferHelperAddressKey, cerr.Key)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeploy_FailureThenResume(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	failing := &fakeDeployer{failOn: drops.ZoraNFTCreatorV1Artifact}

	stdout, err := execute(t, testDeps(helperConfig(), failing, nil), "deploy", "-n", "goerli", "-o", out)

	var derr *deployment.DeploymentError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, drops.CreatorImpl, derr.Step)
	assert.Contains(t, stdout, "dropContract: 0x1")
	assert.Contains(t, stdout, "dropMetadataContract: 0x2")
	assert.NoFileExists(t, filepath.Join(out, "2024-03-01.goerli.json"))

	resumed := &fakeDeployer{}
	stdout, err = execute(t, testDeps(helperConfig(), resumed, nil), "deploy", "-n", "goerli", "-o", out, "--resume")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Resuming from 4 journaled operations")
	assert.Equal(t, []string{drops.ZoraNFTCreatorV1Artifact}, resumed.calls)

	m, err := artifacts.NewArtifactsDir(out).LoadManifest("goerli", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{drops.DropContract, drops.DropMetadataContract, drops.CreatorImpl}, m.Names())
}

func TestDeploy_CreatedButNotVerified(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	d := &fakeDeployer{unverifiedOn: drops.DropMetadataRendererArtifact}

	stdout, err := execute(t, testDeps(helperConfig(), d, nil), "deploy", "-n", "goerli", "-o", out)

	var derr *deployment.DeploymentError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, drops.DropMetadataContract, derr.Step)
	assert.Contains(t, stdout, "Deployed before the failure")
	assert.Contains(t, stdout, "dropContract: 0x1")
	assert.Contains(t, stdout, "Created by the failed step but not verified")
	assert.Contains(t, stdout, "dropMetadataContract: 0x2")
	assert.Len(t, d.calls, 2)

	reports, err := artifacts.NewArtifactsDir(out).LoadOperationsReports("goerli", "2024-03-01")
	require.NoError(t, err)
	assert.Len(t, reports, 3)
}

func TestDeploy_WithoutResumeRedeploys(t *testing.T) {
	t.Parallel()

	out := t.TempDir()

	_, err := execute(t, testDeps(helperConfig(), &fakeDeployer{}, nil), "deploy", "-n", "goerli", "-o", out)
	require.NoError(t, err)

	again := &fakeDeployer{}
	_, err = execute(t, testDeps(helperConfig(), again, nil), "deploy", "-n", "goerli", "-o", out)
	require.NoError(t, err)
	assert.Len(t, again.calls, 3)
}

func TestDeploy_Network(t *testing.T) {
	t.Setenv(NetworkEnvVar, "")

	_, err := execute(t, testDeps(helperConfig(), &fakeDeployer{}, nil), "deploy", "-o", t.TempDir())
	require.ErrorContains(t, err, "network is required")

	var networks []string
	_, err = execute(t, testDeps(helperConfig(), &fakeDeployer{}, &networks), "deploy", "--chain", "sepolia", "-o", t.TempDir())
	require.NoError(t, err)

	t.Setenv(NetworkEnvVar, "goerli")
	_, err = execute(t, testDeps(helperConfig(), &fakeDeployer{}, &networks), "deploy", "-o", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"sepolia", "goerli"}, networks)
}

func TestDeploy_IOError(t *testing.T) {
	t.Parallel()

	// a regular file where the manifest directory should be
	out := filepath.Join(t.TempDir(), "deployments")
	require.NoError(t, os.WriteFile(out, []byte("x"), 0o600))

	_, err := execute(t, testDeps(helperConfig(), &fakeDeployer{}, nil), "deploy", "-n", "mainnet", "-o", out)

	var ioErr *deployment.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, ioErr.ManifestJSON(), `"0x3"`)
}

func TestManifestCommands(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	deps := testDeps(helperConfig(), &fakeDeployer{}, nil)

	stdout, err := execute(t, deps, "manifest", "path", "-n", "mainnet", "-o", out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "2024-03-01.mainnet.json")+"\n", stdout)

	stdout, err = execute(t, deps, "manifest", "path", "-n", "mainnet", "--date", "2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, "./deployments/2023-12-31.mainnet.json\n", stdout)

	_, err = execute(t, deps, "manifest", "path", "-n", "mainnet", "--date", "yesterday")
	require.ErrorContains(t, err, "expected YYYY-MM-DD")

	// the default date is the UTC day, like the manifest written by deploy
	pst := deps
	pst.Now = func() time.Time { return time.Date(2024, 2, 29, 23, 30, 0, 0, time.FixedZone("PST", -8*3600)) }
	stdout, err = execute(t, pst, "manifest", "path", "-n", "mainnet")
	require.NoError(t, err)
	assert.Equal(t, "./deployments/2024-03-01.mainnet.json\n", stdout)

	_, err = execute(t, deps, "deploy", "-n", "mainnet", "-o", out)
	require.NoError(t, err)

	stdout, err = execute(t, deps, "manifest", "show", "-n", "mainnet", "-o", out)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"dropContract": {"deployedAddress": "0x1"},
		"dropMetadataContract": {"deployedAddress": "0x2"},
		"creatorImpl": {"deployedAddress": "0x3"}
	}`, stdout)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	deps := testDeps(helperConfig(), &fakeDeployer{}, nil)

	_, err := execute(t, deps, "deploy", "-n", "mainnet", "-o", out)
	require.NoError(t, err)

	deps.ExplorerFactory = func(logger.Logger, *config.Config) (VerificationChecker, error) {
		return fakeExplorer{"0x1": true, "0x2": true, "0x3": true}, nil
	}
	stdout, err := execute(t, deps, "verify", "-n", "mainnet", "-o", out)
	require.NoError(t, err)
	assert.Regexp(t, `creatorImpl\s+\|\s+0x3\s+\|\s+verified`, stdout)

	deps.ExplorerFactory = func(logger.Logger, *config.Config) (VerificationChecker, error) {
		return fakeExplorer{"0x1": true}, nil
	}
	stdout, err = execute(t, deps, "verify", "-n", "mainnet", "-o", out)
	require.EqualError(t, err, "2 of 3 contracts are not verified")
	assert.Regexp(t, `dropMetadataContract\s+\|\s+0x2\s+\|\s+NOT verified`, stdout)
}

func TestExamples(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "  # a\n  b", examples("\n\t\t# a\n\t\tb\n"))
	assert.Equal(t, "first\n\t\tsecond", longDesc("\n\t\tfirst\n\t\tsecond\n"))
	assert.Empty(t, examples(""))
}
