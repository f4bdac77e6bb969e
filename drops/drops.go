// Package drops defines the Zora drops deployment: the ERC721 drop implementation, its metadata
// renderer and the creator implementation wired to both.
package drops

import (
	"github.com/ourzora/drops-deployer/deployment"
	"github.com/ourzora/drops-deployer/operations"
)

// TransferHelperAddressKey is the configuration key of the externally deployed Zora ERC721
// transfer helper.
const TransferHelperAddressKey = "ZORA_ERC_721_TRANSFER_HELPER_ADDRESS"

// Logical contract names used as manifest keys.
const (
	DropContract         = "dropContract"
	DropMetadataContract = "dropMetadataContract"
	CreatorImpl          = "creatorImpl"
)

// Artifact references of the contracts, relative to the contracts repository.
const (
	ERC721DropArtifact           = "src/ERC721Drop.sol:ERC721Drop"
	DropMetadataRendererArtifact = "src/metadata/DropMetadataRenderer.sol:DropMetadataRenderer"
	ZoraNFTCreatorV1Artifact     = "src/ZoraNFTCreatorV1.sol:ZoraNFTCreatorV1"
)

// ERC721DropArgs are the constructor arguments of ERC721Drop.
type ERC721DropArgs struct {
	TransferHelper deployment.Arg
}

// Args returns the arguments in constructor order.
func (a ERC721DropArgs) Args() []deployment.Arg {
	return []deployment.Arg{a.TransferHelper}
}

// CreatorImplArgs are the constructor arguments of ZoraNFTCreatorV1:
// constructor(address _implementation, EditionMetadataRenderer _editionMetadataRenderer, ...).
type CreatorImplArgs struct {
	DropImplementation deployment.Arg
	MetadataRenderer   deployment.Arg
}

// Args returns the arguments in constructor order. This is the only place the positional order
// of the creator constructor is defined.
func (a CreatorImplArgs) Args() []deployment.Arg {
	return []deployment.Arg{a.DropImplementation, a.MetadataRenderer}
}

// Plan returns the drops deployment chain.
func Plan() deployment.Plan {
	return deployment.Plan{
		Name:         "zora-drops",
		RequiredKeys: []string{TransferHelperAddressKey},
		Build: func(cfg deployment.Config) ([]deployment.ContractSpec, error) {
			transferHelper, err := cfg.Require(TransferHelperAddressKey)
			if err != nil {
				return nil, err
			}

			return []deployment.ContractSpec{
				{
					Name:     DropContract,
					Artifact: ERC721DropArtifact,
					Args: ERC721DropArgs{
						TransferHelper: deployment.Literal(transferHelper),
					}.Args(),
				},
				{
					Name:     DropMetadataContract,
					Artifact: DropMetadataRendererArtifact,
				},
				{
					Name:     CreatorImpl,
					Artifact: ZoraNFTCreatorV1Artifact,
					Args: CreatorImplArgs{
						DropImplementation: deployment.AddressOf(DropContract),
						MetadataRenderer:   deployment.AddressOf(DropMetadataContract),
					}.Args(),
				},
			}, nil
		},
	}
}

// RunDeployment deploys the drops contracts in order and returns their manifest.
func RunDeployment(b operations.Bundle, deployer deployment.Deployer, cfg deployment.Config) (*deployment.Manifest, error) {
	return deployment.RunDeployment(b, deployer, cfg, Plan())
}
