package forge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	// FoundryTomlFileName is the Foundry project configuration file.
	FoundryTomlFileName = "foundry.toml"

	// DefaultProfile is the Foundry profile used when FOUNDRY_PROFILE is unset.
	DefaultProfile = "default"
)

// Profile is the subset of a Foundry profile the deployer needs.
type Profile struct {
	Src           string   `toml:"src"`
	Out           string   `toml:"out"`
	Libs          []string `toml:"libs"`
	SolcVersion   string   `toml:"solc_version"`
	Optimizer     bool     `toml:"optimizer"`
	OptimizerRuns uint64   `toml:"optimizer_runs"`
}

type foundryToml struct {
	Profile map[string]Profile `toml:"profile"`
}

// ReadFoundryProfile reads a profile of the foundry.toml in dir. Unset fields take the Foundry
// defaults, and a missing foundry.toml yields the defaults.
func ReadFoundryProfile(dir, profile string) (Profile, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	p := Profile{Src: "src", Out: "out", Libs: []string{"lib"}}

	data, err := os.ReadFile(filepath.Join(dir, FoundryTomlFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to read file %w", err)
	}

	var cfg foundryToml
	if err = toml.Unmarshal(data, &cfg); err != nil {
		return p, fmt.Errorf("failed to unmarshal toml: %w", err)
	}

	// named profiles inherit from the default profile
	for _, name := range []string{DefaultProfile, profile} {
		prof, ok := cfg.Profile[name]
		if !ok {
			if name != DefaultProfile {
				return p, fmt.Errorf("profile %q not found in %s", name, FoundryTomlFileName)
			}

			continue
		}
		p = mergeProfile(p, prof)
	}

	return p, nil
}

// OutDir returns the artifacts directory of the profile within the project dir.
func (p Profile) OutDir(dir string) string {
	if filepath.IsAbs(p.Out) {
		return p.Out
	}

	return filepath.Join(dir, p.Out)
}

func mergeProfile(base, over Profile) Profile {
	if over.Src != "" {
		base.Src = over.Src
	}
	if over.Out != "" {
		base.Out = over.Out
	}
	if len(over.Libs) > 0 {
		base.Libs = over.Libs
	}
	if over.SolcVersion != "" {
		base.SolcVersion = over.SolcVersion
	}
	if over.Optimizer {
		base.Optimizer = true
	}
	if over.OptimizerRuns != 0 {
		base.OptimizerRuns = over.OptimizerRuns
	}

	return base
}
