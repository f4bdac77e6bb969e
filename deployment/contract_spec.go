package deployment

import (
	"errors"
	"fmt"
)

var ErrInvalidPlan = errors.New("invalid deployment plan")

// Arg is one constructor argument: either a literal value or the deployed address of an earlier
// step, referenced by its logical name.
type Arg struct {
	Value string `json:"value,omitempty"`
	Ref   string `json:"ref,omitempty"`
}

// Literal returns an argument holding v as is.
func Literal(v string) Arg {
	return Arg{Value: v}
}

// AddressOf returns an argument resolved to the deployed address of the step named name.
func AddressOf(name string) Arg {
	return Arg{Ref: name}
}

// IsRef reports whether the argument references an earlier deployment.
func (a Arg) IsRef() bool {
	return a.Ref != ""
}

func (a Arg) String() string {
	if a.IsRef() {
		return "addressOf(" + a.Ref + ")"
	}

	return a.Value
}

// ContractSpec describes one deployment step: the logical name the result is recorded under, the
// compiled artifact reference (e.g. "src/ERC721Drop.sol:ERC721Drop") and the ordered constructor
// arguments.
type ContractSpec struct {
	Name     string `json:"name"`
	Artifact string `json:"artifact"`
	Args     []Arg  `json:"args"`
}

// Plan is an ordered deployment chain. RequiredKeys are checked against the Config before Build
// is called, and Build returns the steps in deployment order.
type Plan struct {
	Name         string
	RequiredKeys []string
	Build        func(cfg Config) ([]ContractSpec, error)
}

// CheckConfig returns a *ConfigurationError for the first required key missing from cfg.
func (p Plan) CheckConfig(cfg Config) error {
	for _, key := range p.RequiredKeys {
		if _, err := cfg.Require(key); err != nil {
			return err
		}
	}

	return nil
}

// validateSteps enforces that names are unique and that every reference points to a step that
// runs strictly earlier.
func validateSteps(steps []ContractSpec) error {
	if len(steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidPlan)
	}

	seen := make(map[string]struct{}, len(steps))
	for i, s := range steps {
		if s.Name == "" {
			return fmt.Errorf("%w: step %d has no name", ErrInvalidPlan, i+1)
		}
		if s.Artifact == "" {
			return fmt.Errorf("%w: step %s has no artifact", ErrInvalidPlan, s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: duplicate step %s", ErrInvalidPlan, s.Name)
		}
		for j, a := range s.Args {
			if !a.IsRef() {
				continue
			}
			if _, ok := seen[a.Ref]; !ok {
				return fmt.Errorf("%w: step %s argument %d references %q which is not deployed before it",
					ErrInvalidPlan, s.Name, j, a.Ref)
			}
		}
		seen[s.Name] = struct{}{}
	}

	return nil
}

// resolveArgs turns a step's arguments into the positional values passed to the deployer.
func resolveArgs(args []Arg, addresses map[string]string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a.IsRef() {
			out = append(out, addresses[a.Ref])
			continue
		}
		out = append(out, a.Value)
	}

	return out
}
