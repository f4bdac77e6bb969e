package deployment

import (
	"github.com/Masterminds/semver/v3"

	"github.com/ourzora/drops-deployer/operations"
)

// DeployContractInput is the journaled input of one deployment step.
type DeployContractInput struct {
	Name     string   `json:"name"`
	Artifact string   `json:"artifact"`
	Args     []string `json:"args"`
}

// DeployContractOp creates and verifies a single contract through the Deployer. The returned
// result is validated here, at the boundary with the primitive, so the orchestrator only ever
// handles well formed addresses. When the primitive fails after the contract was created, the
// result keeps the live address next to the error.
var DeployContractOp = operations.NewOperation(
	"deploy-and-verify-contract",
	semver.MustParse("1.0.0"),
	"Deploys a contract artifact and verifies it on the block explorer",
	func(b operations.Bundle, deployer Deployer, input DeployContractInput) (Result, error) {
		b.Logger.Infow("Deploying contract", "name", input.Name, "artifact", input.Artifact, "args", input.Args)

		res, err := deployer.DeployAndVerify(b.GetContext(), input.Artifact, input.Args)
		if err != nil {
			if res.Validate() == nil {
				return res, err
			}

			return Result{}, err
		}
		if err = res.Validate(); err != nil {
			return Result{}, err
		}

		return res, nil
	},
)

// DeploymentInput is the journaled input of a whole plan run.
type DeploymentInput struct {
	Plan  string         `json:"plan"`
	Steps []ContractSpec `json:"steps"`
}

// DeploymentSeq runs every step of a plan in order. Its report groups the step reports of one run.
var DeploymentSeq = operations.NewSequence(
	"deploy-contracts",
	semver.MustParse("1.0.0"),
	"Deploys the contracts of a plan in order, each step consuming the addresses of earlier ones",
	runSteps,
)

// RunDeployment runs plan step by step and returns the manifest of every deployed contract.
//
// Required configuration is checked and the plan is validated before the first deployment, so a
// *ConfigurationError or ErrInvalidPlan means nothing was sent on-chain. Steps run strictly in
// order; each waits for the previous one because its arguments may reference earlier addresses.
// The first failing step stops the chain with a *DeploymentError listing the completed steps and,
// when the failing step still created its contract, that contract's address.
// Nothing is retried or rolled back.
func RunDeployment(b operations.Bundle, deployer Deployer, cfg Config, plan Plan) (*Manifest, error) {
	if err := plan.CheckConfig(cfg); err != nil {
		return nil, err
	}

	steps, err := plan.Build(cfg)
	if err != nil {
		return nil, err
	}
	if err = validateSteps(steps); err != nil {
		return nil, err
	}

	b.Logger.Infow("Starting deployment", "plan", plan.Name, "steps", len(steps))

	report, err := operations.ExecuteSequence(b, DeploymentSeq, deployer, DeploymentInput{Plan: plan.Name, Steps: steps})
	if err != nil {
		return nil, err
	}

	return NewManifest(report.Output...)
}

func runSteps(b operations.Bundle, deployer Deployer, input DeploymentInput) ([]ManifestEntry, error) {
	journaled, err := reportIDs(b.Reporter())
	if err != nil {
		return nil, err
	}

	steps := input.Steps
	addresses := make(map[string]string, len(steps))
	completed := make([]CompletedStep, 0, len(steps))
	entries := make([]ManifestEntry, 0, len(steps))

	for i, step := range steps {
		stepInput := DeployContractInput{
			Name:     step.Name,
			Artifact: step.Artifact,
			Args:     resolveArgs(step.Args, addresses),
		}

		report, err := operations.ExecuteOperation(b, DeployContractOp, deployer, stepInput)
		if err != nil {
			derr := &DeploymentError{
				Step:      step.Name,
				Index:     i + 1,
				Total:     len(steps),
				Artifact:  step.Artifact,
				Completed: completed,
				Err:       err,
			}
			if report.Output.Validate() == nil {
				derr.Deployed = &CompletedStep{
					Name:            step.Name,
					Address:         report.Output.DeployedAddress,
					TransactionHash: report.Output.TransactionHash,
				}
			}
			b.Logger.Errorw("Deployment step failed",
				"step", i+1, "name", step.Name, "completed", completed, "deployed", derr.Deployed, "error", err)

			return nil, derr
		}

		res := report.Output
		addresses[step.Name] = res.DeployedAddress
		completed = append(completed, CompletedStep{
			Name:            step.Name,
			Address:         res.DeployedAddress,
			TransactionHash: res.TransactionHash,
		})
		entries = append(entries, ManifestEntry{Name: step.Name, Result: res})

		if _, ok := journaled[report.ID]; ok {
			b.Logger.Infow("Reusing deployed contract", "step", i+1, "name", step.Name,
				"address", res.DeployedAddress, "report_id", report.ID)

			continue
		}
		b.Logger.Infow("Deployed contract", "step", i+1, "name", step.Name, "address", res.DeployedAddress)
	}

	return entries, nil
}

// reportIDs returns the IDs of the reports journaled before the run started.
func reportIDs(r operations.Reporter) (map[string]struct{}, error) {
	reports, err := r.GetReports()
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(reports))
	for _, report := range reports {
		ids[report.ID] = struct{}{}
	}

	return ids, nil
}
