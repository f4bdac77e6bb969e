package deployment

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// CompletedStep is a step that created a contract before the chain stopped. Those contracts are
// live on-chain and cannot be rolled back.
type CompletedStep struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

// DeploymentError reports the step that failed and every step that completed before it.
// Deployed is set when the failing step created its contract before failing, typically when
// verification failed. That contract is live too but is not part of Completed.
type DeploymentError struct {
	Step      string
	Index     int // 1-based
	Total     int
	Artifact  string
	Completed []CompletedStep
	Deployed  *CompletedStep
	Err       error
}

func (e *DeploymentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "deployment step %d/%d %s (%s) failed: %v", e.Index, e.Total, e.Step, e.Artifact, e.Err)
	if e.Deployed != nil {
		fmt.Fprintf(&b, "; created but not verified: %s=%s", e.Deployed.Name, e.Deployed.Address)
	}
	if len(e.Completed) == 0 {
		if e.Deployed == nil {
			b.WriteString("; no contracts were deployed")
		}

		return b.String()
	}

	b.WriteString("; already deployed: ")
	for i, c := range e.Completed {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", c.Name, c.Address)
	}

	return b.String()
}

// LiveContracts returns every contract the failed run left on-chain, in deployment order.
func (e *DeploymentError) LiveContracts() []CompletedStep {
	live := slices.Clone(e.Completed)
	if e.Deployed != nil {
		live = append(live, *e.Deployed)
	}

	return live
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}

// IOError reports a manifest that could not be persisted after every deployment succeeded. It
// carries the manifest so the caller can still surface the addresses.
type IOError struct {
	Path     string
	Manifest *Manifest
	Err      error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to write manifest %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ManifestJSON returns the indented manifest carried by the error, or an empty string when it
// cannot be encoded.
func (e *IOError) ManifestJSON() string {
	if e.Manifest == nil {
		return ""
	}
	b, err := json.MarshalIndent(e.Manifest, "", "  ")
	if err != nil {
		return ""
	}

	return string(b)
}
