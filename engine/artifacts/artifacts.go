// Package artifacts persists the outputs of a deployment run: the dated manifest of deployed
// contracts and the operations reports journal used to resume a failed run.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/ourzora/drops-deployer/deployment"
	"github.com/ourzora/drops-deployer/operations"
)

const (
	// DefaultDir is the directory manifests are written to, relative to the working directory.
	DefaultDir = "./deployments"

	// ReportsDirName is the sub directory holding the operations reports journals.
	ReportsDirName = "reports"

	JSONExt = "json"
)

// Date formats t as the day precision ISO 8601 date used in artifact names, in UTC.
func Date(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// ArtifactsDir is the directory holding deployment manifests. One manifest exists per network per
// calendar day.
type ArtifactsDir struct {
	rootPath string
}

// NewArtifactsDir creates a new ArtifactsDir rooted at rootPath. An empty rootPath uses DefaultDir.
func NewArtifactsDir(rootPath string) *ArtifactsDir {
	rootPath = strings.TrimSuffix(rootPath, "/")
	if rootPath == "" {
		rootPath = DefaultDir
	}

	return &ArtifactsDir{rootPath: rootPath}
}

// RootPath returns the directory the artifacts are written to.
func (a *ArtifactsDir) RootPath() string {
	return a.rootPath
}

// ManifestPath returns the manifest path for the date and network, e.g.
// ./deployments/2024-03-01.mainnet.json. The root is kept verbatim so the path is exactly the
// one printed to operators.
func (a *ArtifactsDir) ManifestPath(date, networkID string) string {
	return fmt.Sprintf("%s/%s.%s.%s", a.rootPath, date, networkID, JSONExt)
}

// ReportsPath returns the operations reports journal path for the date and network.
func (a *ArtifactsDir) ReportsPath(date, networkID string) string {
	return path.Join(a.rootPath, ReportsDirName, fmt.Sprintf("%s.%s-reports.%s", date, networkID, JSONExt))
}

// PersistManifest writes the manifest as indented JSON to ManifestPath, creating the directory if
// needed. An existing manifest for the same date and network is replaced entirely, never merged.
// Any failure is returned as a *deployment.IOError carrying the manifest.
func (a *ArtifactsDir) PersistManifest(m *deployment.Manifest, networkID, date string) (string, error) {
	p := a.ManifestPath(date, networkID)

	b, err := json.MarshalIndent(m, "", "  ")
	if err == nil {
		err = writeFileAtomic(p, append(b, '\n'))
	}
	if err != nil {
		return p, &deployment.IOError{Path: p, Manifest: m, Err: err}
	}

	return p, nil
}

// LoadManifest reads the manifest written for the date and network.
func (a *ArtifactsDir) LoadManifest(networkID, date string) (*deployment.Manifest, error) {
	p := a.ManifestPath(date, networkID)

	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", p, err)
	}

	m := &deployment.Manifest{}
	if err = json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest %s: %w", p, err)
	}

	return m, nil
}

// SaveOperationsReports writes the operations reports journal for the date and network. If the
// file already exists, it is overwritten.
func (a *ArtifactsDir) SaveOperationsReports(networkID, date string, reports []operations.Report[any, any]) error {
	b, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(a.ReportsPath(date, networkID), b)
}

// LoadOperationsReports reads the operations reports journal for the date and network. A missing
// journal yields no reports.
func (a *ArtifactsDir) LoadOperationsReports(networkID, date string) ([]operations.Report[any, any], error) {
	b, err := os.ReadFile(a.ReportsPath(date, networkID))
	if errors.Is(err, fs.ErrNotExist) {
		return []operations.Report[any, any]{}, nil
	}
	if err != nil {
		return nil, err
	}

	var reports []operations.Report[json.RawMessage, json.RawMessage]
	if err = json.Unmarshal(b, &reports); err != nil {
		return nil, err
	}

	anyReports := make([]operations.Report[any, any], 0, len(reports))
	for _, r := range reports {
		anyReports = append(anyReports, r.ToGenericReport())
	}

	return anyReports, nil
}
