// Package forge deploys and verifies contracts by running the Foundry forge CLI.
package forge

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const redacted = "<REDACTED>"

// secretFlags are the flags whose values must never be logged. RPC URLs often embed provider keys.
var secretFlags = map[string]struct{}{
	"--rpc-url":           {},
	"--private-key":       {},
	"--etherscan-api-key": {},
}

// Runner runs a command in dir and returns its standard output, also when the command fails.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExitError is returned by ExecRunner when the command fails.
type ExitError struct {
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("%v: %s", e.Err, stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run runs the command. On failure the standard error is returned in an *ExitError.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // arguments are assembled by this package
	cmd.Dir = dir

	var outBuffer, errBuffer bytes.Buffer
	cmd.Stdout = &outBuffer
	cmd.Stderr = &errBuffer

	if err := cmd.Run(); err != nil {
		return outBuffer.Bytes(), &ExitError{Stderr: redactText(errBuffer.String(), args), Err: err}
	}

	return outBuffer.Bytes(), nil
}

// RedactArgs returns a copy of args with the values of secret flags masked.
func RedactArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		out = append(out, args[i])
		if _, ok := secretFlags[args[i]]; ok && i+1 < len(args) {
			out = append(out, redacted)
			i++ // Skip the actual secret value
		}
	}

	return out
}

// redactText masks the secret flag values of args wherever they appear in s.
func redactText(s string, args []string) string {
	for i := 0; i+1 < len(args); i++ {
		if _, ok := secretFlags[args[i]]; ok && args[i+1] != "" {
			s = strings.ReplaceAll(s, args[i+1], redacted)
		}
	}

	return s
}
