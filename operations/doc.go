/*
Package operations journals deployment work so every on-chain side effect leaves a record.

# Operations

An Operation performs at most one side effect, such as creating one contract. Executing it with
ExecuteOperation always produces a Report (input, output, error, timestamp) that is added to the
Bundle's Reporter, whether the handler succeeded or not.

# Sequences

A Sequence composes operations. Its report lists the IDs of the reports its operations produced,
and ExecuteSequence returns all of them so callers can persist the complete journal.

# Resume

When the reporter already holds a successful report with the same Definition and input, the
execution is skipped and the previous report is returned. Seed a MemoryReporter WithReports loaded
from a previous run to resume a partially completed deployment without creating contracts twice.

# Basic Usage

	op := operations.NewOperation("deploy-contract", semver.MustParse("1.0.0"),
		"Deploys a contract", handler)

	b := operations.NewBundle(context.Background, lggr, operations.NewMemoryReporter())
	report, err := operations.ExecuteOperation(b, op, deps, input)
*/
package operations
