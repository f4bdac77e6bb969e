package operations

import (
	"errors"
	"fmt"
)

var ErrNotSerializable = errors.New("data cannot be safely written to disk without data lost, " +
	"avoid type that can't be serialized")

// ExecuteOperation executes an operation with the given dependencies and input and journals the
// result in the bundle's reporter, successful or not.
//
// If the journal already holds a successful report for the same Definition and input, the
// operation is not executed again and that report is returned. Skipped executions are not
// journaled twice. Failed reports never short-circuit a later execution.
//
// Operations are executed exactly once. There is no retry: a failed on-chain side effect must be
// inspected by an operator before anything is attempted again.
//
// The input and output must be JSON serializable, see IsSerializable.
func ExecuteOperation[IN, OUT, DEP any](
	b Bundle,
	operation *Operation[IN, OUT, DEP],
	deps DEP,
	input IN,
) (Report[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s input: %w", operation.def.ID, ErrNotSerializable)
	}

	if previous, found := loadPreviousSuccessfulReport[IN, OUT](b, operation.def, input); found {
		b.Logger.Infow("Operation already executed. Returning previous result",
			"id", operation.def.ID, "version", operation.def.Version, "report_id", previous.ID)

		return previous, nil
	}

	output, err := operation.execute(b, deps, input)
	if err == nil && !IsSerializable(b.Logger, output) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s output: %w", operation.def.ID, ErrNotSerializable)
	}

	report := NewReport(operation.def, input, output, err)
	if rerr := b.reporter.AddReport(genericReport(report)); rerr != nil {
		return Report[IN, OUT]{}, rerr
	}

	// Return the handler's error rather than the report's flattened copy so callers can still
	// match typed errors with errors.As.
	if err != nil {
		return report, err
	}

	return report, nil
}

// ExecuteSequence executes a Sequence and returns a SequenceReport holding the sequence report and
// every report produced while it ran. Like ExecuteOperation, a previous successful execution with
// the same input is returned from the journal instead of running again.
func ExecuteSequence[IN, OUT, DEP any](
	b Bundle, sequence *Sequence[IN, OUT, DEP], deps DEP, input IN,
) (SequenceReport[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return SequenceReport[IN, OUT]{}, fmt.Errorf("sequence %s input: %w", sequence.def.ID, ErrNotSerializable)
	}

	if previous, found := loadPreviousSuccessfulReport[IN, OUT](b, sequence.def, input); found {
		executionReports, err := b.reporter.GetExecutionReports(previous.ID)
		if err != nil {
			return SequenceReport[IN, OUT]{}, err
		}
		b.Logger.Infow("Sequence already executed. Returning previous result",
			"id", sequence.def.ID, "version", sequence.def.Version, "report_id", previous.ID)

		return SequenceReport[IN, OUT]{previous, executionReports}, nil
	}

	b.Logger.Infow("Executing sequence", "id", sequence.def.ID,
		"version", sequence.def.Version, "description", sequence.def.Description)

	recent := NewRecentReporter(b.reporter)
	child := Bundle{
		Logger:          b.Logger,
		GetContext:      b.GetContext,
		reporter:        recent,
		reportHashCache: b.reportHashCache,
	}

	output, err := sequence.handler(child, deps, input)
	if errors.Is(err, ErrNotSerializable) {
		return SequenceReport[IN, OUT]{}, err
	}
	if err == nil && !IsSerializable(b.Logger, output) {
		return SequenceReport[IN, OUT]{}, fmt.Errorf("sequence %s output: %w", sequence.def.ID, ErrNotSerializable)
	}

	recentReports := recent.GetRecentReports()
	childIDs := make([]string, 0, len(recentReports))
	for _, r := range recentReports {
		childIDs = append(childIDs, r.ID)
	}

	report := NewReport(sequence.def, input, output, err, childIDs...)
	if rerr := b.reporter.AddReport(genericReport(report)); rerr != nil {
		return SequenceReport[IN, OUT]{}, rerr
	}

	executionReports, rerr := b.reporter.GetExecutionReports(report.ID)
	if rerr != nil {
		return SequenceReport[IN, OUT]{}, rerr
	}

	return SequenceReport[IN, OUT]{report, executionReports}, err
}

func loadPreviousSuccessfulReport[IN, OUT any](b Bundle, def Definition, input IN) (Report[IN, OUT], bool) {
	prevReports, err := b.reporter.GetReports()
	if err != nil {
		b.Logger.Errorw("Failed to get reports", "error", err)
		return Report[IN, OUT]{}, false
	}
	if len(prevReports) == 0 {
		return Report[IN, OUT]{}, false
	}

	currentHash, err := constructUniqueHashFrom(b.reportHashCache, def, input)
	if err != nil {
		b.Logger.Errorw("Failed to construct unique hash", "error", err)
		return Report[IN, OUT]{}, false
	}

	for _, report := range prevReports {
		if report.Err != nil {
			continue
		}

		reportHash, err := constructUniqueHashFrom(b.reportHashCache, report.Def, report.Input)
		if err != nil {
			b.Logger.Errorw("Failed to construct unique hash for previous report", "error", err)
			continue
		}
		if reportHash != currentHash {
			continue
		}

		typed, ok := typeReport[IN, OUT](report)
		if !ok {
			b.Logger.Debugw("Previous execution found but its output does not match the expected type",
				"id", def.ID, "report_id", report.ID)

			continue
		}

		return typed, true
	}

	return Report[IN, OUT]{}, false
}
