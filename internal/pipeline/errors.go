package pipeline

import "fmt"

// ProcessError reports a failed processing run. Err is the pipeline failure.
// RecordErr is set when writing the failed state to the store also failed,
// in which case the stored status may still read processing or ready.
type ProcessError struct {
	DocumentID int64
	Err        error
	RecordErr  error
}

func (e *ProcessError) Error() string {
	if e.RecordErr != nil {
		return fmt.Sprintf("processing document %d: %v (recording failure also failed: %v)",
			e.DocumentID, e.Err, e.RecordErr)
	}
	return fmt.Sprintf("processing document %d: %v", e.DocumentID, e.Err)
}

func (e *ProcessError) Unwrap() []error {
	if e.RecordErr != nil {
		return []error{e.Err, e.RecordErr}
	}
	return []error{e.Err}
}

// StateRecorded reports whether the failed status and message were persisted.
func (e *ProcessError) StateRecorded() bool {
	return e.RecordErr == nil
}
