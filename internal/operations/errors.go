package operations

import (
	"fmt"
	"time"
)

// Stage identifiers
const (
	StageIngest    = "ingest"
	StageFeaturize = "featurize"
	StageTrain     = "train"
)

// StageError wraps a failure from one date's unit of work, so a failed day
// is attributable without inspecting log output
type StageError struct {
	Stage string
	Date  time.Time
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Date.Format("2006-01-02"), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
