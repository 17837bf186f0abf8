package pipeline

import "time"

// Status is the terminal state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Result is produced once per run at completion and never mutated
// afterwards.
type Result struct {
	SourcePath string
	// RawText is the engine output. CorrectedText is set only when the
	// spellcheck pass ran.
	RawText       string
	CorrectedText string
	// Diagnostics carries engine warnings verbatim, as supplementary
	// detail for display.
	Diagnostics string
	Config      Config
	Timestamp   time.Time
	Duration    time.Duration
	Status      Status
	// Err carries the failure for StatusFailed, nil otherwise.
	Err error
}

// Text returns the text to present and persist: the corrected text when
// spellcheck ran, else the raw engine text.
func (r *Result) Text() string {
	if r.CorrectedText != "" {
		return r.CorrectedText
	}
	return r.RawText
}
