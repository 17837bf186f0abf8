// Package history persists completed recognition runs. The pipeline only
// depends on the Recorder contract; storage backends are interchangeable.
package history

import (
	"context"
	"time"
)

// Record is one completed run as persisted. Text prefers the corrected
// text when spellcheck ran, else the raw engine text.
type Record struct {
	ID              string
	FileName        string
	Text            string
	SettingsSummary string
	CreatedAt       time.Time
}

// Recorder is the append/list/delete contract the pipeline writes to.
// The pipeline itself only ever appends; listing and deletion serve the
// history browsing surface.
type Recorder interface {
	// Append persists a record and returns the store-generated ID.
	Append(ctx context.Context, rec Record) (string, error)
	// List returns all records, most recent first.
	List(ctx context.Context) ([]Record, error)
	// DeleteOne removes a record by ID, reporting whether it existed.
	DeleteOne(ctx context.Context, id string) (bool, error)
	// DeleteAll removes every record and returns the count removed.
	DeleteAll(ctx context.Context) (int64, error)
	Close() error
}
