// Package engine wraps the external OCR engine behind a single-method
// interface so the pipeline can run against a test double without
// spawning a real recognition process.
package engine

import (
	"context"
	"image"
)

// Params are the engine invocation parameters produced by the
// configuration mapper. LanguageSpec is already in the engine's
// multi-language syntax ("eng+deu"); an empty TessdataDir leaves the
// engine's default search path untouched.
type Params struct {
	LanguageSpec string
	TessdataDir  string
	PageSegMode  int
	EngineMode   int
}

// Result is the raw engine output. Diagnostics carries engine warnings
// verbatim; it is attached to the run result as metadata and never
// treated as an error on its own.
type Result struct {
	Text        string
	Diagnostics string
}

// Engine performs one recognition attempt. Implementations classify
// their failures into the pipeline error taxonomy; callers never retry.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, p Params) (Result, error)
}
