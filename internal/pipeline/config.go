package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/textlift/ocr-worker/internal/engine"
	oerr "github.com/textlift/ocr-worker/internal/errors"
	"github.com/textlift/ocr-worker/internal/preprocess"
)

// LanguageSeparator joins language codes into the engine's
// multi-language syntax.
const LanguageSeparator = "+"

// Engine-documented parameter ranges. Values outside these are rejected
// by the mapper instead of letting the engine fail opaquely.
const (
	PageSegModeMin = 0
	PageSegModeMax = 13
	EngineModeMin  = 0
	EngineModeMax  = 3
)

// Config is the user-facing configuration for one run. It is a value
// type: a run receives its own snapshot and the configuration never
// changes mid-run.
type Config struct {
	// Languages is the ordered list of engine language codes. At least
	// one is required.
	Languages []string `json:"languages"`
	// TessdataDir optionally overrides the engine's trained-data
	// directory. Empty leaves the engine default untouched.
	TessdataDir string `json:"tessdataDir,omitempty"`
	PageSegMode int    `json:"psm"`
	EngineMode  int    `json:"oem"`

	// Enabled preprocessing transforms.
	Deskew   bool `json:"deskew,omitempty"`
	CLAHE    bool `json:"clahe,omitempty"`
	Binarize bool `json:"binarize,omitempty"`

	// Spellcheck enables the correction pass; SpellcheckLanguage is
	// required exactly when it is set.
	Spellcheck         bool   `json:"spellcheck,omitempty"`
	SpellcheckLanguage string `json:"spellcheckLanguage,omitempty"`
}

// Validate enforces the structural invariants that must hold before a
// run may start. Parameter ranges and path existence are the mapper's
// concern and fail the run itself.
func (c Config) Validate() error {
	if len(c.Languages) == 0 {
		return oerr.NewInvalidConfiguration("at least one language is required")
	}
	for _, lang := range c.Languages {
		if strings.TrimSpace(lang) == "" {
			return oerr.NewInvalidConfiguration("language codes must be non-empty")
		}
	}

	if c.Spellcheck && c.SpellcheckLanguage == "" {
		return oerr.NewInvalidConfiguration("spellcheck language is required when spellcheck is enabled")
	}
	if !c.Spellcheck && c.SpellcheckLanguage != "" {
		return oerr.NewInvalidConfiguration("spellcheck language is set but spellcheck is disabled")
	}

	return nil
}

// MapParams translates the configuration into engine invocation
// parameters, validating parameter ranges and the tessdata override
// before the engine ever sees them.
func (c Config) MapParams() (engine.Params, error) {
	if err := c.Validate(); err != nil {
		return engine.Params{}, err
	}

	if c.PageSegMode < PageSegModeMin || c.PageSegMode > PageSegModeMax {
		return engine.Params{}, oerr.NewInvalidConfiguration(fmt.Sprintf(
			"page segmentation mode %d is outside %d..%d", c.PageSegMode, PageSegModeMin, PageSegModeMax))
	}
	if c.EngineMode < EngineModeMin || c.EngineMode > EngineModeMax {
		return engine.Params{}, oerr.NewInvalidConfiguration(fmt.Sprintf(
			"engine mode %d is outside %d..%d", c.EngineMode, EngineModeMin, EngineModeMax))
	}

	if c.TessdataDir != "" {
		info, err := os.Stat(c.TessdataDir)
		if err != nil || !info.IsDir() {
			return engine.Params{}, oerr.NewInvalidConfiguration(fmt.Sprintf(
				"tessdata directory %q does not exist or is not a directory", c.TessdataDir))
		}
	}

	return engine.Params{
		LanguageSpec: strings.Join(c.Languages, LanguageSeparator),
		TessdataDir:  c.TessdataDir,
		PageSegMode:  c.PageSegMode,
		EngineMode:   c.EngineMode,
	}, nil
}

// PreprocessOptions returns the transform set for the preprocessor.
func (c Config) PreprocessOptions() preprocess.Options {
	return preprocess.Options{
		Deskew:   c.Deskew,
		CLAHE:    c.CLAHE,
		Binarize: c.Binarize,
	}
}

// Summary renders the human-readable settings string stored alongside a
// history record.
func (c Config) Summary() string {
	parts := []string{
		"lang=" + strings.Join(c.Languages, LanguageSeparator),
		fmt.Sprintf("psm=%d", c.PageSegMode),
		fmt.Sprintf("oem=%d", c.EngineMode),
	}
	if c.Deskew {
		parts = append(parts, "deskew")
	}
	if c.CLAHE {
		parts = append(parts, "clahe")
	}
	if c.Binarize {
		parts = append(parts, "binarize")
	}
	if c.Spellcheck {
		parts = append(parts, "spellcheck="+c.SpellcheckLanguage)
	}
	if c.TessdataDir != "" {
		parts = append(parts, "tessdata="+c.TessdataDir)
	}
	return strings.Join(parts, " ")
}

// clone returns a snapshot with its own language slice, so the result's
// configuration cannot alias the caller's.
func (c Config) clone() Config {
	out := c
	out.Languages = append([]string(nil), c.Languages...)
	return out
}
