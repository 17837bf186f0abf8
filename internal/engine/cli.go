package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io/fs"
	"os/exec"
	"strconv"
	"strings"
	"time"

	oerr "github.com/textlift/ocr-worker/internal/errors"
)

// CLIEngine invokes the tesseract binary. The binary location comes from
// configuration resolution at startup, never from a compiled-in path.
type CLIEngine struct {
	BinaryPath string
	// Timeout bounds one invocation's wall clock. Zero disables the
	// limit; the caller's context still applies.
	Timeout time.Duration
}

// NewCLIEngine constructs a CLI-backed engine.
func NewCLIEngine(binaryPath string, timeout time.Duration) *CLIEngine {
	return &CLIEngine{BinaryPath: binaryPath, Timeout: timeout}
}

// Recognize encodes the image to PNG, pipes it through tesseract and
// assembles text from the TSV on stdout, dropping words below the
// confidence floor. Stderr is kept as diagnostics when the run
// succeeds, and feeds failure classification when it does not.
func (e *CLIEngine) Recognize(ctx context.Context, img image.Image, p Params) (Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var input bytes.Buffer
	if err := png.Encode(&input, img); err != nil {
		return Result{}, oerr.NewEngineFailure("png encode for engine input", err)
	}

	args := []string{
		"stdin", "stdout",
		"-l", p.LanguageSpec,
		"--psm", strconv.Itoa(p.PageSegMode),
		"--oem", strconv.Itoa(p.EngineMode),
	}
	if p.TessdataDir != "" {
		args = append(args, "--tessdata-dir", p.TessdataDir)
	}
	// The tsv configfile gives per-word confidences for filtering.
	args = append(args, "tsv")

	cmd := exec.CommandContext(ctx, e.BinaryPath, args...)
	cmd.Stdin = &input

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	diag := strings.TrimSpace(stderr.String())
	if err != nil {
		return Result{}, classifyCLIError(e.BinaryPath, p.LanguageSpec, e.Timeout, diag, ctx.Err(), err)
	}

	text := assembleText(parseTSV(stdout.String()), minWordConfidence)
	return Result{Text: text, Diagnostics: diag}, nil
}

// classifyCLIError translates a tesseract process failure into the
// pipeline error taxonomy: binary not found, timeout, missing language
// data, or an unclassified engine error carrying stderr as detail.
func classifyCLIError(binary, langSpec string, timeout time.Duration, diag string, ctxErr, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return oerr.NewEngineNotFound(binary, err)
	}
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return oerr.NewEngineTimeout(timeout, err)
	}
	if missingLanguageData(diag) {
		return oerr.NewUnsupportedLanguage(langSpec)
	}
	return oerr.NewEngineFailure(diag, err)
}

// missingLanguageData matches tesseract's stderr when traineddata for a
// requested language cannot be loaded.
func missingLanguageData(diag string) bool {
	return strings.Contains(diag, "Failed loading language") ||
		strings.Contains(diag, "Error opening data file") ||
		strings.Contains(diag, "TESSDATA_PREFIX")
}
