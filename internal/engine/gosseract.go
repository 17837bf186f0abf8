package engine

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	oerr "github.com/textlift/ocr-worker/internal/errors"
)

// LibraryEngine performs recognition in-process through the libtesseract
// bindings. It avoids a process spawn per run at the cost of linking
// against the C library; the CLI engine stays the default.
type LibraryEngine struct {
	Timeout time.Duration
}

// NewLibraryEngine constructs a gosseract-backed engine.
func NewLibraryEngine(timeout time.Duration) *LibraryEngine {
	return &LibraryEngine{Timeout: timeout}
}

// Recognize runs one recognition pass with a fresh client. The bindings
// expose no cancellation hook, so the call runs on its own goroutine and
// the deadline is enforced by abandoning it; the in-flight call is left
// to finish rather than killed.
func (e *LibraryEngine) Recognize(ctx context.Context, img image.Image, p Params) (Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, oerr.NewEngineFailure("png encode for engine input", err)
	}

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		client := gosseract.NewClient()
		defer client.Close()

		text, err := recognizeWithClient(client, buf.Bytes(), p)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return Result{}, oerr.NewEngineTimeout(e.Timeout, ctx.Err())
	case out := <-done:
		if out.err != nil {
			return Result{}, classifyLibraryError(p.LanguageSpec, out.err)
		}
		return Result{Text: out.text}, nil
	}
}

func recognizeWithClient(client *gosseract.Client, imageData []byte, p Params) (string, error) {
	if p.TessdataDir != "" {
		if err := client.SetTessdataPrefix(p.TessdataDir); err != nil {
			return "", err
		}
	}
	if err := client.SetLanguage(strings.Split(p.LanguageSpec, "+")...); err != nil {
		return "", err
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(p.PageSegMode)); err != nil {
		return "", err
	}
	if err := client.SetVariable("tessedit_ocr_engine_mode", strconv.Itoa(p.EngineMode)); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", err
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return "", err
	}
	words := make([]word, 0, len(boxes))
	for _, box := range boxes {
		words = append(words, word{
			block: box.BlockNum,
			par:   box.ParNum,
			line:  box.LineNum,
			text:  box.Word,
			conf:  box.Confidence,
		})
	}
	return assembleText(words, minWordConfidence), nil
}

func classifyLibraryError(langSpec string, err error) error {
	if missingLanguageData(err.Error()) {
		return oerr.NewUnsupportedLanguage(langSpec)
	}
	return oerr.NewEngineFailure(err.Error(), err)
}
