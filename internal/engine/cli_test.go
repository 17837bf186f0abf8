package engine

import (
	"context"
	"errors"
	"image"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	oerr "github.com/textlift/ocr-worker/internal/errors"
)

func TestClassifyCLIErrorBinaryNotFound(t *testing.T) {
	err := classifyCLIError("/usr/bin/tesseract", "eng", 0, "", nil, exec.ErrNotFound)
	assert.True(t, oerr.IsKind(err, oerr.KindEngineNotFound))
}

func TestClassifyCLIErrorTimeout(t *testing.T) {
	err := classifyCLIError("/usr/bin/tesseract", "eng", 2*time.Second,
		"", context.DeadlineExceeded, errors.New("signal: killed"))
	assert.True(t, oerr.IsKind(err, oerr.KindEngineTimeout))
}

func TestClassifyCLIErrorMissingLanguageData(t *testing.T) {
	for _, diag := range []string{
		"Error opening data file /usr/share/tessdata/xyz.traineddata",
		"Failed loading language 'xyz'",
		"Please make sure the TESSDATA_PREFIX environment variable is set",
	} {
		err := classifyCLIError("/usr/bin/tesseract", "xyz", 0, diag, nil, errors.New("exit status 1"))
		assert.True(t, oerr.IsKind(err, oerr.KindUnsupportedLanguage), "diag %q", diag)
	}
}

func TestClassifyCLIErrorFallsBackToEngineFailure(t *testing.T) {
	err := classifyCLIError("/usr/bin/tesseract", "eng", 0,
		"Image too small to scale", nil, errors.New("exit status 1"))
	assert.True(t, oerr.IsKind(err, oerr.KindEngineFailure))

	var e *oerr.Error
	assert.ErrorAs(t, err, &e)
	assert.Equal(t, "Image too small to scale", e.Detail)
}

func TestRecognizeMissingBinary(t *testing.T) {
	eng := NewCLIEngine(filepath.Join(t.TempDir(), "no-such-tesseract"), time.Second)

	_, err := eng.Recognize(context.Background(),
		image.NewNRGBA(image.Rect(0, 0, 4, 4)), Params{LanguageSpec: "eng", PageSegMode: 3, EngineMode: 3})
	assert.True(t, oerr.IsKind(err, oerr.KindEngineNotFound))
}
