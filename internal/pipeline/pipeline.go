// Package pipeline sequences the OCR run: load, preprocess, map the
// configuration, recognize, and optionally spellcheck, with cancellation
// checked at stage boundaries and each stage failure mapped into the
// pipeline error taxonomy unchanged.
package pipeline

import (
	"context"
	"image"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/textlift/ocr-worker/internal/engine"
	oerr "github.com/textlift/ocr-worker/internal/errors"
	"github.com/textlift/ocr-worker/internal/history"
	"github.com/textlift/ocr-worker/internal/preprocess"
	"github.com/textlift/ocr-worker/internal/spell"
)

// Stage identifies a pipeline step for progress reporting.
type Stage string

const (
	StageLoad        Stage = "load"
	StagePreprocess  Stage = "preprocess"
	StageMapConfig   Stage = "map-config"
	StageRecognize   Stage = "recognize"
	StagePostProcess Stage = "post-process"
)

// Source is the image input for one run: a file path, or a caller-owned
// buffer with a display name.
type Source struct {
	Path string
	Data []byte
}

// Name returns the display/file name used in results and history.
func (s Source) Name() string {
	if s.Path != "" {
		return filepath.Base(s.Path)
	}
	return "buffer"
}

// Pipeline executes runs against a fixed engine and recorder. It holds
// no per-run state; each run owns its image, configuration, and result
// exclusively, so no locking is needed inside a run.
type Pipeline struct {
	engine   engine.Engine
	recorder history.Recorder
	log      zerolog.Logger
}

// New builds a pipeline. The recorder may be nil when history is not
// wanted (completed results are then only delivered to the caller).
func New(eng engine.Engine, rec history.Recorder, log zerolog.Logger) *Pipeline {
	return &Pipeline{engine: eng, recorder: rec, log: log}
}

// Execute runs all stages in order and always returns a terminal
// Result. Cancellation of ctx is honored at stage boundaries only: the
// current stage finishes, the next one is not started. The engine call
// itself runs detached from cooperative cancellation so an in-flight
// engine process is never killed mid-call; its own timeout still
// applies.
func (p *Pipeline) Execute(ctx context.Context, src Source, cfg Config, notify func(Stage)) *Result {
	started := time.Now()
	cfg = cfg.clone()

	fail := func(err error) *Result {
		p.log.Error().Err(err).Str("source", src.Name()).Msg("pipeline run failed")
		return &Result{
			SourcePath: src.Path,
			Config:     cfg,
			Timestamp:  time.Now(),
			Duration:   time.Since(started),
			Status:     StatusFailed,
			Err:        err,
		}
	}
	cancelled := func() *Result {
		p.log.Info().Str("source", src.Name()).Msg("pipeline run cancelled")
		return &Result{
			SourcePath: src.Path,
			Config:     cfg,
			Timestamp:  time.Now(),
			Duration:   time.Since(started),
			Status:     StatusCancelled,
		}
	}
	enter := func(st Stage) {
		if notify != nil {
			notify(st)
		}
	}

	if err := cfg.Validate(); err != nil {
		return fail(err)
	}

	if ctx.Err() != nil {
		return cancelled()
	}
	enter(StageLoad)
	img, err := loadSource(src)
	if err != nil {
		return fail(err)
	}

	if ctx.Err() != nil {
		return cancelled()
	}
	enter(StagePreprocess)
	prepared := preprocess.Apply(img, cfg.PreprocessOptions())

	if ctx.Err() != nil {
		return cancelled()
	}
	enter(StageMapConfig)
	params, err := cfg.MapParams()
	if err != nil {
		return fail(err)
	}

	if ctx.Err() != nil {
		return cancelled()
	}
	enter(StageRecognize)
	engineRes, err := p.engine.Recognize(context.WithoutCancel(ctx), prepared, params)
	if err != nil {
		return fail(err)
	}

	corrected := ""
	if cfg.Spellcheck {
		if ctx.Err() != nil {
			return cancelled()
		}
		enter(StagePostProcess)
		corrected, err = spell.Correct(engineRes.Text, cfg.SpellcheckLanguage)
		if err != nil {
			return fail(err)
		}
	}

	p.log.Info().
		Str("source", src.Name()).
		Dur("duration", time.Since(started)).
		Int("chars", len(engineRes.Text)).
		Msg("pipeline run completed")

	return &Result{
		SourcePath:    src.Path,
		RawText:       engineRes.Text,
		CorrectedText: corrected,
		Diagnostics:   engineRes.Diagnostics,
		Config:        cfg,
		Timestamp:     time.Now(),
		Duration:      time.Since(started),
		Status:        StatusCompleted,
	}
}

// Record appends a completed result to history. Non-completed results
// and a nil recorder are no-ops. Failure is wrapped as
// PersistenceFailure; the run's own status is unaffected.
func (p *Pipeline) Record(ctx context.Context, r *Result) (string, error) {
	if p.recorder == nil || r.Status != StatusCompleted {
		return "", nil
	}

	src := Source{Path: r.SourcePath}
	id, err := p.recorder.Append(ctx, history.Record{
		FileName:        src.Name(),
		Text:            r.Text(),
		SettingsSummary: r.Config.Summary(),
		CreatedAt:       r.Timestamp,
	})
	if err != nil {
		return "", oerr.NewPersistenceFailure(err)
	}

	p.log.Debug().Str("record", id).Str("source", src.Name()).Msg("history record appended")
	return id, nil
}

func loadSource(src Source) (image.Image, error) {
	if len(src.Data) > 0 {
		return preprocess.Decode(src.Name(), src.Data)
	}
	if src.Path == "" {
		return nil, oerr.NewInvalidImage("", nil)
	}
	return preprocess.Load(src.Path)
}
