// ocr runs a single recognition from the command line.
//
// Usage:
//
//	ocr [flags] <image>          run recognition on one image
//	ocr history list             print saved runs, newest first
//	ocr history rm <id>          delete one saved run
//	ocr history clear            delete all saved runs
//
// The run executes on the asynchronous runner; Ctrl-C requests
// cancellation at the next stage boundary instead of killing the
// process mid-run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/textlift/ocr-worker/internal/config"
	"github.com/textlift/ocr-worker/internal/engine"
	oerr "github.com/textlift/ocr-worker/internal/errors"
	"github.com/textlift/ocr-worker/internal/history"
	"github.com/textlift/ocr-worker/internal/logging"
	"github.com/textlift/ocr-worker/internal/pipeline"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocr: %v\n", err)
		os.Exit(1)
	}

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "history" {
		os.Exit(runHistory(cfg, args[1:]))
	}
	os.Exit(runRecognize(cfg, args))
}

func runRecognize(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("ocr", flag.ExitOnError)
	var (
		langs     = fs.String("lang", "eng", "engine languages, joined with +")
		psm       = fs.Int("psm", 3, "page segmentation mode (0-13)")
		oem       = fs.Int("oem", 3, "engine mode (0-3)")
		tessdata  = fs.String("tessdata", cfg.TessdataDir, "trained data directory override")
		deskew    = fs.Bool("deskew", false, "straighten skewed text before recognition")
		clahe     = fs.Bool("clahe", false, "apply adaptive contrast enhancement")
		binarize  = fs.Bool("binarize", false, "threshold the image to black and white")
		spell     = fs.String("spell", "", "spellcheck language for the recognized text (e.g. en)")
		timeout   = fs.Duration("timeout", cfg.EngineTimeout, "engine time limit")
		verbose   = fs.Bool("v", false, "log stage progress and engine diagnostics")
		noHistory = fs.Bool("no-history", false, "skip saving the result")
	)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ocr [flags] <image>")
		fs.PrintDefaults()
		return 2
	}
	imagePath := fs.Arg(0)

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logging.New(level)

	var recorder history.Recorder
	if !*noHistory {
		var err error
		recorder, err = openRecorder(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ocr: %v\n", err)
			return 1
		}
		defer recorder.Close()
	}

	runCfg := pipeline.Config{
		Languages:          strings.Split(*langs, pipeline.LanguageSeparator),
		TessdataDir:        *tessdata,
		PageSegMode:        *psm,
		EngineMode:         *oem,
		Deskew:             *deskew,
		CLAHE:              *clahe,
		Binarize:           *binarize,
		Spellcheck:         *spell != "",
		SpellcheckLanguage: *spell,
	}

	runner := pipeline.NewRunner(pipeline.New(openEngine(cfg, *timeout), recorder, log))
	if err := runner.Start(pipeline.Source{Path: imagePath}, runCfg); err != nil {
		fmt.Fprintf(os.Stderr, "ocr: %s\n", oerr.UserMessage(err))
		return 1
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		select {
		case sig := <-sigChan:
			fmt.Fprintf(os.Stderr, "ocr: %s received, cancelling\n", sig)
			runner.Cancel()

		case ev := <-runner.Events():
			switch ev.Type {
			case pipeline.EventStage:
				if *verbose {
					fmt.Fprintf(os.Stderr, "ocr: %s\n", ev.Stage)
				}

			case pipeline.EventCompleted:
				if *verbose && ev.Result.Diagnostics != "" {
					fmt.Fprintln(os.Stderr, ev.Result.Diagnostics)
				}
				fmt.Println(ev.Result.Text())
				return 0

			case pipeline.EventCancelled:
				fmt.Fprintln(os.Stderr, "ocr: cancelled")
				return 130

			case pipeline.EventFailed:
				fmt.Fprintf(os.Stderr, "ocr: %s\n", oerr.UserMessage(ev.Result.Err))
				if detail := errorDetail(ev.Result.Err); detail != "" {
					fmt.Fprintln(os.Stderr, detail)
				}
				return 1

			case pipeline.EventWarning:
				fmt.Fprintf(os.Stderr, "ocr: warning: %s\n", oerr.UserMessage(ev.Err))
			}
		}
	}
}

func runHistory(cfg *config.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ocr history {list|rm <id>|clear}")
		return 2
	}

	recorder, err := openRecorder(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocr: %v\n", err)
		return 1
	}
	defer recorder.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "list":
		records, err := recorder.List(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ocr: %s\n", oerr.UserMessage(err))
			return 1
		}
		for _, rec := range records {
			fmt.Printf("%s  %s  %-24s  %s\n",
				rec.ID, rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				rec.FileName, rec.SettingsSummary)
		}
		return 0

	case "rm":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: ocr history rm <id>")
			return 2
		}
		deleted, err := recorder.DeleteOne(ctx, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "ocr: %s\n", oerr.UserMessage(err))
			return 1
		}
		if !deleted {
			fmt.Fprintf(os.Stderr, "ocr: no record %s\n", args[1])
			return 1
		}
		return 0

	case "clear":
		n, err := recorder.DeleteAll(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ocr: %s\n", oerr.UserMessage(err))
			return 1
		}
		fmt.Fprintf(os.Stderr, "ocr: deleted %d records\n", n)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "ocr: unknown history command %q\n", args[0])
		return 2
	}
}

func openRecorder(cfg *config.Config) (history.Recorder, error) {
	if cfg.HistoryBackend == config.HistoryBackendPostgres {
		return history.NewPostgresStore(cfg.DatabaseURL)
	}
	return history.NewSQLiteStore(cfg.HistoryPath)
}

func openEngine(cfg *config.Config, timeout time.Duration) engine.Engine {
	if cfg.EngineBackend == config.EngineBackendLibrary {
		return engine.NewLibraryEngine(timeout)
	}
	return engine.NewCLIEngine(cfg.TesseractPath, timeout)
}

func errorDetail(err error) string {
	var e *oerr.Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}
