package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/ironsheep/chart-signals-mcp/internal/imaging"
	"github.com/ironsheep/chart-signals-mcp/internal/pipeline"
	"github.com/ironsheep/chart-signals-mcp/internal/server"
	"github.com/spf13/pflag"
)

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runServe(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := newFlagSet("serve", stderr)
	configPath := fs.String("config", "", "YAML config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, logger, err := setup(*configPath, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}

	logger.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Msg("Chart signals MCP server starting")

	srv := server.New(cfg, logger)
	if err := srv.Serve(stdin, stdout); err != nil {
		logger.Error().Err(err).Msg("Server error")
		return 1
	}
	return 0
}

func runExtract(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("extract", stderr)
	configPath := fs.String("config", "", "YAML config file")
	topK := fs.IntP("top-k", "k", 0, "maximum number of levels (default from config)")
	workers := fs.IntP("workers", "w", 0, "concurrent extractions (default from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "extract: at least one image path is required")
		return 2
	}

	cfg, logger, err := setup(*configPath, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}
	if *topK <= 0 {
		*topK = cfg.Extract.TopK
	}
	if *workers <= 0 {
		*workers = cfg.Extract.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	extractor := pipeline.New(logger)
	results, err := extractor.ExtractAll(ctx, imaging.LoaderFunc(imaging.LoadFile), fs.Args(), *topK, *workers)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(results); encErr != nil {
		logger.Error().Err(encErr).Msg("Failed to write results")
		return 1
	}
	if err != nil {
		logger.Error().Err(err).Msg("Extraction interrupted")
		return 1
	}

	for _, r := range results {
		if r.Err != nil {
			return 1
		}
	}
	return 0
}

func runOverlay(args []string, stderr io.Writer) int {
	fs := newFlagSet("overlay", stderr)
	configPath := fs.String("config", "", "YAML config file")
	topK := fs.IntP("top-k", "k", 0, "maximum number of levels (default from config)")
	levelColor := fs.String("level-color", imaging.DefaultLevelColor, "level line color")
	trendColor := fs.String("trend-color", imaging.DefaultTrendColor, "trend line color")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "overlay: expected IMAGE and OUT.png")
		return 2
	}
	in, out := fs.Arg(0), fs.Arg(1)

	cfg, logger, err := setup(*configPath, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}
	if *topK <= 0 {
		*topK = cfg.Extract.TopK
	}

	img, err := imaging.LoadFile(in)
	if err != nil {
		logger.Error().Err(err).Str("path", in).Msg("Failed to load image")
		return 1
	}

	analysis, err := pipeline.New(logger).Analyze(img, *topK)
	if err != nil {
		logger.Error().Err(err).Str("path", in).Msg("Extraction failed")
		return 1
	}

	opts := analysis.OverlayOptions()
	opts.LevelColor = *levelColor
	opts.TrendColor = *trendColor
	annotated := imaging.RenderOverlay(imaging.ExtractPanel(imaging.ToRGB(img)), opts)

	if err := imgio.Save(out, annotated, imgio.PNGEncoder()); err != nil {
		logger.Error().Err(err).Str("path", out).Msg("Failed to write overlay")
		return 1
	}

	logger.Info().
		Str("path", out).
		Float64("slope", analysis.Slope).
		Floats64("levels", analysis.Levels).
		Msg("Overlay written")
	return 0
}
