package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cwbudde/algo-loop/internal/cliutil"
	"github.com/cwbudde/algo-loop/library"
	"github.com/cwbudde/algo-loop/loop"
	"github.com/cwbudde/algo-loop/preset"
	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

func main() {
	catalogPath := flag.String("catalog", "library.json", "Sample library catalog JSON path")
	presetPath := flag.String("preset", "", "Preset JSON or YAML file path (optional)")
	tempo := flag.Float64("tempo", 0, "Target tempo in BPM (0 = preset tempo)")
	keyFlag := flag.String("key", "random", "Key for tuned layers (C, C#, ... B, or random)")
	tempoMin := flag.Float64("tempo-min", library.DefaultTempoMin, "Lowest source tempo to select")
	tempoMax := flag.Float64("tempo-max", library.DefaultTempoMax, "Highest source tempo to select")
	format := flag.String("format", "", "Export format override: wav or flac")
	outputDir := flag.String("output-dir", "", "Output directory override")
	workersFlag := flag.String("workers", "auto", "Clip workers: auto or integer >= 1")
	seed := flag.Int64("seed", 0, "Random seed for key and clip selection (0 = time based)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	counts := flag.Bool("counts", false, "Print catalog counts per instrument and key, then exit")
	progress := flag.Bool("progress", true, "Show a progress bar")
	flag.Parse()

	log := logrus.StandardLogger()
	if err := cliutil.ConfigureLogger(log, *logLevel); err != nil {
		fail("invalid -log-level: %v", err)
	}

	params := loop.NewDefaultParams()
	if *presetPath != "" {
		var err error
		params, err = preset.Load(*presetPath)
		if err != nil {
			fail("Error loading preset %q: %v", *presetPath, err)
		}
	}
	if *tempo != 0 {
		params.Tempo = *tempo
	}
	if *format != "" {
		params.Format = strings.ToLower(*format)
	}
	if *outputDir != "" {
		params.OutputDir = *outputDir
	}
	workers, err := cliutil.ParseWorkers(*workersFlag)
	if err != nil {
		fail("invalid -workers: %v", err)
	}
	if workers > 0 {
		params.Workers = workers
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	cat, err := library.LoadJSON(*catalogPath, *seed)
	if err != nil {
		fail("Error loading catalog %q: %v", *catalogPath, err)
	}

	if *counts {
		printCounts(cat)
		return
	}

	key, ok, err := cliutil.ParseKey(*keyFlag)
	if err != nil {
		fail("invalid -key: %v", err)
	}
	if !ok {
		key = library.RandomKey(rand.New(rand.NewSource(*seed)))
	}

	clips, keyClip, err := selectClips(cat, key, *tempoMin, *tempoMax, log)
	if err != nil {
		fail("%v", err)
	}
	if keyClip >= 0 {
		params.KeyClip = keyClip
	}

	engine := loop.NewEngine(params)
	engine.Log = log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var p *mpb.Progress
	if *progress {
		p = mpb.New(mpb.WithWidth(64))
		bar := p.AddBar(int64(len(clips)*stageCount),
			mpb.PrependDecorators(
				decor.Name("Aligning: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
		)
		engine.Observer = func(loop.Progress) { bar.Increment() }
		defer func() {
			bar.Abort(false)
			p.Wait()
		}()
	}

	fmt.Printf("Mixing %d clips in %s at %g BPM...\n", len(clips), key, params.Tempo)

	res, err := engine.Render(ctx, params.Request(clips))
	if err != nil {
		if p != nil {
			p.Shutdown()
		}
		fail("Error mixing: %v", err)
	}

	fmt.Printf("Successfully wrote %s (%d frames at %d Hz, key %s, %g BPM)\n", res.Path, res.Frames(), res.SampleRate, res.Key, res.Tempo)
	fmt.Printf("Sources archived in %s\n", res.ArchiveDir)
}

// stageCount is the number of per-clip progress events in one render.
const stageCount = 5

// selectClips runs the default queries and returns the hits as clips, plus the
// position whose key labels the export (-1 when none carries a key).
func selectClips(lib library.Querier, key loop.Key, tempoMin, tempoMax float64, log logrus.FieldLogger) ([]loop.Clip, int, error) {
	found, missed := library.Select(lib, library.DefaultQueries(key, tempoMin, tempoMax))
	for _, q := range missed {
		log.WithFields(logrus.Fields{
			"function":   "selectClips",
			"instrument": q.Instrument,
			"key_range":  q.KeyRange,
		}).Warn("No clip matches query")
	}
	if len(found) == 0 {
		return nil, -1, fmt.Errorf("no clips match key %s between %g and %g BPM", key, tempoMin, tempoMax)
	}
	clips := make([]loop.Clip, len(found))
	for i, d := range found {
		clips[i] = loop.ClipFromDescriptor(d)
	}
	return clips, library.KeyClip(found), nil
}

func printCounts(cat *library.Catalog) {
	byInst := cat.CountByInstrument()
	fmt.Println("Instruments:")
	for _, inst := range loop.Instruments {
		fmt.Printf("  %-13s %d\n", inst, byInst[inst])
	}
	byKey := cat.CountByKey()
	fmt.Println("Keys:")
	for _, k := range library.SortedKeys(byKey) {
		fmt.Printf("  %-13s %d\n", k, byKey[k])
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
