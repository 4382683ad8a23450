// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// nnconvert converts models described in JSON files into layer networks, and reports which operations
// the selected backend supports.
//
// Usage:
//
//	nnconvert [-options="backend=reference;fp16"] [-check] [-print] model1.json model2.json ...
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	_ "github.com/gomlx/nndriver/backends/default"
	"github.com/gomlx/nndriver/pkg/driver"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"k8s.io/klog/v2"
)

var (
	flagOptions = flag.String("options", "",
		"Driver options: ';'-separated list with \"backend=<name>\", \"layout=NHWC|NCHW\", \"fp16\", \"continue\" "+
			"and backend specific options, e.g. \"backend=reference;disable=Mean\". "+
			"If no backend is given, $NNDRIVER_BACKEND or the default backend is used.")
	flagCheck = flag.Bool("check", false,
		"Only report which operations are supported, instead of preparing the full network.")
	flagPrint    = flag.Bool("print", false, "Print the converted networks.")
	flagParallel = flag.Int("parallel", 0, "Number of models converted in parallel. If <= 0 uses the number of cores.")
)

// modelResult holds the outcome of processing one model file.
type modelResult struct {
	path          string
	version       string
	numOperations int
	numSupported  int
	numLayers     int
	constantBytes uint64
	float16       bool
	network       string
	elapsed       time.Duration
	err           error
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	paths := flag.Args()
	if len(paths) == 0 {
		klog.Errorf("Missing model files to convert. See 'nnconvert -help'.")
		os.Exit(1)
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	opts := must.M1(driver.ParseOptions(*flagOptions))
	d := must.M1(driver.New(opts))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	results, err := processAll(ctx, d, paths)
	if err != nil {
		klog.Errorf("Conversion interrupted: %+v", err)
		os.Exit(1)
	}
	if *flagPrint {
		for _, r := range results {
			if r.network != "" {
				fmt.Printf("\n%s:\n%s\n", r.path, r.network)
			}
		}
	}
	fmt.Println(report(d, results))
	for _, r := range results {
		if r.err != nil {
			os.Exit(1)
		}
	}
}

// processAll converts the models concurrently. A failing model doesn't stop the others: its error is
// recorded in its result. Only the interruption of ctx returns an error.
func processAll(ctx context.Context, d *driver.Driver, paths []string) ([]*modelResult, error) {
	parallelism := *flagParallel
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	results := make([]*modelResult, len(paths))
	var (
		bar *progressbar.ProgressBar
		mu  sync.Mutex
	)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("converting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionClearOnFinish())
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for ii, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[ii] = processModel(gCtx, d, path)
			if bar != nil {
				mu.Lock()
				_ = bar.Add(1)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// processModel loads and converts one model file.
func processModel(ctx context.Context, d *driver.Driver, path string) *modelResult {
	start := time.Now()
	r := &modelResult{path: path}
	defer func() { r.elapsed = time.Since(start) }()

	model, err := LoadModelFile(path)
	if err != nil {
		r.err = err
		return r
	}
	r.version = model.Version.String()
	r.numOperations = len(model.Operations)

	supported, err := d.GetSupportedOperations(model)
	if err != nil {
		r.err = err
		return r
	}
	for _, ok := range supported {
		if ok {
			r.numSupported++
		}
	}
	if *flagCheck {
		return r
	}

	prepared, err := d.PrepareModel(ctx, model)
	if err != nil {
		r.err = err
		return r
	}
	r.numLayers = prepared.Network.NumLayers()
	r.constantBytes = constantBytes(prepared.Network)
	r.float16 = prepared.Float16
	if *flagPrint {
		r.network = prepared.Network.String()
	}
	klog.V(1).Infof("%s: %s", path, prepared)
	return r
}
