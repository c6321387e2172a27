package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/internal/imageload"
	"github.com/ericlevine/zxscan/internal/report"
	"github.com/ericlevine/zxscan/resultparser"
	"github.com/ericlevine/zxscan/scanner"
)

// errIncomplete makes the process exit non-zero once the report is out
// when some input produced no barcode.
var errIncomplete = errors.New("some inputs produced no barcode")

func (a *app) scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <image-or-dir> [image-or-dir...]",
		Short: "Decode barcodes in image files",
		Long: `Decode barcodes in image files (PNG, JPEG, GIF, BMP, TIFF, WebP).

Directories are scanned for images; --recursive descends into
subdirectories. Files are decoded concurrently, one decoder per worker.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd.Context(), cmd, args)
		},
	}
	f := cmd.Flags()
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.IntP("workers", "w", 0, "number of files decoded at once (default number of CPUs)")
	f.StringP("output", "o", "text", "output format (text, json, yaml)")
	f.Bool("multi", false, "report every barcode in an image, not just the first")
	a.bind(cmd, false, map[string]string{
		"recursive": "scan.recursive",
		"workers":   "scan.workers",
		"output":    "scan.output",
		"multi":     "scan.multi",
	})
	return cmd
}

func (a *app) runScan(ctx context.Context, cmd *cobra.Command, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paths, err := discover(a.fs, args, a.cfg.Scan.Recursive)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images found in %v", args)
	}
	a.logger.Debug("scanning", "files", len(paths), "workers", a.cfg.Scan.Workers)

	perFile, err := a.scanFiles(ctx, paths)
	if err != nil {
		return err
	}

	var entries []report.Entry
	incomplete := false
	for _, es := range perFile {
		for _, e := range es {
			if e.Error != "" {
				incomplete = true
			}
		}
		entries = append(entries, es...)
	}
	if err := report.Write(cmd.OutOrStdout(), a.cfg.Scan.Output, entries); err != nil {
		return err
	}
	if incomplete {
		return errIncomplete
	}
	return nil
}

// scanFiles decodes paths on a.cfg.Scan.Workers goroutines. Results keep
// the order of paths.
func (a *app) scanFiles(ctx context.Context, paths []string) ([][]report.Entry, error) {
	opts, factory, err := a.decodeSettings()
	if err != nil {
		return nil, err
	}
	parsers := resultparser.Default()
	out := make([][]report.Entry, len(paths))

	workers := max(1, min(a.cfg.Scan.Workers, len(paths)))
	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range paths {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for range workers {
		reader := a.newReader(opts, factory)
		g.Go(func() error {
			for i := range jobs {
				out[i] = a.scanFile(ctx, reader, parsers, paths[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanFile decodes one file. Failures, including decoder panics on
// hostile input, become error entries.
func (a *app) scanFile(ctx context.Context, reader *scanner.BarcodeReader, parsers resultparser.Chain, path string) (entries []report.Entry) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("decoder panic", "path", path, "panic", r)
			entries = []report.Entry{report.Failure(path, fmt.Errorf("decoder panic: %v", r))}
		}
	}()

	img, err := imageload.Open(a.fs, path, a.cfg.Decode.MaxDimension)
	if err != nil {
		return []report.Entry{report.Failure(path, err)}
	}
	src := zxscan.NewImageSource(img)

	var results []*zxscan.Result
	if a.cfg.Scan.Multi {
		results, err = reader.DecodeMultiple(src)
	} else {
		var res *zxscan.Result
		res, err = reader.DecodeContext(ctx, src)
		if res != nil {
			results = []*zxscan.Result{res}
		}
	}
	if err != nil {
		return []report.Entry{report.Failure(path, err)}
	}
	if len(results) == 0 {
		why := reader.LastErr()
		if why == nil {
			why = zxscan.ErrNotFound
		}
		a.logger.Debug("no barcode", "path", path, "reason", why)
		return []report.Entry{report.Failure(path, why)}
	}

	for _, res := range results {
		entries = append(entries, report.FromResult(path, res, parsers))
	}
	return entries
}

// discover expands directories into the image files they contain. Plain
// file arguments are kept whatever their extension, so a bad path shows up
// as a failed entry rather than vanishing.
func discover(fs afero.Fs, args []string, recursive bool) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := fs.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		var found []string
		err = afero.Walk(fs, arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if path != arg && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if imageload.IsImage(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
