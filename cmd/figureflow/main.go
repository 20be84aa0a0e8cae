// Command figureflow extracts the text, figures and captions of a local PDF
// and exports them to a directory.
//
//	figureflow -out ./export document.pdf
//
// Extraction settings are read from the same environment variables as the
// cloud functions (RENDER_DPI, WORKERS, OCR_PROVIDER, ...).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Lllllllleong/figureflow/internal/models"
	"github.com/Lllllllleong/figureflow/internal/services"
)

func main() {
	out := flag.String("out", "", "export directory (default: <pdf name>_export next to the PDF)")
	page := flag.Int("page", 0, "extract only this 1-based page")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] file.pdf\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Arg(0), *out, *page); err != nil {
		slog.Error("Extraction failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, pdfPath, outDir string, page int) error {
	if outDir == "" {
		outDir = strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + "_export"
	}

	cfg := services.LoadPipelineConfig()
	extractor, closeOCR, err := services.NewPageExtractorFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeOCR()

	open := services.OpenPDF(pdfPath, cfg.DPI)
	sink := services.DirSink{Root: outDir}

	if page > 0 {
		src, err := open()
		if err != nil {
			return err
		}
		if c, ok := src.(io.Closer); ok {
			defer c.Close()
		}

		result, err := services.ExtractSingle(ctx, extractor, src, models.PageIndex(page-1), sink)
		if err != nil {
			return err
		}
		slog.Info("Page exported.", "page", page, "figures", len(result.Figures), "dir", outDir)
		return nil
	}

	job := services.NewJob(extractor, cfg.Workers)
	result, err := services.Wait(job.Run(ctx, open), func(percent int) {
		fmt.Fprintf(os.Stderr, "\r%3d%%", percent)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	for _, idx := range result.FailedIndices() {
		slog.Warn("Page skipped.", "page", int(idx)+1, "error", result.Failed[idx])
	}

	summary, err := services.NewExporter(sink).Export(ctx, result)
	if err != nil {
		return err
	}
	slog.Info("Export complete.", "dir", outDir, "pages", summary.PageCount, "figures", summary.FigureCount, "failedPages", len(result.Failed))
	return nil
}
