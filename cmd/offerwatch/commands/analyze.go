package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/motoristapro/offerwatch/internal/ocr"
	"github.com/motoristapro/offerwatch/internal/offer"
	"github.com/motoristapro/offerwatch/internal/orchestrator/pipeline"
	"github.com/motoristapro/offerwatch/internal/screen"
	"github.com/motoristapro/offerwatch/internal/trace"
)

var (
	analyzeApp   string
	analyzeJSON  bool
	analyzeLines bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <screenshot.png>",
	Short: "Run OCR on a saved screenshot and rate the offer",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeApp, "package", "com.ubercab.driver", "foreground package used for the app badge")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print JSON instead of a card")
	analyzeCmd.Flags().BoolVar(&analyzeLines, "lines", false, "also print the recognized lines")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.OCRTimeout*2)
	defer cancel()
	ctx, span := trace.StartSpan(ctx, "analyze")

	static, err := screen.OpenStatic(args[0])
	if err != nil {
		span.Finish(ctx, err)
		return err
	}
	engine, err := ocr.New(ocr.Options{
		Engine:    cfg.OCREngine,
		Addr:      cfg.OCRAddr,
		Languages: cfg.OCRLanguages,
		Timeout:   cfg.OCRTimeout,
	})
	if err != nil {
		span.Finish(ctx, err)
		return err
	}
	defer func() { _ = engine.Close() }()

	frame, err := pipeline.NewProcessor(static, engine).Run(ctx, false, nil)
	span.Finish(ctx, err)
	if err != nil {
		return fmt.Errorf("recognize %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if analyzeLines {
		for _, l := range frame.Lines {
			fmt.Fprintf(out, "%5d %3d  %s\n", l.Y, l.FontHeight, l.Text)
		}
	}
	ev, card := evaluate(frame.Lines, frame.Height, offer.DetectApp(analyzeApp), cfg.Thresholds)
	return printEvaluation(out, ev, card, analyzeJSON)
}
