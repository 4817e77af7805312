package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/motoristapro/offerwatch/internal/offer"
)

var (
	extractHeight int
	extractApp    string
	extractJSON   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <lines.json>",
	Short: "Extract and rate an offer from recognized text lines",
	Long: `Reads a JSON array of {"text", "h", "y"} objects, as produced by OCR, and
runs extraction, validation and classification on it.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().IntVar(&extractHeight, "height", 2400, "frame height in pixels")
	extractCmd.Flags().StringVar(&extractApp, "package", "com.ubercab.driver", "foreground package used for the app badge")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print JSON instead of a card")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read lines: %w", err)
	}
	var lines []offer.TextLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("parse lines: %w", err)
	}
	if extractHeight <= 0 {
		return fmt.Errorf("height must be positive, got %d", extractHeight)
	}

	ev, card := evaluate(lines, extractHeight, offer.DetectApp(extractApp), cfg.Thresholds)
	return printEvaluation(cmd.OutOrStdout(), ev, card, extractJSON)
}
