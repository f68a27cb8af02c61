package main

import (
	"os"

	"github.com/spf13/cobra"

	"pdf-questions/internal/app"
	"pdf-questions/internal/config"
)

var rootCmd = &cobra.Command{
	Use:          "pdfq",
	Short:        "Generate study questions from the pages of a PDF",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("file", "", "Path to the PDF (overrides PDF_PATH)")
	rootCmd.PersistentFlags().String("out", "", "Path of the output text file (overrides OUTPUT_PATH)")

	rootCmd.AddCommand(pagesCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(watchCmd)
}

// buildDeps wires dependencies with logs on stderr, applying --file and --out.
func buildDeps(cmd *cobra.Command) (app.Deps, error) {
	file, _ := cmd.Flags().GetString("file")
	out, _ := cmd.Flags().GetString("out")
	return app.BuildWith(os.Stderr, func(cfg *config.Config) {
		if file != "" {
			cfg.PDFPath = file
		}
		if out != "" {
			cfg.OutputPath = out
		}
	})
}
