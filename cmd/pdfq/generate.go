package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pdf-questions/internal/app"
	"pdf-questions/internal/batch"
)

var errNothingGenerated = errors.New("no questions were generated")

type generateOpts struct {
	apiKey string
	start  int
	end    int
	count  int
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate questions for a page range and write them to the output file",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		opts := generateOpts{}
		opts.apiKey, _ = cmd.Flags().GetString("api-key")
		opts.start, _ = cmd.Flags().GetInt("start")
		opts.end, _ = cmd.Flags().GetInt("end")
		opts.count, _ = cmd.Flags().GetInt("count")
		if opts.apiKey == "" {
			opts.apiKey = deps.Config.OpenAIKey
		}
		if opts.count == 0 {
			opts.count = deps.Config.DefaultQuestions
		}
		return runGenerate(context.Background(), deps, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	generateCmd.Flags().String("api-key", "", "OpenAI API key (defaults to OPENAI_API_KEY)")
	generateCmd.Flags().Int("start", 1, "First page, 1-indexed")
	generateCmd.Flags().Int("end", 0, "Last page, inclusive (default: last page of the document)")
	generateCmd.Flags().Int("count", 0, "Questions per page, 1-100 (default: DEFAULT_QUESTIONS)")
}

func runGenerate(ctx context.Context, deps app.Deps, opts generateOpts, stdout, stderr io.Writer) error {
	pages, err := deps.Document.Pages()
	if err != nil {
		return fmt.Errorf("load %s: %w", deps.Document.Path(), err)
	}
	if opts.end == 0 {
		opts.end = len(pages)
	}

	res, err := deps.Runner.Run(ctx, pages, batch.Params{
		APIKey:    opts.apiKey,
		StartPage: opts.start,
		EndPage:   opts.end,
		Count:     opts.count,
	}, func(line string) {
		fmt.Fprintln(stderr, line)
	})
	if err != nil {
		return err
	}

	fmt.Fprint(stdout, res.Output)
	fmt.Fprintf(stderr, "Wrote %s (%d succeeded, %d failed)\n", deps.Output.Path(), res.Succeeded, res.Failed)
	if res.AllFailed() {
		return errNothingGenerated
	}
	return nil
}
