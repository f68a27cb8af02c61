package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pdf-questions/internal/pdftext"
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Print the number of pages in the document",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()
		return runPages(deps.Document, cmd.OutOrStdout())
	},
}

func runPages(doc *pdftext.Document, stdout io.Writer) error {
	pages, err := doc.Pages()
	if err != nil {
		return fmt.Errorf("load %s: %w", doc.Path(), err)
	}
	fmt.Fprintln(stdout, len(pages))
	return nil
}
