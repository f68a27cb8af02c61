package pdftext

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ledongthuc/pdf"
)

var (
	ErrDocumentMissing = errors.New("document does not exist")
	ErrNoText          = errors.New("no text extracted from the PDF")
)

// Extractor turns a document on disk into one plain-text string per page.
type Extractor interface {
	Extract(path string) ([]string, error)
}

// PDFExtractor reads PDFs with github.com/ledongthuc/pdf.
type PDFExtractor struct{}

// Extract returns the text of every page in page order. A page without a
// content stream yields "", so len(result) always equals the page count.
// A page that fails to decode aborts the whole extraction.
func (PDFExtractor) Extract(path string) (pages []string, err error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentMissing, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read PDF %s: %w", path, err)
	}
	defer f.Close()

	// The reader panics on malformed object graphs.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("could not read PDF %s: %v", path, rec)
		}
	}()

	numPages := r.NumPage()
	pages = make([]string, 0, numPages)
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		text, err := pageText(r.Page(pageNum))
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", pageNum, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func pageText(page pdf.Page) (string, error) {
	if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
		return "", nil
	}
	return page.GetPlainText(nil)
}
