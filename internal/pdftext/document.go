package pdftext

import (
	"log/slog"
	"sync"
)

// Document is the fixed input file plus its extracted pages. Pages are
// extracted on first use and kept for the life of the process; a failed
// extraction is not remembered, so the next call tries again.
type Document struct {
	path      string
	extractor Extractor
	log       *slog.Logger

	mu    sync.Mutex
	pages []string
}

func NewDocument(path string, extractor Extractor, log *slog.Logger) *Document {
	return &Document{path: path, extractor: extractor, log: log}
}

func (d *Document) Path() string { return d.path }

// Pages returns the per-page text, or ErrDocumentMissing, ErrNoText or an
// extraction error.
func (d *Document) Pages() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pages != nil {
		return d.pages, nil
	}

	pages, err := d.extractor.Extract(d.path)
	if err != nil {
		d.log.Error("error extracting text from PDF", "path", d.path, "err", err)
		return nil, err
	}
	if len(pages) == 0 {
		d.log.Warn("no text extracted from PDF", "path", d.path)
		return nil, ErrNoText
	}
	d.log.Info("document loaded", "path", d.path, "pages", len(pages))
	d.pages = pages
	return pages, nil
}
