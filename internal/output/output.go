package output

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

const (
	// DownloadName is the attachment name offered to the browser.
	DownloadName = "generated_questions.txt"
	ContentType  = "text/plain; charset=utf-8"
)

var ErrNotGenerated = errors.New("no questions have been generated yet")

// File is the single flat output artifact. Every Write replaces the previous
// content.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string { return f.path }

// Write truncates the file and stores content as UTF-8 text.
func (f *File) Write(content string) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(f.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// Read returns the current content or ErrNotGenerated.
func (f *File) Read() (string, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotGenerated
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.path, err)
	}
	return string(b), nil
}

// ServeHTTP sends the artifact as a text/plain attachment.
func (f *File) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	content, err := f.Read()
	if errors.Is(err, ErrNotGenerated) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", DownloadName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}
