package receipt

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// PageReader loads a locally stored attachment as image bytes suitable for
// vision extraction. Image files are read directly; PDF receipts have their
// first page rendered to JPEG via mupdf.
type PageReader struct {
	logger *zap.Logger
}

// NewPageReader creates a new attachment page reader
func NewPageReader(logger *zap.Logger) *PageReader {
	return &PageReader{logger: logger}
}

// ReadPage returns the image bytes and MIME type for the given file
func (r *PageReader) ReadPage(path string) ([]byte, string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("attachment not found: %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jpg", ".jpeg":
		data, err := os.ReadFile(path)
		return data, "image/jpeg", err
	case ".png":
		data, err := os.ReadFile(path)
		return data, "image/png", err
	case ".pdf":
		data, err := r.renderFirstPage(path)
		return data, "image/jpeg", err
	default:
		return nil, "", fmt.Errorf("unsupported attachment type: %s", ext)
	}
}

// renderFirstPage rasterizes page 0 of a PDF to JPEG
func (r *PageReader) renderFirstPage(path string) ([]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages: %s", path)
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("failed to render PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode PDF page to JPEG: %w", err)
	}

	r.logger.Debug("Rendered PDF receipt page",
		zap.String("path", path),
		zap.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}
