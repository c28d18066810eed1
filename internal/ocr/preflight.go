package ocr

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	// Image formats accepted by the backends, registered for DecodeConfig.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// MIMEType maps a file path to the inline-media MIME type the API expects.
func MIMEType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mt, ok := mimeTypes[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
	return mt, nil
}

// preflight validates a document locally before any bytes are sent, so a
// corrupt file fails fast instead of burning API quota. PDFs must open and
// report their page count; images must carry a decodable header.
func preflight(path, mimeType string, log *slog.Logger) error {
	if mimeType == "application/pdf" {
		f, reader, err := pdflib.Open(path)
		if err != nil {
			return fmt.Errorf("invalid pdf: %w", err)
		}
		defer f.Close()
		log.Debug("pdf preflight", "file", filepath.Base(path), "pages", reader.NumPage())
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("invalid image: %w", err)
	}
	log.Debug("image preflight",
		"file", filepath.Base(path),
		"format", format,
		"width", cfg.Width,
		"height", cfg.Height,
	)
	return nil
}
