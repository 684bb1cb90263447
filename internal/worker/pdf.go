package worker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// assembleBookPDF writes each page PNG to a scratch dir and imports them,
// in order, into a single PDF. Returns the PDF bytes.
func assembleBookPDF(pages [][]byte) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to assemble")
	}

	dir, err := os.MkdirTemp("", "storybook-pdf-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	imgFiles := make([]string, 0, len(pages))
	for i, page := range pages {
		name := filepath.Join(dir, fmt.Sprintf("page_%03d.png", i+1))
		if err := os.WriteFile(name, page, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write page %d: %w", i+1, err)
		}
		imgFiles = append(imgFiles, name)
	}

	outFile := filepath.Join(dir, "book.pdf")
	if err := api.ImportImagesFile(imgFiles, outFile, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to build pdf: %w", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}
	return data, nil
}
