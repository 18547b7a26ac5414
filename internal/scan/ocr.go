package scan

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// OCR extracts raw text from a document image.
type OCR interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// TesseractOCR shells out to the tesseract binary.
type TesseractOCR struct {
	Binary    string
	Languages string // e.g. "spa+eng"
}

func NewTesseractOCR(binary, languages string) *TesseractOCR {
	return &TesseractOCR{Binary: binary, Languages: languages}
}

func (t *TesseractOCR) ExtractText(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, t.Binary, imagePath, "stdout", "-l", t.Languages)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("scan: tesseract failed: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}
