package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const maxUploadBytes = 10 << 20

// saveUpload copies the "image" part of a multipart request to a
// temporary file and returns its path. The caller removes the file.
func saveUpload(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", fmt.Errorf("parse multipart form: %w", err)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return "", fmt.Errorf("read image part: %w", err)
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "scan-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return tmp.Name(), nil
}
