package scanning

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Tesseract implements TextExtractor by running the tesseract CLI
type Tesseract struct {
	path     string
	language string
}

// NewTesseract creates a new Tesseract TextExtractor.
// language is a tesseract language spec such as "eng" or "eng+deu".
func NewTesseract(path, language string) (*Tesseract, error) {
	if path == "" {
		path = "tesseract"
	}
	if language == "" {
		language = "eng"
	}

	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("finding tesseract binary: %w", err)
	}

	return &Tesseract{
		path:     resolved,
		language: language,
	}, nil
}

// ExtractText runs tesseract on the image and returns its stdout
func (t *Tesseract) ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	// tesseract cannot read HEIC or PDF
	pngData, err := prepareImage(imageData, contentType)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "receipt-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp image: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(pngData); err != nil {
		f.Close()
		return "", fmt.Errorf("writing temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing temp image: %w", err)
	}

	// psm 4: a single column of variable sized text, which is what a
	// receipt is
	cmd := exec.CommandContext(ctx, t.path, f.Name(), "stdout", "-l", t.language, "--psm", "4")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("running tesseract: %w", ctx.Err())
		}
		return "", fmt.Errorf("running tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return cleanTranscript(stdout.String()), nil
}

// Close is a no-op; each extraction runs its own process
func (t *Tesseract) Close() error {
	return nil
}
