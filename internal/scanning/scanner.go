package scanning

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds a single text extraction.
const DefaultTimeout = 30 * time.Second

var (
	// ErrTimeout is returned when an extraction exceeds its deadline.
	ErrTimeout = errors.New("text extraction timed out")
	// ErrSuperseded is returned to a caller whose extraction was replaced
	// by a newer one for the same image key.
	ErrSuperseded = errors.New("text extraction superseded by a newer request")
)

// TextExtractor turns a receipt image into raw OCR text.
// An image with no readable text yields "" and a nil error.
type TextExtractor interface {
	// ExtractText reads all text in the image. Implementations must stop
	// work and release resources when ctx is done.
	ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close releases the extractor.
	Close() error
}
