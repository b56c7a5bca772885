package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// convertHEIC writes a PNG copy of in to a temp dir. cleanup is always non-nil.
// converter is one of heif-convert, magick or sips.
func convertHEIC(ctx context.Context, r Runner, converter, in string) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "pnl-heic-*")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "screenshot.png")

	var args []string
	switch converter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return "", cleanup, fmt.Errorf("HEIC not supported: set OCR_HEIC_CONVERTER to one of heif-convert, magick, sips")
	}
	if _, err := r.Run(ctx, converter, args...); err != nil {
		return "", cleanup, fmt.Errorf("convert heic: %w", err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", cleanup, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	return out, cleanup, nil
}
