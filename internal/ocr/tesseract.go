// Package ocr runs the tesseract binary over screenshots and returns the
// cleaned text as a parsing.Document.
package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/common"
	"github.com/joseph-ayodele/pnl-tracker/internal/parsing"
)

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	Lang          string // default "eng"
	TessdataDir   string
	PSM           int    // 6 suits a uniform block of text
	HeicConverter string // heif-convert | magick | sips
	CacheTTL      time.Duration
}

// Tesseract recognizes one image at a time; results are cached by the
// SHA-256 of the file contents.
type Tesseract struct {
	cfg    Config
	runner Runner
	cache  *cache.Cache
	mu     sync.Mutex
	logger *slog.Logger
}

type Option func(*Tesseract)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(t *Tesseract) { t.runner = r }
}

func NewTesseract(cfg Config, logger *slog.Logger, opts ...Option) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.HeicConverter == "" {
		cfg.HeicConverter = "magick"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	t := &Tesseract{
		cfg:    cfg,
		runner: execRunner{logger: logger},
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Recognize returns the normalized text of the image at path together with
// tesseract's mean word confidence (0-100).
func (t *Tesseract) Recognize(ctx context.Context, path string) (parsing.Document, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !constants.IsImageExt(ext) {
		return parsing.Document{}, fmt.Errorf("%w: %q", common.ErrUnsupportedFile, ext)
	}
	hash, err := fileHash(path)
	if err != nil {
		return parsing.Document{}, err
	}
	if doc, ok := t.cached(hash); ok {
		t.logger.Debug("ocr.cache.hit", "path", path, "sha256", hash)
		return doc, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// another caller may have finished the same image while we waited
	if doc, ok := t.cached(hash); ok {
		return doc, nil
	}

	start := time.Now()
	src := path
	if constants.IsHEICExt(ext) {
		out, cleanup, err := convertHEIC(ctx, t.runner, t.cfg.HeicConverter, path)
		defer cleanup()
		if err != nil {
			t.logger.Error("ocr.heic.failed", "path", path, "error", err)
			return parsing.Document{}, err
		}
		src = out
	}

	out, err := t.runner.Run(ctx, t.cfg.Tesseract, t.args(src, false)...)
	if err != nil {
		return parsing.Document{}, fmt.Errorf("tesseract: %w", err)
	}
	var conf float64
	if tsv, err := t.runner.Run(ctx, t.cfg.Tesseract, t.args(src, true)...); err != nil {
		t.logger.Warn("ocr.confidence.failed", "path", path, "error", err)
	} else {
		conf = meanWordConfidence(tsv)
	}

	doc := parsing.NewDocument(Normalize(string(out)), conf)
	t.cache.Set(hash, doc, cache.DefaultExpiration)
	t.logger.Info("ocr.recognize.ok",
		"path", path,
		"lines", len(doc.Lines),
		"confidence", conf,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return copyDoc(doc), nil
}

func (t *Tesseract) cached(hash string) (parsing.Document, bool) {
	v, ok := t.cache.Get(hash)
	if !ok {
		return parsing.Document{}, false
	}
	return copyDoc(v.(parsing.Document)), true
}

// tesseract <file> stdout -l <lang> [--psm n] [--tessdata-dir d] [tsv]
func (t *Tesseract) args(path string, tsv bool) []string {
	args := []string{path, "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	if tsv {
		args = append(args, "tsv")
	}
	return args
}

// meanWordConfidence averages the conf column of tesseract TSV output,
// skipping the header and non-word rows (conf -1).
func meanWordConfidence(tsv []byte) float64 {
	var sum, n float64
	for i, ln := range strings.Split(string(tsv), "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[10]), 64)
		if err != nil || v < 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash image: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyDoc(d parsing.Document) parsing.Document {
	d.Lines = slices.Clone(d.Lines)
	return d
}
