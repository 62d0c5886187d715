package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/BatmanBruc/ofmbot/internal/logger"
)

var ErrToolMissing = errors.New("tesseract is not installed")

type Engine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

type Tesseract struct {
	bin       string
	languages string
	fallback  string
	log       zerolog.Logger
}

func NewTesseract(bin, languages, fallback string) *Tesseract {
	if strings.TrimSpace(bin) == "" {
		bin = "tesseract"
	}
	if strings.TrimSpace(languages) == "" {
		languages = "uzb+rus+eng"
	}
	if strings.TrimSpace(fallback) == "" {
		fallback = "eng"
	}
	return &Tesseract{bin: bin, languages: languages, fallback: fallback, log: logger.Component("ocr")}
}

// Recognize runs tesseract with the configured languages and retries with the
// fallback language when the first run fails (usually a missing traineddata).
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	if _, err := exec.LookPath(t.bin); err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolMissing, t.bin)
	}
	text, err := t.run(ctx, imagePath, t.languages)
	if err == nil || t.fallback == t.languages {
		return text, err
	}
	t.log.Warn().Err(err).Str("file", imagePath).Str("lang", t.languages).Msg("retrying with fallback language")
	return t.run(ctx, imagePath, t.fallback)
}

func (t *Tesseract) run(ctx context.Context, imagePath, lang string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.bin, imagePath, "stdout", "-l", lang, "--psm", "6")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract (%s): %w, output: %s", lang, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// RecognizeAll runs the engine over every image and joins the texts with blank lines.
func RecognizeAll(ctx context.Context, engine Engine, images []string) (string, error) {
	texts := make([]string, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := engine.Recognize(ctx, img)
		if err != nil {
			return "", err
		}
		texts = append(texts, text)
	}
	return strings.TrimSpace(strings.Join(texts, "\n\n")), nil
}
