package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/webp"

	"github.com/BatmanBruc/ofmbot/internal/formats"
)

var ErrNoInput = errors.New("no input files")

type Position string

const (
	BottomCenter Position = "bottom-center"
	TopRight     Position = "top-right"
)

// ParsePosition accepts "bottom-center"/"top-right" and their short forms.
func ParsePosition(s string) (Position, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bottom-center", "bc", "bottom":
		return BottomCenter, true
	case "top-right", "tr":
		return TopRight, true
	}
	return "", false
}

var configOnce sync.Once

func newConf() *model.Configuration {
	configOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Merge concatenates inputs in order into out.
func Merge(inputs []string, out string) error {
	if len(inputs) == 0 {
		return ErrNoInput
	}
	readers := make([]io.ReadSeeker, 0, len(inputs))
	for _, path := range inputs {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		readers = append(readers, f)
	}
	return writeTo(out, func(w io.Writer) error {
		return api.MergeRaw(readers, w, false, newConf())
	})
}

func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return api.PageCount(f, newConf())
}

// Split writes the pages selected by spec to out and returns how many were written.
func Split(in, out, spec string) (int, error) {
	total, err := PageCount(in)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	pages, err := ParseRange(spec, total)
	if err != nil {
		return 0, err
	}
	selected := make([]string, 0, len(pages))
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}

	f, err := os.Open(in)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	err = writeTo(out, func(w io.Writer) error {
		return api.Collect(f, w, selected, newConf())
	})
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// AddPageNumbers stamps "i / N" on every page.
func AddPageNumbers(in, out string, pos Position) error {
	return stamp(in, out, "%p / %P", textDescription(pos, 12, 28))
}

// Watermark stamps text on every page.
func Watermark(in, out, text string, pos Position) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("empty watermark text")
	}
	return stamp(in, out, text, textDescription(pos, 14, 34))
}

func textDescription(pos Position, points, margin int) string {
	anchor, dx, dy := "bc", 0, margin
	if pos == TopRight {
		anchor, dx, dy = "tr", -margin, -margin
	}
	return fmt.Sprintf("fontname:Helvetica, points:%d, position:%s, offset:%d %d, scalefactor:1 abs, rotation:0, opacity:1, fillcolor:#000000",
		points, anchor, dx, dy)
}

func stamp(in, out, text, desc string) error {
	wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("stamp description: %w", err)
	}
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeTo(out, func(w io.Writer) error {
		return api.AddWatermarks(f, w, nil, wm, newConf())
	})
}

// ImagesToPDF places each image on its own page. WebP images are re-encoded as PNG first.
func ImagesToPDF(images []string, out string) error {
	if len(images) == 0 {
		return ErrNoInput
	}
	readers := make([]io.Reader, 0, len(images))
	for _, path := range images {
		r, err := openImage(path)
		if err != nil {
			return fmt.Errorf("open image %s: %w", path, err)
		}
		readers = append(readers, r)
	}
	return writeTo(out, func(w io.Writer) error {
		return api.ImportImages(nil, w, readers, pdfcpu.DefaultImportConfig(), newConf())
	})
}

func openImage(path string) (io.Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if formats.Ext(path) != "webp" {
		return bytes.NewReader(data), nil
	}
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) (io.Reader, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &buf, nil
}

func writeTo(out string, fn func(w io.Writer) error) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		_ = os.Remove(out)
		return err
	}
	return f.Close()
}
