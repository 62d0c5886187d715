package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var ErrToolMissing = errors.New("external tool is not installed")

// Converter wraps the office and PDF rasterization tools.
type Converter interface {
	Office(ctx context.Context, inputPath, outDir, targetExt string) (string, error)
	Rasterize(ctx context.Context, pdfPath, outDir, format string, maxPages int) ([]string, error)
}

type Tools struct {
	Soffice  string
	Pdftoppm string
}

type DefaultConverter struct {
	soffice  string
	pdftoppm string
}

func NewDefaultConverter(tools Tools) *DefaultConverter {
	c := &DefaultConverter{
		soffice:  strings.TrimSpace(tools.Soffice),
		pdftoppm: strings.TrimSpace(tools.Pdftoppm),
	}
	if c.soffice == "" {
		c.soffice = "soffice"
		if !c.hasCommand("soffice") && c.hasCommand("libreoffice") {
			c.soffice = "libreoffice"
		}
	}
	if c.pdftoppm == "" {
		c.pdftoppm = "pdftoppm"
	}
	return c
}

// Office runs soffice --headless --convert-to and returns the produced file.
func (c *DefaultConverter) Office(ctx context.Context, inputPath, outDir, targetExt string) (string, error) {
	convertTo, expectedExt, err := libreOfficeConvertToArg(targetExt)
	if err != nil {
		return "", err
	}
	if !c.hasCommand(c.soffice) {
		return "", fmt.Errorf("%w: %s", ErrToolMissing, c.soffice)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}

	profile := filepath.Join(outDir, ".lo_profile")
	cmd := exec.CommandContext(ctx, c.soffice,
		"-env:UserInstallation=file://"+filepath.ToSlash(profile),
		"--headless", "--convert-to", convertTo, "--outdir", outDir, inputPath)
	output, err := cmd.CombinedOutput()
	defer os.RemoveAll(profile)
	if err != nil {
		return "", fmt.Errorf("libreoffice: %w, output: %s", err, strings.TrimSpace(string(output)))
	}

	baseName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	generated := filepath.Join(outDir, baseName+"."+expectedExt)
	if _, err := os.Stat(generated); os.IsNotExist(err) {
		generatedAlt := filepath.Join(outDir, baseName+"."+strings.ToUpper(expectedExt))
		if _, err2 := os.Stat(generatedAlt); err2 != nil {
			return "", fmt.Errorf("libreoffice did not create %s, output: %s", generated, strings.TrimSpace(string(output)))
		}
		generated = generatedAlt
	}
	if err := checkNotEmpty(generated); err != nil {
		return "", err
	}
	return generated, nil
}

// Rasterize renders PDF pages to png or jpg with pdftoppm. maxPages <= 0 renders all pages.
func (c *DefaultConverter) Rasterize(ctx context.Context, pdfPath, outDir, format string, maxPages int) ([]string, error) {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	flag, ext := "-png", "png"
	switch format {
	case "png", "":
	case "jpg", "jpeg":
		flag, ext = "-jpeg", "jpg"
	default:
		return nil, fmt.Errorf("unsupported raster format %q", format)
	}
	if !c.hasCommand(c.pdftoppm) {
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, c.pdftoppm)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	prefix := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))+"_p")
	args := []string{flag, "-r", "150"}
	if maxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(maxPages))
	}
	args = append(args, pdfPath, prefix)

	output, err := exec.CommandContext(ctx, c.pdftoppm, args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w, output: %s", err, strings.TrimSpace(string(output)))
	}

	pages, err := filepath.Glob(prefix + "-*." + ext)
	if err != nil {
		return nil, err
	}
	sort.Strings(pages)
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages for %s", filepath.Base(pdfPath))
	}
	return pages, nil
}

func libreOfficeConvertToArg(targetExt string) (convertTo string, expectedExt string, err error) {
	targetExt = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(targetExt), "."))
	if targetExt == "" {
		return "", "", errors.New("empty target format for libreoffice")
	}

	switch targetExt {
	case "txt":
		return "txt:Text", "txt", nil
	default:
		return targetExt, targetExt, nil
	}
}

func checkNotEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("result file is empty: %s", filepath.Base(path))
	}
	return nil
}

func (c *DefaultConverter) hasCommand(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
