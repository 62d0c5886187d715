package operations

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/BatmanBruc/ofmbot/internal/converter"
	"github.com/BatmanBruc/ofmbot/internal/formats"
	"github.com/BatmanBruc/ofmbot/internal/logger"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/internal/ocr"
	"github.com/BatmanBruc/ofmbot/internal/pdf"
	"github.com/BatmanBruc/ofmbot/internal/translate"
	"github.com/BatmanBruc/ofmbot/types"
)

// MaxRasterPages caps how many page images a PDF to png/jpg conversion sends back.
const MaxRasterPages = 8

// Input is a job file after download.
type Input struct {
	Ref  types.FileRef
	Path string
}

// Output is a result file to send back.
type Output struct {
	Path string
	Name string
}

type Executor struct {
	conv          converter.Converter
	ocr           ocr.Engine
	translator    translate.Translator
	defaultTarget string
	log           zerolog.Logger
}

func NewExecutor(conv converter.Converter, engine ocr.Engine, tr translate.Translator, defaultTarget string) *Executor {
	if defaultTarget == "" {
		defaultTarget = "uz"
	}
	return &Executor{
		conv:          conv,
		ocr:           engine,
		translator:    tr,
		defaultTarget: defaultTarget,
		log:           logger.Component("operations"),
	}
}

// Execute runs the job over the downloaded inputs and writes results into workDir.
func (e *Executor) Execute(ctx context.Context, j *Job, inputs []Input, workDir string) ([]Output, error) {
	if len(inputs) == 0 {
		return nil, ErrNoFiles
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, err
	}
	log := e.log.With().Str("job_id", j.ID).Str("op", string(j.Op)).Int64("user_id", j.UserID).Logger()
	log.Info().Int("files", len(inputs)).Msg("executing")

	switch j.Op {
	case types.OpMerge:
		return e.merge(inputs, workDir)
	case types.OpSplit:
		return e.split(j, inputs, workDir)
	case types.OpPageNum:
		return e.pageNumbers(j, inputs, workDir)
	case types.OpWatermark:
		return e.watermark(j, inputs, workDir)
	case types.OpOCR:
		return e.recognize(ctx, j, inputs, workDir)
	case types.OpTranslate:
		return e.translateFiles(ctx, j, inputs, workDir)
	case types.OpConvert:
		return e.convert(ctx, j, inputs, workDir)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownOp, j.Op)
}

func (e *Executor) merge(inputs []Input, workDir string) ([]Output, error) {
	pdfs := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if formats.IsPDF(in.Ref.Name) {
			pdfs = append(pdfs, in.Path)
		}
	}
	if len(pdfs) == 0 {
		return nil, ErrNeedPDF
	}
	out := filepath.Join(workDir, "merged.pdf")
	if err := pdf.Merge(pdfs, out); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	return []Output{{Path: out, Name: "merged.pdf"}}, nil
}

func (e *Executor) split(j *Job, inputs []Input, workDir string) ([]Output, error) {
	spec := j.Param(types.ParamRange)
	if spec == "" {
		return nil, &ParamError{Key: types.ParamRange}
	}
	in, err := firstPDFInput(inputs)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(workDir, "split.pdf")
	if _, err := pdf.Split(in.Path, out, spec); err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	return []Output{{Path: out, Name: "split.pdf"}}, nil
}

func (e *Executor) pageNumbers(j *Job, inputs []Input, workDir string) ([]Output, error) {
	in, err := firstPDFInput(inputs)
	if err != nil {
		return nil, err
	}
	pos, _ := pdf.ParsePosition(j.Param(types.ParamPosition))
	out := filepath.Join(workDir, "pagenum.pdf")
	if err := pdf.AddPageNumbers(in.Path, out, pos); err != nil {
		return nil, fmt.Errorf("page numbers: %w", err)
	}
	return []Output{{Path: out, Name: "pagenum.pdf"}}, nil
}

func (e *Executor) watermark(j *Job, inputs []Input, workDir string) ([]Output, error) {
	text := j.Param(types.ParamText)
	if text == "" {
		return nil, &ParamError{Key: types.ParamText}
	}
	in, err := firstPDFInput(inputs)
	if err != nil {
		return nil, err
	}
	pos, _ := pdf.ParsePosition(j.Param(types.ParamPosition))
	out := filepath.Join(workDir, "watermark.pdf")
	if err := pdf.Watermark(in.Path, out, text, pos); err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}
	return []Output{{Path: out, Name: "watermark.pdf"}}, nil
}

func (e *Executor) recognize(ctx context.Context, j *Job, inputs []Input, workDir string) ([]Output, error) {
	text, err := e.ocrText(ctx, inputs, workDir)
	if err != nil {
		return nil, err
	}
	if text == "" {
		text = messages.NoTextFound(j.Lang)
	}
	return writeText(workDir, "ocr.txt", text)
}

func (e *Executor) translateFiles(ctx context.Context, j *Job, inputs []Input, workDir string) ([]Output, error) {
	tgt := strings.ToLower(j.Param(types.ParamLang))
	if tgt == "" {
		tgt = e.defaultTarget
	}
	text, err := e.ocrText(ctx, inputs, workDir)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrEmptyOCR
	}
	if e.translator == nil {
		return nil, fmt.Errorf("translate: no translator configured")
	}
	translated, err := e.translator.Translate(ctx, text, tgt)
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	return writeText(workDir, "translate_"+tgt+".txt", translated)
}

// ocrText recognizes the pages of the first PDF, or every image when there is no PDF.
func (e *Executor) ocrText(ctx context.Context, inputs []Input, workDir string) (string, error) {
	if e.ocr == nil {
		return "", ocr.ErrToolMissing
	}
	var pages []string
	if in, err := firstPDFInput(inputs); err == nil {
		pages, err = e.conv.Rasterize(ctx, in.Path, filepath.Join(workDir, "pages"), "png", 0)
		if err != nil {
			return "", fmt.Errorf("rasterize: %w", err)
		}
	} else {
		for _, in := range inputs {
			if formats.IsImage(in.Ref.Name) {
				pages = append(pages, in.Path)
			}
		}
	}
	if len(pages) == 0 {
		return "", ErrNeedImageOrPDF
	}
	return ocr.RecognizeAll(ctx, e.ocr, pages)
}

type convertKind int

const (
	convertCopy convertKind = iota
	convertImageToPDF
	convertOffice
	convertRaster
	convertOfficeRaster
)

var (
	docxSources = []string{"pdf", "doc", "odt", "rtf"}
	pptxSources = []string{"pdf", "ppt"}
)

func planConvert(name, target string) (convertKind, error) {
	ext := formats.Ext(name)
	target = strings.ToLower(strings.TrimSpace(target))
	unsupported := &UnsupportedError{From: ext, To: target}
	if ext == "" {
		unsupported.From = "?"
	}
	switch target {
	case "pdf":
		switch {
		case formats.IsImage(name):
			return convertImageToPDF, nil
		case formats.IsPDF(name):
			return convertCopy, nil
		case ext != "":
			return convertOffice, nil
		}
	case "png", "jpg":
		switch {
		case formats.IsPDF(name):
			return convertRaster, nil
		case formats.IsOffice(name):
			return convertOfficeRaster, nil
		}
	case "docx":
		if oneOf(ext, docxSources) {
			return convertOffice, nil
		}
	case "pptx":
		if oneOf(ext, pptxSources) {
			return convertOffice, nil
		}
	}
	return 0, unsupported
}

func (e *Executor) convert(ctx context.Context, j *Job, inputs []Input, workDir string) ([]Output, error) {
	target := strings.ToLower(j.Param(types.ParamTarget))
	if target == "" {
		return nil, &ParamError{Key: types.ParamTarget}
	}
	in := inputs[0]
	kind, err := planConvert(in.Ref.Name, target)
	if err != nil {
		return nil, err
	}
	outDir := filepath.Join(workDir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	switch kind {
	case convertCopy:
		out := filepath.Join(outDir, "convert."+target)
		if err := copyFile(in.Path, out); err != nil {
			return nil, err
		}
		return []Output{{Path: out, Name: "convert." + target}}, nil
	case convertImageToPDF:
		out := filepath.Join(outDir, "convert.pdf")
		if err := pdf.ImagesToPDF([]string{in.Path}, out); err != nil {
			return nil, fmt.Errorf("image to pdf: %w", err)
		}
		return []Output{{Path: out, Name: "convert.pdf"}}, nil
	case convertOffice:
		out, err := e.conv.Office(ctx, in.Path, outDir, target)
		if err != nil {
			return nil, fmt.Errorf("office convert: %w", err)
		}
		name := "convert." + target
		if target != "pdf" {
			name = formats.ResultFileName(in.Ref.Name, target)
		}
		return []Output{{Path: out, Name: name}}, nil
	case convertRaster:
		return e.rasterize(ctx, in.Path, in.Ref.Name, outDir, target)
	case convertOfficeRaster:
		src, err := e.conv.Office(ctx, in.Path, filepath.Join(workDir, "pdf"), "pdf")
		if err != nil {
			return nil, fmt.Errorf("office convert: %w", err)
		}
		return e.rasterize(ctx, src, in.Ref.Name, outDir, target)
	}
	return nil, &UnsupportedError{From: formats.Ext(in.Ref.Name), To: target}
}

func (e *Executor) rasterize(ctx context.Context, pdfPath, origName, outDir, target string) ([]Output, error) {
	pages, err := e.conv.Rasterize(ctx, pdfPath, outDir, target, MaxRasterPages)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	if len(pages) > MaxRasterPages {
		pages = pages[:MaxRasterPages]
	}
	stem := strings.TrimSuffix(filepath.Base(origName), filepath.Ext(origName))
	if stem == "" || stem == "." {
		stem = "convert"
	}
	outs := make([]Output, 0, len(pages))
	for i, p := range pages {
		outs = append(outs, Output{Path: p, Name: fmt.Sprintf("%s_p%03d.%s", stem, i+1, target)})
	}
	return outs, nil
}

func firstPDFInput(inputs []Input) (Input, error) {
	for _, in := range inputs {
		if formats.IsPDF(in.Ref.Name) {
			return in, nil
		}
	}
	return Input{}, ErrNeedPDF
}

func writeText(dir, name, text string) ([]Output, error) {
	out := filepath.Join(dir, name)
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return nil, err
	}
	return []Output{{Path: out, Name: name}}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func oneOf(s string, list []string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
