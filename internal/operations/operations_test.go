package operations

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/internal/pdf"
	"github.com/BatmanBruc/ofmbot/types"
)

type stubConverter struct {
	pages     int
	officeErr error
	calls     []string
}

func (c *stubConverter) Office(_ context.Context, in, outDir, target string) (string, error) {
	c.calls = append(c.calls, "office:"+target)
	if c.officeErr != nil {
		return "", c.officeErr
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))+"."+target)
	return out, os.WriteFile(out, []byte("converted "+target), 0o644)
}

func (c *stubConverter) Rasterize(_ context.Context, pdfPath, outDir, format string, maxPages int) ([]string, error) {
	c.calls = append(c.calls, fmt.Sprintf("raster:%s:%d", format, maxPages))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	n := c.pages
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := filepath.Join(outDir, fmt.Sprintf("page-%02d.%s", i, format))
		if err := os.WriteFile(p, []byte("img"), 0o644); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type stubOCR struct {
	text map[string]string
}

func (s *stubOCR) Recognize(_ context.Context, path string) (string, error) {
	return s.text[filepath.Base(path)], nil
}

type stubTranslator struct {
	err error
}

func (s *stubTranslator) Translate(_ context.Context, text, target string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "[" + target + "] " + text, nil
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 60))
	for x := 0; x < 40; x++ {
		img.Set(x, x, color.RGBA{G: 180, A: 255})
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func makePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	imgs := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		imgs = append(imgs, writePNG(t, dir, fmt.Sprintf("%s_%d.png", name, i)))
	}
	out := filepath.Join(dir, name)
	require.NoError(t, pdf.ImagesToPDF(imgs, out))
	return out
}

func input(path, name string) Input {
	return Input{Ref: types.FileRef{FileID: "id-" + name, Name: name}, Path: path}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestValidate(t *testing.T) {
	pdfFile := []types.FileRef{{FileID: "1", Name: "a.pdf"}}
	img := []types.FileRef{{FileID: "1", Name: "photo_1.jpg"}}
	docx := []types.FileRef{{FileID: "1", Name: "report.docx"}}

	cases := []struct {
		name   string
		job    *Job
		wantIs error
	}{
		{"no files", &Job{Op: types.OpMerge}, ErrNoFiles},
		{"merge ok", &Job{Op: types.OpMerge, Files: pdfFile}, nil},
		{"merge without pdf", &Job{Op: types.OpMerge, Files: img}, ErrNeedPDF},
		{"split needs range", &Job{Op: types.OpSplit, Files: pdfFile}, ErrNeedParam},
		{"split ok", &Job{Op: types.OpSplit, Files: pdfFile, Params: map[string]string{types.ParamRange: "1-2"}}, nil},
		{"watermark needs text", &Job{Op: types.OpWatermark, Files: pdfFile}, ErrNeedParam},
		{"watermark needs pdf", &Job{Op: types.OpWatermark, Files: img, Params: map[string]string{types.ParamText: "x"}}, ErrNeedPDF},
		{"pagenum ok", &Job{Op: types.OpPageNum, Files: pdfFile}, nil},
		{"ocr image", &Job{Op: types.OpOCR, Files: img}, nil},
		{"ocr docx", &Job{Op: types.OpOCR, Files: docx}, ErrNeedImageOrPDF},
		{"translate pdf", &Job{Op: types.OpTranslate, Files: pdfFile}, nil},
		{"convert needs target", &Job{Op: types.OpConvert, Files: docx}, ErrNeedParam},
		{"convert ok", &Job{Op: types.OpConvert, Files: docx, Params: map[string]string{types.ParamTarget: "pdf"}}, nil},
		{"convert unsupported", &Job{Op: types.OpConvert, Files: img, Params: map[string]string{types.ParamTarget: "docx"}}, ErrUnsupported},
		{"unknown op", &Job{Op: "zip", Files: pdfFile}, ErrUnknownOp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.job)
			if tc.wantIs == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantIs)
		})
	}
}

func TestPlanConvert(t *testing.T) {
	cases := []struct {
		name, target string
		want         convertKind
		ok           bool
	}{
		{"a.png", "pdf", convertImageToPDF, true},
		{"a.webp", "pdf", convertImageToPDF, true},
		{"a.pdf", "pdf", convertCopy, true},
		{"a.docx", "pdf", convertOffice, true},
		{"a.xlsx", "pdf", convertOffice, true},
		{"a.pdf", "png", convertRaster, true},
		{"a.pdf", "jpg", convertRaster, true},
		{"a.docx", "png", convertOfficeRaster, true},
		{"a.pdf", "docx", convertOffice, true},
		{"a.rtf", "docx", convertOffice, true},
		{"a.ppt", "pptx", convertOffice, true},
		{"a.pdf", "pptx", convertOffice, true},
		{"a.png", "jpg", 0, false},
		{"a.docx", "pptx", 0, false},
		{"a.xlsx", "docx", 0, false},
		{"noext", "pdf", 0, false},
	}
	for _, tc := range cases {
		got, err := planConvert(tc.name, tc.target)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrUnsupported, "%s -> %s", tc.name, tc.target)
			continue
		}
		require.NoError(t, err, "%s -> %s", tc.name, tc.target)
		assert.Equal(t, tc.want, got, "%s -> %s", tc.name, tc.target)
	}
}

func TestExecute_MergeSkipsNonPDF(t *testing.T) {
	dir := t.TempDir()
	a := makePDF(t, dir, "a.pdf", 2)
	b := makePDF(t, dir, "b.pdf", 3)
	img := writePNG(t, dir, "x.png")

	e := NewExecutor(&stubConverter{}, nil, nil, "")
	outs, err := e.Execute(context.Background(), &Job{ID: "j1", Op: types.OpMerge},
		[]Input{input(a, "a.pdf"), input(img, "x.png"), input(b, "b.pdf")}, filepath.Join(dir, "work"))
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "merged.pdf", outs[0].Name)

	n, err := pdf.PageCount(outs[0].Path)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestExecute_Split(t *testing.T) {
	dir := t.TempDir()
	in := makePDF(t, dir, "doc.pdf", 5)

	e := NewExecutor(&stubConverter{}, nil, nil, "")
	job := &Job{ID: "j2", Op: types.OpSplit, Params: map[string]string{types.ParamRange: "4-2, 5"}}
	outs, err := e.Execute(context.Background(), job, []Input{input(in, "doc.pdf")}, filepath.Join(dir, "work"))
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "split.pdf", outs[0].Name)

	n, err := pdf.PageCount(outs[0].Path)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	job.Params[types.ParamRange] = "9-12"
	_, err = e.Execute(context.Background(), job, []Input{input(in, "doc.pdf")}, filepath.Join(dir, "work2"))
	assert.ErrorIs(t, err, pdf.ErrNoPages)
}

func TestExecute_Stamps(t *testing.T) {
	dir := t.TempDir()
	in := makePDF(t, dir, "doc.pdf", 3)
	e := NewExecutor(&stubConverter{}, nil, nil, "")

	outs, err := e.Execute(context.Background(), &Job{ID: "j3", Op: types.OpPageNum}, []Input{input(in, "doc.pdf")}, filepath.Join(dir, "w1"))
	require.NoError(t, err)
	assert.Equal(t, "pagenum.pdf", outs[0].Name)
	n, err := pdf.PageCount(outs[0].Path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	job := &Job{ID: "j4", Op: types.OpWatermark, Params: map[string]string{types.ParamText: "MAXFIY", types.ParamPosition: "top-right"}}
	outs, err = e.Execute(context.Background(), job, []Input{input(in, "doc.pdf")}, filepath.Join(dir, "w2"))
	require.NoError(t, err)
	assert.Equal(t, "watermark.pdf", outs[0].Name)
	n, err = pdf.PageCount(outs[0].Path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestExecute_OCRFromPDF(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(in, []byte("%PDF"), 0o644))

	conv := &stubConverter{pages: 2}
	engine := &stubOCR{text: map[string]string{"page-01.png": "birinchi", "page-02.png": "ikkinchi"}}
	e := NewExecutor(conv, engine, nil, "")

	outs, err := e.Execute(context.Background(), &Job{ID: "j5", Op: types.OpOCR}, []Input{input(in, "scan.pdf")}, filepath.Join(dir, "work"))
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "ocr.txt", outs[0].Name)
	assert.Equal(t, "birinchi\n\nikkinchi", readFile(t, outs[0].Path))
	assert.Equal(t, []string{"raster:png:0"}, conv.calls)
}

func TestExecute_OCREmptyImages(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "photo_1.jpg")
	e := NewExecutor(&stubConverter{}, &stubOCR{}, nil, "")

	outs, err := e.Execute(context.Background(), &Job{ID: "j6", Op: types.OpOCR, Lang: i18n.UZ}, []Input{input(img, "photo_1.jpg")}, filepath.Join(dir, "work"))
	require.NoError(t, err)
	assert.Equal(t, messages.NoTextFound(i18n.UZ), readFile(t, outs[0].Path))
}

func TestExecute_Translate(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "a.png")
	engine := &stubOCR{text: map[string]string{"a.png": "hello"}}

	e := NewExecutor(&stubConverter{}, engine, &stubTranslator{}, "uz")
	outs, err := e.Execute(context.Background(), &Job{ID: "j7", Op: types.OpTranslate}, []Input{input(img, "a.png")}, filepath.Join(dir, "w1"))
	require.NoError(t, err)
	assert.Equal(t, "translate_uz.txt", outs[0].Name)
	assert.Equal(t, "[uz] hello", readFile(t, outs[0].Path))

	job := &Job{ID: "j8", Op: types.OpTranslate, Params: map[string]string{types.ParamLang: "en"}}
	outs, err = e.Execute(context.Background(), job, []Input{input(img, "a.png")}, filepath.Join(dir, "w2"))
	require.NoError(t, err)
	assert.Equal(t, "translate_en.txt", outs[0].Name)

	e = NewExecutor(&stubConverter{}, &stubOCR{}, &stubTranslator{}, "uz")
	_, err = e.Execute(context.Background(), &Job{ID: "j9", Op: types.OpTranslate}, []Input{input(img, "a.png")}, filepath.Join(dir, "w3"))
	assert.ErrorIs(t, err, ErrEmptyOCR)

	e = NewExecutor(&stubConverter{}, engine, &stubTranslator{err: errors.New("boom")}, "uz")
	_, err = e.Execute(context.Background(), &Job{ID: "j10", Op: types.OpTranslate}, []Input{input(img, "a.png")}, filepath.Join(dir, "w4"))
	assert.Error(t, err)
}

func TestExecute_Convert(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "photo.png")
	doc := filepath.Join(dir, "report.docx")
	require.NoError(t, os.WriteFile(doc, []byte("docx"), 0o644))
	scan := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(scan, []byte("%PDF"), 0o644))

	conv := &stubConverter{pages: 12}
	e := NewExecutor(conv, nil, nil, "")
	target := func(t string) map[string]string { return map[string]string{types.ParamTarget: t} }

	outs, err := e.Execute(context.Background(), &Job{ID: "c1", Op: types.OpConvert, Params: target("pdf")}, []Input{input(img, "photo.png")}, filepath.Join(dir, "w1"))
	require.NoError(t, err)
	assert.Equal(t, "convert.pdf", outs[0].Name)
	n, err := pdf.PageCount(outs[0].Path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	outs, err = e.Execute(context.Background(), &Job{ID: "c2", Op: types.OpConvert, Params: target("pdf")}, []Input{input(doc, "report.docx")}, filepath.Join(dir, "w2"))
	require.NoError(t, err)
	assert.Equal(t, "convert.pdf", outs[0].Name)
	assert.Equal(t, "converted pdf", readFile(t, outs[0].Path))

	outs, err = e.Execute(context.Background(), &Job{ID: "c3", Op: types.OpConvert, Params: target("docx")}, []Input{input(scan, "scan.pdf")}, filepath.Join(dir, "w3"))
	require.NoError(t, err)
	assert.Equal(t, "scan.docx", outs[0].Name)

	outs, err = e.Execute(context.Background(), &Job{ID: "c4", Op: types.OpConvert, Params: target("jpg")}, []Input{input(scan, "scan.pdf")}, filepath.Join(dir, "w4"))
	require.NoError(t, err)
	require.Len(t, outs, MaxRasterPages)
	assert.Equal(t, "scan_p001.jpg", outs[0].Name)
	assert.Equal(t, "scan_p008.jpg", outs[7].Name)

	conv.calls = nil
	outs, err = e.Execute(context.Background(), &Job{ID: "c5", Op: types.OpConvert, Params: target("png")}, []Input{input(doc, "report.docx")}, filepath.Join(dir, "w5"))
	require.NoError(t, err)
	assert.Len(t, outs, MaxRasterPages)
	assert.Equal(t, []string{"office:pdf", "raster:png:8"}, conv.calls)

	_, err = e.Execute(context.Background(), &Job{ID: "c6", Op: types.OpConvert, Params: target("docx")}, []Input{input(img, "photo.png")}, filepath.Join(dir, "w6"))
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "png", unsupported.From)
	assert.Equal(t, "docx", unsupported.To)
}

func TestExplain(t *testing.T) {
	lang := i18n.EN
	assert.Equal(t, messages.NeedParam(lang, types.ParamRange), Explain(lang, types.OpSplit, &ParamError{Key: types.ParamRange}))
	assert.Equal(t, messages.NeedPDF(lang), Explain(lang, types.OpSplit, fmt.Errorf("wrapped: %w", ErrNeedPDF)))
	assert.Equal(t, messages.InvalidRange(lang), Explain(lang, types.OpSplit, pdf.ErrNoPages))
	assert.Equal(t, messages.UnsupportedConversion(lang, "png", "docx"), Explain(lang, types.OpConvert, &UnsupportedError{From: "png", To: "docx"}))
	assert.Equal(t, messages.NeedImageOrPDF(lang, types.OpOCR), Explain(lang, types.OpOCR, ErrNeedImageOrPDF))
	assert.Equal(t, messages.OCREmpty(lang), Explain(lang, types.OpTranslate, ErrEmptyOCR))
	assert.Equal(t, messages.ErrorDefault(lang), Explain(lang, types.OpMerge, errors.New("pdfcpu: corrupt xref")))
}

func TestNewJob_Detached(t *testing.T) {
	s := &types.Session{UserID: 1, ChatID: 2, Op: types.OpSplit, Lang: "en",
		Files: []types.FileRef{{FileID: "f", Name: "a.pdf"}}, Params: map[string]string{types.ParamRange: "1"}}
	j := NewJob(s)
	s.Params[types.ParamRange] = "2"
	s.Files[0].Name = "b.pdf"

	assert.NotEmpty(t, j.ID)
	assert.Equal(t, i18n.EN, j.Lang)
	assert.Equal(t, "1", j.Param(types.ParamRange))
	assert.Equal(t, "a.pdf", j.Files[0].Name)
}
