package resume

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"html"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"regexp"
	"strings"

	"github.com/nikolalohinski/gonja"
	_ "golang.org/x/image/webp"
)

const (
	documentPart     = "word/document.xml"
	documentRelsPart = "word/_rels/document.xml.rels"
	contentTypesPart = "[Content_Types].xml"

	photoRelID = "rIdOfmPhoto"
	// 35 mm in EMU.
	photoWidthEMU = 35 * 36000
)

var (
	ErrTemplate = errors.New("invalid resume template")

	splitOpenRe  = regexp.MustCompile(`\{(?:<[^>]+>)+([{%])`)
	splitCloseRe = regexp.MustCompile(`([}%])(?:<[^>]+>)+\}`)
	tagRe        = regexp.MustCompile(`(?s)\{\{.*?\}\}|\{%.*?%\}`)
	xmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	rowTagRe     = regexp.MustCompile(`\{%(tr|p)\s(.*?)%\}`)

	quoteReplacer = strings.NewReplacer("‘", "'", "’", "'", "“", `"`, "”", `"`)
	xmlReplacer   = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
		"\n", `</w:t><w:br/><w:t xml:space="preserve">`,
	)
)

// RenderDocx fills a Jinja-style .docx template. photo may be nil.
func RenderDocx(template []byte, f *Form, photo []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	ctx := renderContext(f)
	img, err := preparePhoto(photo)
	if err != nil {
		img = nil
	}
	ctx["photo"] = ""
	if img != nil {
		ctx["photo"] = img.drawingXML()
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen, hasRels := false, false
	for _, file := range zr.File {
		data, err := readZipFile(file)
		if err != nil {
			return nil, err
		}
		switch {
		case file.Name == documentPart:
			seen = true
			out, err := renderXML(string(data), ctx)
			if err != nil {
				return nil, err
			}
			data = []byte(out)
		case file.Name == documentRelsPart && img != nil:
			hasRels = true
			data = []byte(addRelationship(string(data), img))
		case file.Name == contentTypesPart && img != nil:
			data = []byte(addContentType(string(data), img))
		case strings.HasPrefix(file.Name, "word/header") || strings.HasPrefix(file.Name, "word/footer"):
			out, err := renderXML(string(data), ctx)
			if err != nil {
				return nil, err
			}
			data = []byte(out)
		}
		if err := writeZipFile(zw, file.Name, data); err != nil {
			return nil, err
		}
	}
	if !seen {
		return nil, fmt.Errorf("%w: %s missing", ErrTemplate, documentPart)
	}
	if img != nil {
		if !hasRels {
			rels := addRelationship(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+"\n"+
				`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`, img)
			if err := writeZipFile(zw, documentRelsPart, []byte(rels)); err != nil {
				return nil, err
			}
		}
		if err := writeZipFile(zw, "word/"+img.target(), img.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderContext(f *Form) map[string]interface{} {
	ctx := make(map[string]interface{}, len(f.Values)+2)
	for k, v := range f.Values {
		ctx[k] = xmlReplacer.Replace(v)
	}
	rels := make([]map[string]interface{}, 0, len(f.Relatives))
	for _, r := range f.Relatives {
		item := make(map[string]interface{}, len(r))
		for k, v := range r {
			item[k] = xmlReplacer.Replace(v)
		}
		rels = append(rels, item)
	}
	ctx["relatives"] = rels
	return ctx
}

func renderXML(src string, ctx map[string]interface{}) (string, error) {
	tpl, err := gonja.FromString(PrepareXML(src))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return out, nil
}

// PrepareXML removes the run markup Word inserts inside template tags and
// replaces rows/paragraphs carrying {%tr %} or {%p %} with the bare tag.
func PrepareXML(src string) string {
	src = splitOpenRe.ReplaceAllString(src, "{$1")
	src = splitCloseRe.ReplaceAllString(src, "$1}")
	src = tagRe.ReplaceAllStringFunc(src, func(tag string) string {
		tag = xmlTagRe.ReplaceAllString(tag, "")
		return quoteReplacer.Replace(html.UnescapeString(tag))
	})
	for {
		loc := rowTagRe.FindStringSubmatchIndex(src)
		if loc == nil {
			return src
		}
		kind := src[loc[2]:loc[3]]
		bare := "{% " + strings.TrimSpace(src[loc[4]:loc[5]]) + " %}"
		elem := "w:" + kind
		start := lastElementStart(src[:loc[0]], elem)
		end := strings.Index(src[loc[1]:], "</"+elem+">")
		if start < 0 || end < 0 {
			src = src[:loc[0]] + bare + src[loc[1]:]
			continue
		}
		end += loc[1] + len("</"+elem+">")
		src = src[:start] + bare + src[end:]
	}
}

func lastElementStart(s, elem string) int {
	a := strings.LastIndex(s, "<"+elem+">")
	b := strings.LastIndex(s, "<"+elem+" ")
	if a > b {
		return a
	}
	return b
}

type photoPart struct {
	data   []byte
	ext    string
	mime   string
	width  int
	height int
}

func preparePhoto(raw []byte) (*photoPart, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, errors.New("empty image")
	}
	p := &photoPart{data: raw, width: cfg.Width, height: cfg.Height}
	switch format {
	case "jpeg":
		p.ext, p.mime = "jpeg", "image/jpeg"
	case "png":
		p.ext, p.mime = "png", "image/png"
	default:
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
		p.data, p.ext, p.mime = buf.Bytes(), "png", "image/png"
	}
	return p, nil
}

func (p *photoPart) target() string { return "media/ofm_photo." + p.ext }

func (p *photoPart) drawingXML() string {
	cx := photoWidthEMU
	cy := int(int64(cx) * int64(p.height) / int64(p.width))
	return fmt.Sprintf(`</w:t></w:r><w:r><w:drawing>`+
		`<wp:inline xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[1]d" cy="%[2]d"/><wp:docPr id="1001" name="Photo"/>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="0" name="photo.%[3]s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" r:embed="%[4]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r><w:r><w:t xml:space="preserve">`,
		cx, cy, p.ext, photoRelID)
}

func addRelationship(rels string, p *photoPart) string {
	rel := fmt.Sprintf(`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="%s"/>`,
		photoRelID, p.target())
	return strings.Replace(rels, "</Relationships>", rel+"</Relationships>", 1)
}

func addContentType(types string, p *photoPart) string {
	if strings.Contains(types, `Extension="`+p.ext+`"`) {
		return types
	}
	def := fmt.Sprintf(`<Default Extension="%s" ContentType="%s"/>`, p.ext, p.mime)
	return strings.Replace(types, "</Types>", def+"</Types>", 1)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
