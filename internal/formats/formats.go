package formats

import (
	"path/filepath"
	"strings"
)

type FormatButton struct {
	Text         string
	CallbackData string
}

const TargetCallbackPrefix = "target_"

// Targets are the conversion targets accepted by /target.
var Targets = []string{"pdf", "png", "jpg", "docx", "pptx"}

var (
	imageExts  = []string{"png", "jpg", "jpeg", "webp"}
	officeExts = []string{"doc", "docx", "odt", "rtf", "txt", "ppt", "pptx", "odp", "xls", "xlsx", "ods"}
)

// GetFormatButtonsByList builds inline buttons whose callback data is "<prefix><lowercase format>".
func GetFormatButtonsByList(formatList []string, prefix string) []FormatButton {
	buttons := make([]FormatButton, 0, len(formatList))
	for _, format := range formatList {
		format = strings.TrimSpace(format)
		if format == "" {
			continue
		}
		buttons = append(buttons, FormatButton{
			Text:         strings.ToUpper(format),
			CallbackData: prefix + strings.ToLower(format),
		})
	}
	return buttons
}

func TargetButtons() []FormatButton {
	return GetFormatButtonsByList(Targets, TargetCallbackPrefix)
}

func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(name)), "."))
}

func IsPDF(name string) bool { return Ext(name) == "pdf" }

func IsImage(name string) bool { return contains(imageExts, Ext(name)) }

func IsOffice(name string) bool { return contains(officeExts, Ext(name)) }

func ValidTarget(target string) bool {
	return contains(Targets, strings.ToLower(strings.TrimSpace(target)))
}

// ExtFromMime guesses an extension for files sent without a usable name.
func ExtFromMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	switch mime {
	case "application/pdf":
		return "pdf"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "application/msword":
		return "doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "docx"
	case "application/vnd.ms-powerpoint":
		return "ppt"
	case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return "pptx"
	case "application/vnd.ms-excel":
		return "xls"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx"
	case "application/vnd.oasis.opendocument.text":
		return "odt"
	case "application/rtf", "text/rtf":
		return "rtf"
	case "text/plain":
		return "txt"
	}
	return ""
}

// ResultFileName swaps the extension of originalName for targetExt.
func ResultFileName(originalName string, targetExt string) string {
	targetExt = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(targetExt), "."))
	if targetExt == "" {
		targetExt = "bin"
	}

	originalName = strings.TrimSpace(originalName)
	if originalName == "" {
		return "convert." + targetExt
	}

	base := filepath.Base(originalName)
	if filepath.Ext(base) == "" {
		return base + "." + targetExt
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + targetExt
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
