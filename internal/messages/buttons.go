package messages

import (
	"strings"

	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/types"
)

// Button identifies a reply-keyboard button independently of its label language.
type Button string

const (
	BtnResume    Button = "resume"
	BtnConvert   Button = "convert"
	BtnMerge     Button = "merge"
	BtnSplit     Button = "split"
	BtnPageNum   Button = "pagenum"
	BtnWatermark Button = "watermark"
	BtnOCR       Button = "ocr"
	BtnTranslate Button = "translate"
	BtnHelp      Button = "help"
	BtnDone      Button = "done"
	BtnCancel    Button = "cancel"
	BtnStatus    Button = "status"
	BtnBack      Button = "back"
)

var labels = map[i18n.Lang]map[Button]string{
	i18n.UZ: {
		BtnResume:    "🆕 Rezyume",
		BtnConvert:   "🔄 Konvert",
		BtnMerge:     "📎 Birlashtirish",
		BtnSplit:     "✂️ Ajratish",
		BtnPageNum:   "🔢 Raqamlash",
		BtnWatermark: "💧 Watermark",
		BtnOCR:       "🔎 OCR",
		BtnTranslate: "🌐 Tarjima",
		BtnHelp:      "ℹ️ Yordam",
		BtnDone:      "✅ Yakunlash",
		BtnCancel:    "❌ Bekor",
		BtnStatus:    "📋 Holat",
		BtnBack:      "↩️ Asosiy menyu",
	},
	i18n.EN: {
		BtnResume:    "🆕 Resume",
		BtnConvert:   "🔄 Convert",
		BtnMerge:     "📎 Merge",
		BtnSplit:     "✂️ Split",
		BtnPageNum:   "🔢 Page numbers",
		BtnWatermark: "💧 Watermark",
		BtnOCR:       "🔎 OCR",
		BtnTranslate: "🌐 Translate",
		BtnHelp:      "ℹ️ Help",
		BtnDone:      "✅ Finish",
		BtnCancel:    "❌ Cancel",
		BtnStatus:    "📋 Status",
		BtnBack:      "↩️ Main menu",
	},
}

func ButtonLabel(lang i18n.Lang, btn Button) string {
	if l, ok := labels[lang][btn]; ok {
		return l
	}
	return labels[i18n.UZ][btn]
}

// BackLabel is the session keyboard's back button, suffixed with the operation.
func BackLabel(lang i18n.Lang, op types.Operation) string {
	suffix := pick(lang, "Jarayon", "Process")
	if b := opButton(op); b != "" {
		suffix = ButtonLabel(lang, b)
	}
	return ButtonLabel(lang, BtnBack) + " (" + suffix + ")"
}

// MatchButton maps a message text to a button in any supported language.
func MatchButton(text string) (Button, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, lang := range i18n.All() {
		for btn, label := range labels[lang] {
			if btn == BtnBack {
				if strings.HasPrefix(text, label) {
					return BtnBack, true
				}
				continue
			}
			if text == label {
				return btn, true
			}
		}
	}
	return "", false
}

func opButton(op types.Operation) Button {
	switch op {
	case types.OpConvert:
		return BtnConvert
	case types.OpMerge:
		return BtnMerge
	case types.OpSplit:
		return BtnSplit
	case types.OpPageNum:
		return BtnPageNum
	case types.OpWatermark:
		return BtnWatermark
	case types.OpOCR:
		return BtnOCR
	case types.OpTranslate:
		return BtnTranslate
	}
	return ""
}

// ButtonOperation returns the operation a menu button opens.
func ButtonOperation(btn Button) (types.Operation, bool) {
	op := types.Operation(btn)
	return op, op.Valid()
}
