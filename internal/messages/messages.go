package messages

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/types"
)

const ParseModeHTML = "HTML"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func pick(lang i18n.Lang, uz, en string) string {
	if lang == i18n.EN {
		return en
	}
	return uz
}

func FileLine(lang i18n.Lang, fileName string) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = pick(lang, "fayl", "file")
	}
	return fmt.Sprintf("📄 <b>%s</b> %s", pick(lang, "Fayl:", "File:"), Escape(name))
}

func OpName(lang i18n.Lang, op types.Operation) string {
	switch op {
	case types.OpConvert:
		return pick(lang, "Konvert", "Convert")
	case types.OpMerge:
		return pick(lang, "PDF birlashtirish", "PDF merge")
	case types.OpSplit:
		return pick(lang, "PDF ajratish", "PDF split")
	case types.OpPageNum:
		return pick(lang, "Sahifa raqamlash", "Page numbering")
	case types.OpWatermark:
		return "Watermark"
	case types.OpOCR:
		return "OCR"
	case types.OpTranslate:
		return pick(lang, "Tarjima", "Translate")
	}
	return string(op)
}

func ErrorDefault(lang i18n.Lang) string {
	return pick(lang, "❌ <b>Xatolik yuz berdi.</b>", "❌ <b>Something went wrong.</b>")
}

func StartWelcome(lang i18n.Lang, activeUsers int) string {
	text := pick(lang,
		"👋 <b>Assalomu alaykum!</b>\nBu bot fayllar bilan tezkor ishlashga yordam beradi.\nQuyidagi menyudan keraklisini tanlang.",
		"👋 <b>Hello!</b>\nThis bot helps you work with files quickly.\nPick what you need from the menu below.")
	if activeUsers > 0 {
		text += fmt.Sprintf("\n\n👥 %s <b>%d</b>", pick(lang, "Foydalanuvchilar:", "Users:"), activeUsers)
	}
	return text
}

func Help(lang i18n.Lang) string {
	if lang == i18n.EN {
		return "ℹ️ <b>Guide</b>\n" +
			"• 🆕 Resume: fill in the web form, the bot sends DOCX+PDF.\n" +
			"• 🔄 Convert: one file to the format you need.\n" +
			"• 📎 Merge: several PDFs into one PDF.\n" +
			"• ✂️ Split: extract a page range from a PDF (e.g. 1-3,5).\n" +
			"• 🔢 Page numbers: numbers at the bottom of PDF pages.\n" +
			"• 💧 Watermark: stamp text on PDF pages.\n" +
			"• 🔎 OCR: extract text from an image or PDF.\n" +
			"• 🌐 Translate: text, image or PDF (through OCR).\n" +
			"Finish: ✅ Finish, Cancel: ❌ Cancel, Status: 📋 Status."
	}
	return "ℹ️ <b>Qo‘llanma</b>\n" +
		"• 🆕 Rezyume — WebApp orqali ma'lumot kiriting, bot DOCX+PDF yuboradi.\n" +
		"• 🔄 Konvert — bitta fayl -> kerakli formatga.\n" +
		"• 📎 Birlashtirish — bir nechta PDF -> bitta PDF.\n" +
		"• ✂️ Ajratish — PDF sahifa oralig‘ini ajratib oling (masalan 1-3,5).\n" +
		"• 🔢 Raqamlash — PDF sahifalar pastida raqam.\n" +
		"• 💧 Watermark — PDF sahifalarga matn qo‘shish.\n" +
		"• 🔎 OCR — rasm/PDFdan matn chiqarish.\n" +
		"• 🌐 Tarjima — matn/rasm/PDF (OCR orqali) tarjimasi.\n" +
		"Yakun: ✅ Yakunlash, Bekor: ❌ Bekor, Holat: 📋 Holat."
}

func ResumeIntro(lang i18n.Lang) string {
	return pick(lang,
		"👋 <b>Assalomu alaykum!</b>\n📄 Obyektivka (ma’lumotnoma)\n✅ Tez\n✅ Oson\n✅ Ishonchli\nquyidagi 🌐 web formani to'ldiring\n👇👇👇👇👇👇👇👇👇",
		"👋 <b>Hello!</b>\n📄 Resume (personal record)\n✅ Fast\n✅ Easy\n✅ Reliable\nfill in the 🌐 web form below\n👇👇👇👇👇👇👇👇👇")
}

func ResumeFormButton(lang i18n.Lang) string {
	return pick(lang, "Obyektivkani to‘ldirish", "Fill in the resume")
}

func SessionIntro(lang i18n.Lang, op types.Operation) string {
	finish := pick(lang, "Yakun: ✅ Yakunlash | Bekor: ❌ Bekor | Holat: 📋 Holat", "Finish: ✅ Finish | Cancel: ❌ Cancel | Status: 📋 Status")
	switch op {
	case types.OpConvert:
		return pick(lang,
			"🔄 <b>Konvert sessiyasi boshlandi.</b>\n1) Bitta fayl yuboring (DOCX/PPTX/XLSX/PDF yoki rasm).\n2) Maqsad: /target pdf|png|jpg|docx|pptx\n",
			"🔄 <b>Convert session started.</b>\n1) Send one file (DOCX/PPTX/XLSX/PDF or an image).\n2) Target: /target pdf|png|jpg|docx|pptx\n") + finish
	case types.OpMerge:
		return pick(lang,
			"📎 <b>PDF birlashtirish boshlandi.</b>\nBir nechta PDF yuboring, so'ng ✅ Yakunlash bosing.",
			"📎 <b>PDF merge started.</b>\nSend several PDFs, then press ✅ Finish.")
	case types.OpSplit:
		return pick(lang,
			"✂️ <b>PDF ajratish boshlandi.</b>\nPDF yuboring, so'ng /range 1-3,5 shaklida interval bering.",
			"✂️ <b>PDF split started.</b>\nSend a PDF, then give a range like /range 1-3,5.")
	case types.OpPageNum:
		return pick(lang,
			"🔢 <b>Sahifa raqamlash boshlandi.</b>\nPDF yuboring, so'ng ✅ Yakunlash bosing.\nJoy: /pos bottom-center|top-right",
			"🔢 <b>Page numbering started.</b>\nSend a PDF, then press ✅ Finish.\nPosition: /pos bottom-center|top-right")
	case types.OpWatermark:
		return pick(lang,
			"💧 <b>Watermark sessiyasi boshlandi.</b>\nPDF yuboring, so'ng /text &lt;matn&gt; yuboring.",
			"💧 <b>Watermark session started.</b>\nSend a PDF, then send /text &lt;text&gt;.")
	case types.OpOCR:
		return pick(lang,
			"🔎 <b>OCR sessiyasi boshlandi.</b>\nRasm/PDF yuboring, so'ng ✅ Yakunlash bosing.",
			"🔎 <b>OCR session started.</b>\nSend an image/PDF, then press ✅ Finish.")
	case types.OpTranslate:
		return pick(lang,
			"🌐 <b>Tarjima sessiyasi boshlandi.</b>\nRasm/PDF yuboring (OCR orqali), yoki matn yuboring.\nMaqsad til: /tgt en|ru|uz|tr ... (default: uz).",
			"🌐 <b>Translate session started.</b>\nSend an image/PDF (through OCR) or just text.\nTarget language: /tgt en|ru|uz|tr ... (default: uz).")
	}
	return OpName(lang, op)
}

func NoSession(lang i18n.Lang) string {
	return pick(lang, "❌ Sessiya yo‘q.", "❌ No active session.")
}

// Status renders the session summary shown by /status.
func Status(lang i18n.Lang, s *types.Session) string {
	if s == nil {
		return NoSession(lang)
	}
	lines := []string{fmt.Sprintf("🧭 %s <b>%s</b>", pick(lang, "Jarayon:", "Operation:"), Escape(OpName(lang, s.Op)))}
	if len(s.Files) > 0 {
		lines = append(lines, fmt.Sprintf("📎 %s %d", pick(lang, "Fayllar:", "Files:"), len(s.Files)))
		for i, f := range s.Files {
			line := fmt.Sprintf("  %d) %s", i+1, Escape(f.Name))
			if f.Size > 0 {
				line += fmt.Sprintf(" (%dB)", f.Size)
			}
			lines = append(lines, line)
		}
	} else {
		lines = append(lines, pick(lang, "📎 Fayl hali yuborilmadi", "📎 No files yet"))
	}
	if len(s.Params) > 0 {
		keys := make([]string, 0, len(s.Params))
		for k := range s.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, Escape(s.Params[k])))
		}
		lines = append(lines, fmt.Sprintf("⚙️ %s %s", pick(lang, "Parametrlar:", "Parameters:"), strings.Join(parts, ", ")))
	} else {
		lines = append(lines, pick(lang, "⚙️ Parametrlar hali berilmagan", "⚙️ No parameters yet"))
	}
	lines = append(lines, pick(lang, "Yakunlash: ✅ Yakunlash | Bekor: ❌ Bekor", "Finish: ✅ Finish | Cancel: ❌ Cancel"))
	return strings.Join(lines, "\n")
}

func Cancelled(lang i18n.Lang) string {
	return pick(lang, "❌ Sessiya bekor qilindi.", "❌ Session cancelled.")
}

func MenuPrompt(lang i18n.Lang) string {
	return pick(lang, "Menyu:", "Menu:")
}

func ChooseSection(lang i18n.Lang) string {
	return pick(lang, "Kerakli bo‘limni tanlang 👇", "Choose a section 👇")
}

func FileAdded(lang i18n.Lang, kind types.FileKind) string {
	if kind == types.FileKindPhoto {
		return pick(lang, "🖼️ Rasm qo‘shildi.", "🖼️ Image added.")
	}
	return pick(lang, "📎 Fayl qo‘shildi.", "📎 File added.")
}

func FileSaveFailed(lang i18n.Lang, kind types.FileKind) string {
	if kind == types.FileKindPhoto {
		return pick(lang, "❌ Rasmni saqlab bo‘lmadi.", "❌ Could not save the image.")
	}
	return pick(lang, "❌ Faylni saqlab bo‘lmadi.", "❌ Could not save the file.")
}

func FileReceivedSuggest(lang i18n.Lang, kind types.FileKind, name string) string {
	icon := "📑"
	if kind == types.FileKindPhoto {
		icon = "🖼️"
	}
	return fmt.Sprintf("%s %s %s\n%s", icon, pick(lang, "Fayl qabul qilindi:", "File received:"), Escape(name),
		pick(lang, "Quyidagilardan birini tanlang:", "Choose one of the options:"))
}

func SuggestToPDF(lang i18n.Lang) string { return pick(lang, "📄 Rasmni PDFga", "📄 Image to PDF") }
func SuggestOCR(lang i18n.Lang) string { return "🔎 OCR" }
func SuggestTranslate(lang i18n.Lang) string { return pick(lang, "🌐 Tarjima", "🌐 Translate") }

func FinishCurrentSession(lang i18n.Lang) string {
	return pick(lang, "⚠️ Avval joriy sessiyani yakunlang yoki ❌ Bekor qiling.", "⚠️ Finish the current session or ❌ Cancel it first.")
}

func NoSuitableFile(lang i18n.Lang) string {
	return pick(lang, "⚠️ Mos fayl yo‘q.", "⚠️ No suitable file.")
}

func OpenSessionFirst(lang i18n.Lang, op types.Operation) string {
	label := ButtonLabel(lang, opButton(op))
	return fmt.Sprintf(pick(lang, "⚠️ Avval %s sessiyasini oching.", "⚠️ Open the %s session first."), label)
}

func ParamSet(lang i18n.Lang, key, value string) string {
	value = Escape(value)
	switch key {
	case types.ParamTarget:
		return "🎯 Target: " + value
	case types.ParamRange:
		return "📐 Range: " + value
	case types.ParamText:
		return pick(lang, "📝 Watermark matn: ", "📝 Watermark text: ") + value
	case types.ParamLang:
		return pick(lang, "🎯 Tarjima tili: ", "🎯 Target language: ") + value
	case types.ParamPosition:
		return pick(lang, "📍 Joy: ", "📍 Position: ") + value
	}
	return fmt.Sprintf("⚙️ %s: %s", key, value)
}

func ParamUsage(lang i18n.Lang, key string) string {
	usage := map[string]string{
		types.ParamTarget:   "/target pdf|png|jpg|docx|pptx",
		types.ParamRange:    "/range 1-3,5",
		types.ParamText:     "/text &lt;matn&gt;",
		types.ParamLang:     "/tgt en|ru|uz|tr",
		types.ParamPosition: "/pos bottom-center|top-right",
	}[key]
	return pick(lang, "⚠️ Format: ", "⚠️ Usage: ") + "<code>" + usage + "</code>"
}

func NeedParam(lang i18n.Lang, key string) string {
	switch key {
	case types.ParamTarget:
		return pick(lang, "⚠️ Avval /target pdf|png|jpg|docx|pptx belgilang.", "⚠️ Set /target pdf|png|jpg|docx|pptx first.")
	case types.ParamRange:
		return pick(lang, "⚠️ Avval /range 1-3,5 ko‘rinishida kiriting.", "⚠️ Enter /range like 1-3,5 first.")
	case types.ParamText:
		return pick(lang, "⚠️ Avval /text &lt;matn&gt; yuboring.", "⚠️ Send /text &lt;text&gt; first.")
	}
	return ParamUsage(lang, key)
}

func NoFiles(lang i18n.Lang) string {
	return pick(lang, "PDF yig‘ish uchun mos fayl yo‘q.", "There are no suitable files yet.")
}

func NeedPDF(lang i18n.Lang) string {
	return pick(lang, "⚠️ PDF yuboring.", "⚠️ Send a PDF.")
}

func NeedImageOrPDF(lang i18n.Lang, op types.Operation) string {
	if op == types.OpTranslate {
		return pick(lang, "⚠️ Tarjima uchun rasm/PDF yuboring yoki matn yozing.", "⚠️ Send an image/PDF or type text to translate.")
	}
	return pick(lang, "⚠️ OCR uchun rasm/PDF kerak.", "⚠️ OCR needs an image or a PDF.")
}

func InvalidRange(lang i18n.Lang) string {
	return pick(lang, "⚠️ Oraliqda mos sahifa yo‘q.", "⚠️ The range selects no pages.")
}

func OCREmpty(lang i18n.Lang) string {
	return pick(lang, "⚠️ OCR natijasi bo‘sh.", "⚠️ OCR result is empty.")
}

func NoTextFound(lang i18n.Lang) string {
	return pick(lang, "(matn topilmadi)", "(no text found)")
}

func UnsupportedConversion(lang i18n.Lang, from, to string) string {
	return fmt.Sprintf(pick(lang, "⚠️ %s → %s konvertatsiyasi qo‘llab-quvvatlanmaydi.", "⚠️ Converting %s → %s is not supported."),
		Escape(strings.ToUpper(from)), Escape(strings.ToUpper(to)))
}

func Done(lang i18n.Lang) string {
	return pick(lang, "✅ Yakunlandi.", "✅ Done.")
}

func Translated(tgt, text string) string {
	return fmt.Sprintf("🔁 %s:\n%s", Escape(tgt), Escape(text))
}

func QueueQueued(lang i18n.Lang, op types.Operation, position int) string {
	return fmt.Sprintf("⏳ <b>%s</b> %d\n🧭 %s", pick(lang, "Navbatda:", "In queue:"), position, Escape(OpName(lang, op)))
}

func QueueStarted(lang i18n.Lang, op types.Operation) string {
	return fmt.Sprintf("⚙️ <b>%s</b>\n🧭 %s", pick(lang, "Bajarilmoqda...", "Processing..."), Escape(OpName(lang, op)))
}

func QueueBusy(lang i18n.Lang) string {
	return pick(lang, "⚠️ Navbat to‘la, birozdan keyin urinib ko‘ring.", "⚠️ The queue is full, try again shortly.")
}

func ResumeDocxCaption(lang i18n.Lang) string {
	return pick(lang, "✅ Word formatdagi rezyume", "✅ Resume in Word format")
}

func ResumePDFCaption(lang i18n.Lang) string {
	return pick(lang, "✅ PDF formatdagi rezyume", "✅ Resume in PDF format")
}

func ResumePDFFailed(lang i18n.Lang) string {
	return pick(lang, "⚠️ PDF konvertda xato, hozircha faqat Word yuborildi.", "⚠️ PDF conversion failed, only the Word file was sent.")
}

func ArchivePhotoCaption(fullName, phone string) string {
	return fmt.Sprintf("🆕 Rezyume: %s\n📞 %s", fullName, phone)
}

func ArchiveJSONCaption(fullName string) string {
	return fmt.Sprintf("📄 Ma'lumotlar JSON: %s", fullName)
}
