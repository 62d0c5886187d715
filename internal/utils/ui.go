package utils

import (
	"github.com/BatmanBruc/ofmbot/internal/formats"
	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/types"
	"github.com/go-telegram/bot/models"
)

const (
	CallbackSuggestPDF       = "sug_to_pdf"
	CallbackSuggestOCR       = "sug_ocr"
	CallbackSuggestTranslate = "sug_tr"
)

func BuildInlineKeyboard(buttons []formats.FormatButton) models.InlineKeyboardMarkup {
	pad := func(s string) string { return " " + s + " " }
	rows := make([][]models.InlineKeyboardButton, 0)
	row := make([]models.InlineKeyboardButton, 0, 3)
	for i, button := range buttons {
		if i > 0 && i%3 == 0 {
			rows = append(rows, row)
			row = make([]models.InlineKeyboardButton, 0, 3)
		}
		row = append(row, models.InlineKeyboardButton{
			Text:         pad(button.Text),
			CallbackData: button.CallbackData,
		})
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	return models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

func MainKeyboard(lang i18n.Lang) *models.ReplyKeyboardMarkup {
	btn := func(b messages.Button) models.KeyboardButton {
		return models.KeyboardButton{Text: messages.ButtonLabel(lang, b)}
	}
	return &models.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]models.KeyboardButton{
			{btn(messages.BtnResume), btn(messages.BtnConvert), btn(messages.BtnMerge)},
			{btn(messages.BtnSplit), btn(messages.BtnPageNum), btn(messages.BtnWatermark)},
			{btn(messages.BtnOCR), btn(messages.BtnTranslate)},
			{btn(messages.BtnHelp)},
		},
	}
}

func SessionKeyboard(lang i18n.Lang, op types.Operation) *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]models.KeyboardButton{
			{
				{Text: messages.ButtonLabel(lang, messages.BtnDone)},
				{Text: messages.ButtonLabel(lang, messages.BtnCancel)},
			},
			{{Text: messages.ButtonLabel(lang, messages.BtnStatus)}},
			{{Text: messages.BackLabel(lang, op)}},
		},
	}
}

func SuggestKeyboard(lang i18n.Lang) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: messages.SuggestToPDF(lang), CallbackData: CallbackSuggestPDF}},
			{{Text: messages.SuggestOCR(lang), CallbackData: CallbackSuggestOCR}},
			{{Text: messages.SuggestTranslate(lang), CallbackData: CallbackSuggestTranslate}},
		},
	}
}

func WebAppKeyboard(lang i18n.Lang, url string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: messages.ResumeFormButton(lang), WebApp: &models.WebAppInfo{URL: url}}},
		},
	}
}

func TargetKeyboard() *models.InlineKeyboardMarkup {
	kb := BuildInlineKeyboard(formats.TargetButtons())
	return &kb
}
