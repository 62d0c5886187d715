package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/ofmbot/internal/contextkeys"
	"github.com/BatmanBruc/ofmbot/internal/formats"
	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/internal/utils"
	"github.com/BatmanBruc/ofmbot/types"
)

func (bh *Handlers) HandleClickButton(ctx context.Context, b *bot.Bot, update *models.Update, user types.User, session *types.Session) {
	if update.CallbackQuery == nil {
		return
	}
	lang := langFromCtx(ctx)
	data, _ := contextkeys.GetCallbackData(ctx)
	if data == "" {
		data = strings.TrimSpace(update.CallbackQuery.Data)
	}

	bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")

	switch {
	case data == utils.CallbackSuggestPDF || data == utils.CallbackSuggestOCR || data == utils.CallbackSuggestTranslate:
		bh.handleSuggestion(ctx, b, user, lang, session, data)
	case strings.HasPrefix(data, formats.TargetCallbackPrefix):
		target := strings.TrimPrefix(data, formats.TargetCallbackPrefix)
		if session == nil || session.Op != types.OpConvert {
			bh.reply(ctx, b, user.ChatID, messages.OpenSessionFirst(lang, types.OpConvert), utils.MainKeyboard(lang))
			return
		}
		bh.setParam(ctx, b, user, lang, session, types.ParamTarget, target)
	default:
		bh.log.Debug().Str("data", data).Int64("user_id", user.UserID).Msg("unknown callback")
	}
}

// handleSuggestion opens the session a suggestion button stands for,
// seeded with the pending files.
func (bh *Handlers) handleSuggestion(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang, session *types.Session, data string) {
	if session != nil {
		bh.reply(ctx, b, user.ChatID, messages.FinishCurrentSession(lang), utils.SessionKeyboard(lang, session.Op))
		return
	}
	n, err := bh.sessions.PendingCount(ctx, user.UserID)
	if err != nil {
		bh.log.Warn().Err(err).Int64("user_id", user.UserID).Msg("pending count")
	}
	if n == 0 {
		bh.reply(ctx, b, user.ChatID, messages.NoSuitableFile(lang), utils.MainKeyboard(lang))
		return
	}

	switch data {
	case utils.CallbackSuggestPDF:
		bh.openSession(ctx, b, user, lang, types.OpConvert, map[string]string{types.ParamTarget: "pdf"})
	case utils.CallbackSuggestOCR:
		bh.openSession(ctx, b, user, lang, types.OpOCR, nil)
	case utils.CallbackSuggestTranslate:
		bh.openSession(ctx, b, user, lang, types.OpTranslate, map[string]string{types.ParamLang: bh.defaultTgt})
	}
}
