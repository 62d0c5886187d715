package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/internal/operations"
	"github.com/BatmanBruc/ofmbot/internal/utils"
	"github.com/BatmanBruc/ofmbot/types"
)

func (bh *Handlers) HandleText(ctx context.Context, b *bot.Bot, update *models.Update, user types.User, session *types.Session) {
	if update == nil || update.Message == nil {
		return
	}
	lang := langFromCtx(ctx)
	text := strings.TrimSpace(update.Message.Text)

	if btn, ok := messages.MatchButton(text); ok {
		bh.handleButton(ctx, b, user, lang, session, btn)
		return
	}

	switch {
	case session != nil && session.Op == types.OpTranslate && !strings.HasPrefix(text, "/"):
		bh.translateInline(ctx, b, user, lang, session, text)
	case session != nil:
		bh.reply(ctx, b, user.ChatID, messages.Status(lang, session), utils.SessionKeyboard(lang, session.Op))
	default:
		bh.sendMainMenu(ctx, b, user.ChatID, lang)
	}
}

func (bh *Handlers) handleButton(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang, session *types.Session, btn messages.Button) {
	switch btn {
	case messages.BtnResume:
		bh.sendResumeForm(ctx, b, user, lang)
	case messages.BtnHelp:
		bh.sendHelp(ctx, b, user, lang, session)
	case messages.BtnDone:
		bh.finishSession(ctx, b, user, lang, session)
	case messages.BtnCancel:
		bh.cancelSession(ctx, b, user, lang, session)
	case messages.BtnStatus:
		bh.sendStatus(ctx, b, user, lang, session)
	case messages.BtnBack:
		bh.backToMenu(ctx, b, user, lang, session)
	default:
		if op, ok := messages.ButtonOperation(btn); ok {
			bh.openSession(ctx, b, user, lang, op, nil)
		}
	}
}

// translateInline answers a text message in a translate session right away.
func (bh *Handlers) translateInline(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang, session *types.Session, text string) {
	tgt := session.Param(types.ParamLang)
	if tgt == "" {
		tgt = bh.defaultTgt
	}
	if bh.translator == nil {
		bh.reply(ctx, b, user.ChatID, messages.ErrorDefault(lang), utils.SessionKeyboard(lang, session.Op))
		return
	}

	out, err := bh.translator.Translate(ctx, text, tgt)
	if err != nil {
		bh.log.Error().Err(err).Int64("user_id", user.UserID).Str("tgt", tgt).Msg("inline translate")
		bh.reply(ctx, b, user.ChatID, operations.Explain(lang, types.OpTranslate, err), utils.SessionKeyboard(lang, session.Op))
		return
	}
	if bh.stats != nil {
		if err := bh.stats.Incr(ctx, string(types.OpTranslate)); err != nil {
			bh.log.Warn().Err(err).Msg("count translate")
		}
	}
	bh.reply(ctx, b, user.ChatID, messages.Translated(tgt, out), utils.SessionKeyboard(lang, session.Op))
}
