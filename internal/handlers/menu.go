package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"

	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/internal/utils"
	"github.com/BatmanBruc/ofmbot/types"
)

func (bh *Handlers) handleStart(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang) {
	active := 0
	if bh.stats != nil {
		if err := bh.stats.TrackUser(ctx, user); err != nil {
			bh.log.Warn().Err(err).Int64("user_id", user.UserID).Msg("track user")
		}
		if err := bh.stats.Incr(ctx, types.CounterStart); err != nil {
			bh.log.Warn().Err(err).Msg("count start")
		}
		n, err := bh.stats.ActiveUsers(ctx)
		if err != nil {
			bh.log.Warn().Err(err).Msg("active users")
		}
		active = n
	}
	bh.reply(ctx, b, user.ChatID, messages.StartWelcome(lang, active), utils.MainKeyboard(lang))
}

func (bh *Handlers) sendHelp(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang, session *types.Session) {
	bh.reply(ctx, b, user.ChatID, messages.Help(lang), keyboardFor(lang, session))
}

func (bh *Handlers) sendMainMenu(ctx context.Context, b *bot.Bot, chatID int64, lang i18n.Lang) {
	bh.reply(ctx, b, chatID, messages.ChooseSection(lang), utils.MainKeyboard(lang))
}

func (bh *Handlers) sendResumeForm(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang) {
	bh.reply(ctx, b, user.ChatID, messages.ResumeIntro(lang), utils.WebAppKeyboard(lang, bh.FormURL(user.UserID)))
}

// FormURL is the resume WebApp address for a user.
func (bh *Handlers) FormURL(userID int64) string {
	return strings.TrimRight(bh.baseURL, "/") + "/form?id=" + strconv.FormatInt(userID, 10)
}
