package handlers

import (
	"context"

	"github.com/go-telegram/bot"

	"github.com/BatmanBruc/ofmbot/internal/contextkeys"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/internal/utils"
	"github.com/BatmanBruc/ofmbot/types"
)

// HandleFile adds uploads to the open session, or parks them in the pending
// buffer and offers suggestions.
func (bh *Handlers) HandleFile(ctx context.Context, b *bot.Bot, user types.User, session *types.Session) {
	lang := langFromCtx(ctx)
	files := contextkeys.GetFiles(ctx)
	if len(files) == 0 {
		bh.reply(ctx, b, user.ChatID, messages.NoSuitableFile(lang), keyboardFor(lang, session))
		return
	}

	for _, f := range files {
		log := bh.log.With().Int64("user_id", user.UserID).Str("file", f.Name).Logger()

		if session != nil {
			session.Files = append(session.Files, f)
			if err := bh.sessions.Save(ctx, session); err != nil {
				log.Error().Err(err).Msg("save session file")
				bh.reply(ctx, b, user.ChatID, messages.FileSaveFailed(lang, f.Kind), utils.SessionKeyboard(lang, session.Op))
				continue
			}
			log.Debug().Str("op", string(session.Op)).Int("files", len(session.Files)).Msg("file added")
			bh.reply(ctx, b, user.ChatID, messages.FileAdded(lang, f.Kind), utils.SessionKeyboard(lang, session.Op))
			continue
		}

		if err := bh.sessions.AddPending(ctx, user.UserID, f); err != nil {
			log.Error().Err(err).Msg("add pending file")
			bh.reply(ctx, b, user.ChatID, messages.FileSaveFailed(lang, f.Kind), utils.MainKeyboard(lang))
			continue
		}
		bh.reply(ctx, b, user.ChatID, messages.FileReceivedSuggest(lang, f.Kind, f.Name), utils.SuggestKeyboard(lang))
	}
}
