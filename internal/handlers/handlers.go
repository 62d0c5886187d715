package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/BatmanBruc/ofmbot/internal/contextkeys"
	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/internal/logger"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/internal/operations"
	"github.com/BatmanBruc/ofmbot/internal/translate"
	"github.com/BatmanBruc/ofmbot/internal/utils"
	"github.com/BatmanBruc/ofmbot/store"
	"github.com/BatmanBruc/ofmbot/types"
)

type JobQueue interface {
	Enqueue(ctx context.Context, j *operations.Job) (int, error)
}

type Config struct {
	BaseURL       string
	DefaultTarget string
}

type Handlers struct {
	sessions   types.SessionStore
	stats      types.StatsStore
	queue      JobQueue
	translator translate.Translator
	baseURL    string
	defaultTgt string
	log        zerolog.Logger
}

func NewHandlers(sessions types.SessionStore, stats types.StatsStore, queue JobQueue, translator translate.Translator, config Config) *Handlers {
	if config.DefaultTarget == "" {
		config.DefaultTarget = "uz"
	}
	return &Handlers{
		sessions:   sessions,
		stats:      stats,
		queue:      queue,
		translator: translator,
		baseURL:    config.BaseURL,
		defaultTgt: config.DefaultTarget,
		log:        logger.Component("handlers"),
	}
}

func langFromCtx(ctx context.Context) i18n.Lang {
	if lang, ok := contextkeys.GetLang(ctx); ok {
		return lang
	}
	return i18n.UZ
}

// MainHandler routes an update that already went through the middlewares.
func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := contextkeys.GetUser(ctx)
	if !ok {
		return
	}
	lang := langFromCtx(ctx)
	messageType, _ := contextkeys.GetMessageType(ctx)

	session, err := bh.sessions.Get(ctx, user.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrSessionNotFound) {
			bh.log.Error().Err(err).Int64("user_id", user.UserID).Msg("load session")
			bh.reply(ctx, b, user.ChatID, messages.ErrorDefault(lang), nil)
			return
		}
		session = nil
	}

	switch messageType {
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, b, update, user, session)
	case contextkeys.MessageTypeDocument, contextkeys.MessageTypePhoto:
		bh.HandleFile(ctx, b, user, session)
	case contextkeys.MessageTypeText:
		bh.HandleText(ctx, b, update, user, session)
	case contextkeys.MessageTypeClickButton:
		bh.HandleClickButton(ctx, b, update, user, session)
	case contextkeys.MessageTypeMedia:
		bh.reply(ctx, b, user.ChatID, messages.NoSuitableFile(lang), keyboardFor(lang, session))
	}
}

func (bh *Handlers) reply(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		bh.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}

func (bh *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		bh.log.Warn().Err(err).Msg("answer callback")
	}
}

func keyboardFor(lang i18n.Lang, session *types.Session) models.ReplyMarkup {
	if session != nil {
		return utils.SessionKeyboard(lang, session.Op)
	}
	return utils.MainKeyboard(lang)
}
