package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"

	"github.com/BatmanBruc/ofmbot/internal/formats"
	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/internal/operations"
	"github.com/BatmanBruc/ofmbot/internal/pdf"
	"github.com/BatmanBruc/ofmbot/internal/scheduler"
	"github.com/BatmanBruc/ofmbot/internal/translate"
	"github.com/BatmanBruc/ofmbot/internal/utils"
	"github.com/BatmanBruc/ofmbot/types"
)

var errInvalidParam = errors.New("invalid parameter value")

// paramOps lists the sessions a parameter command is valid in. The first
// one is named when the command is used elsewhere.
var paramOps = map[string][]types.Operation{
	types.ParamTarget:   {types.OpConvert},
	types.ParamRange:    {types.OpSplit},
	types.ParamText:     {types.OpWatermark},
	types.ParamLang:     {types.OpTranslate},
	types.ParamPosition: {types.OpPageNum, types.OpWatermark},
}

// openSession replaces any session with a fresh one for op and pulls in pending files.
func (bh *Handlers) openSession(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang, op types.Operation, params map[string]string) {
	log := bh.log.With().Int64("user_id", user.UserID).Str("op", string(op)).Logger()

	s, err := bh.sessions.Open(ctx, user.UserID, user.ChatID, op, string(lang))
	if err != nil {
		log.Error().Err(err).Msg("open session")
		bh.reply(ctx, b, user.ChatID, messages.ErrorDefault(lang), utils.MainKeyboard(lang))
		return
	}
	for k, v := range params {
		s.SetParam(k, v)
	}
	moved := bh.movePending(ctx, s)
	if err := bh.sessions.Save(ctx, s); err != nil {
		log.Error().Err(err).Msg("save session")
		bh.reply(ctx, b, user.ChatID, messages.ErrorDefault(lang), utils.MainKeyboard(lang))
		return
	}
	log.Info().Int("pending_moved", moved).Msg("session opened")

	bh.reply(ctx, b, user.ChatID, messages.SessionIntro(lang, op), utils.SessionKeyboard(lang, op))
	if len(s.Files) > 0 {
		bh.reply(ctx, b, user.ChatID, messages.Status(lang, s), nil)
	}
	if op == types.OpConvert && s.Param(types.ParamTarget) == "" {
		bh.reply(ctx, b, user.ChatID, messages.ParamUsage(lang, types.ParamTarget), utils.TargetKeyboard())
	}
}

// finishSession validates the session and hands it to the worker pool.
// The session survives validation and queueing failures.
func (bh *Handlers) finishSession(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang, session *types.Session) {
	if session == nil {
		bh.reply(ctx, b, user.ChatID, messages.NoSession(lang), utils.MainKeyboard(lang))
		return
	}
	job := operations.NewJob(session)
	job.Lang = lang
	if err := operations.Validate(job); err != nil {
		bh.reply(ctx, b, user.ChatID, operations.Explain(lang, session.Op, err), utils.SessionKeyboard(lang, session.Op))
		return
	}

	if _, err := bh.queue.Enqueue(ctx, job); err != nil {
		bh.log.Error().Err(err).Int64("user_id", user.UserID).Str("op", string(session.Op)).Msg("enqueue job")
		text := messages.ErrorDefault(lang)
		if errors.Is(err, scheduler.ErrQueueFull) {
			text = messages.QueueBusy(lang)
		}
		bh.reply(ctx, b, user.ChatID, text, utils.SessionKeyboard(lang, session.Op))
		return
	}

	if err := bh.sessions.Drop(ctx, user.UserID); err != nil {
		bh.log.Warn().Err(err).Int64("user_id", user.UserID).Msg("drop session")
	}
}

func (bh *Handlers) cancelSession(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang, session *types.Session) {
	if session == nil {
		bh.reply(ctx, b, user.ChatID, messages.NoSession(lang), utils.MainKeyboard(lang))
		return
	}
	if err := bh.sessions.Drop(ctx, user.UserID); err != nil {
		bh.log.Warn().Err(err).Int64("user_id", user.UserID).Msg("drop session")
	}
	bh.reply(ctx, b, user.ChatID, messages.Cancelled(lang), utils.MainKeyboard(lang))
}

func (bh *Handlers) sendStatus(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang, session *types.Session) {
	bh.reply(ctx, b, user.ChatID, messages.Status(lang, session), keyboardFor(lang, session))
}

// backToMenu leaves whatever session is open and shows the main menu.
func (bh *Handlers) backToMenu(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang, session *types.Session) {
	if session != nil {
		if err := bh.sessions.Drop(ctx, user.UserID); err != nil {
			bh.log.Warn().Err(err).Int64("user_id", user.UserID).Msg("drop session")
		}
	}
	bh.sendMainMenu(ctx, b, user.ChatID, lang)
}

func (bh *Handlers) setParam(ctx context.Context, b *bot.Bot, user types.User, lang i18n.Lang, session *types.Session, key, raw string) {
	ops := paramOps[key]
	if session == nil || !containsOp(ops, session.Op) {
		bh.reply(ctx, b, user.ChatID, messages.OpenSessionFirst(lang, ops[0]), utils.MainKeyboard(lang))
		return
	}
	value, err := normalizeParam(key, raw)
	if err != nil {
		bh.reply(ctx, b, user.ChatID, messages.ParamUsage(lang, key), utils.SessionKeyboard(lang, session.Op))
		return
	}
	session.SetParam(key, value)
	if err := bh.sessions.Save(ctx, session); err != nil {
		bh.log.Error().Err(err).Int64("user_id", user.UserID).Str("param", key).Msg("save session")
		bh.reply(ctx, b, user.ChatID, messages.ErrorDefault(lang), utils.SessionKeyboard(lang, session.Op))
		return
	}
	bh.reply(ctx, b, user.ChatID, messages.ParamSet(lang, key, value), utils.SessionKeyboard(lang, session.Op))
}

func normalizeParam(key, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", errInvalidParam
	}
	switch key {
	case types.ParamTarget:
		value = strings.ToLower(value)
		if !formats.ValidTarget(value) {
			return "", errInvalidParam
		}
	case types.ParamRange:
		if err := pdf.ValidateRange(value); err != nil {
			return "", err
		}
	case types.ParamLang:
		value = strings.ToLower(value)
		if !translate.ValidTarget(value) {
			return "", errInvalidParam
		}
	case types.ParamPosition:
		pos, ok := pdf.ParsePosition(value)
		if !ok {
			return "", errInvalidParam
		}
		value = string(pos)
	}
	return value, nil
}

func containsOp(ops []types.Operation, op types.Operation) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
