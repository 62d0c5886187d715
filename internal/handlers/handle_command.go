package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/ofmbot/types"
)

var commandOps = map[string]types.Operation{
	"/convert":   types.OpConvert,
	"/pdf_merge": types.OpMerge,
	"/pdf_split": types.OpSplit,
	"/pagenum":   types.OpPageNum,
	"/watermark": types.OpWatermark,
	"/ocr":       types.OpOCR,
	"/translate": types.OpTranslate,
}

var commandParams = map[string]string{
	"/target": types.ParamTarget,
	"/range":  types.ParamRange,
	"/text":   types.ParamText,
	"/tgt":    types.ParamLang,
	"/pos":    types.ParamPosition,
}

func (bh *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update, user types.User, session *types.Session) {
	lang := langFromCtx(ctx)
	cmd, arg := splitCommand(update.Message.Text)
	if cmd == "" {
		return
	}

	switch cmd {
	case "/start":
		bh.handleStart(ctx, b, user, lang)
	case "/help":
		bh.sendHelp(ctx, b, user, lang, session)
	case "/new_resume":
		bh.sendResumeForm(ctx, b, user, lang)
	case "/done":
		bh.finishSession(ctx, b, user, lang, session)
	case "/cancel":
		bh.cancelSession(ctx, b, user, lang, session)
	case "/status":
		bh.sendStatus(ctx, b, user, lang, session)
	default:
		if op, ok := commandOps[cmd]; ok {
			bh.openSession(ctx, b, user, lang, op, nil)
			return
		}
		if key, ok := commandParams[cmd]; ok {
			bh.setParam(ctx, b, user, lang, session, key, arg)
			return
		}
		bh.HandleText(ctx, b, update, user, session)
	}
}

// splitCommand returns the lowercased command without a @bot suffix and the raw
// text after it.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}
	cmd := fields[0]
	arg := strings.TrimSpace(text[len(cmd):])
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), arg
}
