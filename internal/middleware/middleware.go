package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/ofmbot/internal/contextkeys"
	"github.com/BatmanBruc/ofmbot/internal/formats"
	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/types"
)

type Middlewares struct {
	locks *KeyedMutex
}

func NewMessageAnalyzer() *Middlewares {
	return &Middlewares{
		locks: NewKeyedMutex(),
	}
}

// Chain wraps h so that the first middleware runs first.
func Chain(h bot.HandlerFunc, mws ...bot.Middleware) bot.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// All returns the middlewares every update goes through, in order.
func (m *Middlewares) All() []bot.Middleware {
	return []bot.Middleware{m.IdentifyUserMiddleware, m.SerializeUserMiddleware, m.AnalyzeMessageMiddleware}
}

// IdentifyUserMiddleware puts the sender and their language into the context.
// Updates without a user or chat are dropped.
func (m *Middlewares) IdentifyUserMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var (
			from   *models.User
			chatID int64
		)

		switch {
		case update.Message != nil && update.Message.From != nil:
			from = update.Message.From
			chatID = update.Message.Chat.ID
		case update.CallbackQuery != nil:
			from = &update.CallbackQuery.From
			chatID = getChatIDFromMaybeInaccessibleMessage(update.CallbackQuery.Message)
			if chatID == 0 {
				chatID = from.ID
			}
		default:
			return
		}

		if from.ID == 0 || chatID == 0 {
			return
		}

		user := types.User{
			UserID:       from.ID,
			ChatID:       chatID,
			Username:     from.Username,
			FirstName:    from.FirstName,
			LastName:     from.LastName,
			LanguageCode: from.LanguageCode,
		}
		ctx = contextkeys.WithUser(ctx, user)
		ctx = contextkeys.WithLang(ctx, i18n.FromLanguageCode(from.LanguageCode))
		next(ctx, b, update)
	}
}

// SerializeUserMiddleware runs one update at a time per user so concurrent
// webhook deliveries cannot interleave session writes.
func (m *Middlewares) SerializeUserMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		user, ok := contextkeys.GetUser(ctx)
		if !ok {
			next(ctx, b, update)
			return
		}
		unlock := m.locks.Lock(user.UserID)
		defer unlock()
		next(ctx, b, update)
	}
}

func getChatIDFromMaybeInaccessibleMessage(m models.MaybeInaccessibleMessage) int64 {
	if m.Message != nil {
		return m.Message.Chat.ID
	}
	if m.InaccessibleMessage != nil {
		return m.InaccessibleMessage.Chat.ID
	}
	return 0
}

func (m *Middlewares) AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.CallbackQuery != nil {
			ctx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeClickButton)
			ctx = contextkeys.WithCallbackData(ctx, strings.TrimSpace(update.CallbackQuery.Data))
			next(ctx, b, update)
			return
		}

		if update.Message != nil && strings.HasPrefix(strings.TrimSpace(update.Message.Text), "/") {
			ctx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCommand)
		} else {
			ctx = analyzeMessage(ctx, update)
		}

		next(ctx, b, update)
	}
}

func analyzeMessage(ctx context.Context, update *models.Update) context.Context {
	if update.Message == nil {
		return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeUnknown)
	}

	msg := update.Message
	ctx = contextkeys.WithMessageType(ctx, determineMessageType(msg))
	if files := FilesFromMessage(msg); len(files) > 0 {
		ctx = contextkeys.WithFiles(ctx, files)
	}
	return ctx
}

func determineMessageType(msg *models.Message) contextkeys.MessageType {
	switch {
	case msg.Document != nil:
		return contextkeys.MessageTypeDocument
	case len(msg.Photo) > 0:
		return contextkeys.MessageTypePhoto
	case msg.Video != nil, msg.Audio != nil, msg.Voice != nil, msg.Sticker != nil, msg.VideoNote != nil:
		return contextkeys.MessageTypeMedia
	case msg.Text != "":
		return contextkeys.MessageTypeText
	}
	return contextkeys.MessageTypeUnknown
}

// FilesFromMessage builds file references for a document or the largest photo size.
func FilesFromMessage(msg *models.Message) []types.FileRef {
	files := make([]types.FileRef, 0, 1)

	if msg.Document != nil {
		files = append(files, documentRef(msg.Document))
	}

	if len(msg.Photo) > 0 {
		best := msg.Photo[0]
		for i := 1; i < len(msg.Photo); i++ {
			if msg.Photo[i].FileSize > best.FileSize {
				best = msg.Photo[i]
			}
		}
		files = append(files, types.FileRef{
			FileID: best.FileID,
			Name:   fmt.Sprintf("photo_%d.jpg", msg.Date),
			Size:   int64(best.FileSize),
			MIME:   "image/jpeg",
			Kind:   types.FileKindPhoto,
		})
	}

	return files
}

func documentRef(doc *models.Document) types.FileRef {
	fileName := strings.TrimSpace(doc.FileName)
	ext := formats.ExtFromMime(doc.MimeType)
	if fileName == "" {
		if ext == "" {
			ext = "bin"
		}
		fileName = "document." + ext
	} else if !strings.Contains(fileName, ".") && ext != "" {
		fileName = fileName + "." + ext
	}

	return types.FileRef{
		FileID: doc.FileID,
		Name:   fileName,
		Size:   int64(doc.FileSize),
		MIME:   doc.MimeType,
		Kind:   types.FileKindDocument,
	}
}
