package contextkeys

import (
	"context"

	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/types"
)

type messageTypeKey struct{}
type filesKey struct{}
type userKey struct{}
type langKey struct{}
type callbackDataKey struct{}

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypePhoto       MessageType = "photo"
	MessageTypeDocument    MessageType = "document"
	MessageTypeMedia       MessageType = "media"
	MessageTypeUnknown     MessageType = "unknown"
	MessageTypeCommand     MessageType = "command"
	MessageTypeClickButton MessageType = "clickButton"
)

func WithMessageType(ctx context.Context, msgType MessageType) context.Context {
	return context.WithValue(ctx, messageTypeKey{}, msgType)
}

func GetMessageType(ctx context.Context) (MessageType, bool) {
	v, ok := ctx.Value(messageTypeKey{}).(MessageType)
	if !ok {
		return MessageTypeUnknown, false
	}
	return v, true
}

func WithFiles(ctx context.Context, files []types.FileRef) context.Context {
	return context.WithValue(ctx, filesKey{}, files)
}

func GetFiles(ctx context.Context) []types.FileRef {
	v, _ := ctx.Value(filesKey{}).([]types.FileRef)
	return v
}

func HasFiles(ctx context.Context) bool {
	return len(GetFiles(ctx)) > 0
}

// WithUser stores the update's sender. ChatID is the chat the reply goes to.
func WithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

func GetUser(ctx context.Context) (types.User, bool) {
	v, ok := ctx.Value(userKey{}).(types.User)
	return v, ok
}

func WithLang(ctx context.Context, lang i18n.Lang) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

func GetLang(ctx context.Context) (i18n.Lang, bool) {
	v, ok := ctx.Value(langKey{}).(i18n.Lang)
	return v, ok
}

func WithCallbackData(ctx context.Context, data string) context.Context {
	return context.WithValue(ctx, callbackDataKey{}, data)
}

func GetCallbackData(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(callbackDataKey{}).(string)
	return v, ok
}
