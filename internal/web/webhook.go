package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.cfg.WebhookSecret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.WebhookSecret)) != 1 {
			s.log.Warn().Str("remote", r.RemoteAddr).Msg("webhook secret mismatch")
			writeJSON(w, map[string]interface{}{"ok": false})
			return
		}
	}

	var update models.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
		s.log.Warn().Err(err).Msg("webhook body is not an update")
		writeJSON(w, map[string]interface{}{"ok": false})
		return
	}

	// Detached: a client disconnect must not cancel update handling.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.UpdateTimeout)
	defer cancel()

	if err := s.dispatch(ctx, &update); err != nil {
		s.log.Error().Err(err).Int64("update_id", update.ID).Msg("update handling failed")
		writeJSON(w, map[string]interface{}{"ok": false})
		return
	}
	writeJSON(w, map[string]interface{}{"ok": true})
}

func (s *Server) dispatch(ctx context.Context, update *models.Update) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	s.handler(ctx, s.bot, update)
	return nil
}

// handleSetWebhook re-registers the webhook. Telegram sends the webhook secret
// to whatever URL is registered, so the route is closed unless an admin token
// is configured and presented.
func (s *Server) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AdminToken == "" || !s.adminAllowed(r) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("set_webhook without admin token")
		writeJSON(w, map[string]interface{}{"ok": false})
		return
	}
	url := s.cfg.WebhookURL(r.URL.Query().Get("base"))
	if err := RegisterWebhook(r.Context(), s.bot, url, s.cfg.WebhookSecret); err != nil {
		s.log.Error().Err(err).Str("url", url).Msg("setWebhook failed")
		writeJSON(w, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, map[string]interface{}{"ok": true, "webhook": url})
}

// RegisterWebhook points Telegram at url.
func RegisterWebhook(ctx context.Context, b *bot.Bot, url, secret string) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	ok, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:         url,
		SecretToken: secret,
	})
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	if !ok {
		return fmt.Errorf("set webhook: telegram refused %s", url)
	}
	return nil
}
