package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nikolalohinski/gonja"

	"github.com/BatmanBruc/ofmbot/internal/resume"
	"github.com/BatmanBruc/ofmbot/templates"
)

const (
	maxFormBytes  = 32 << 20
	maxPhotoBytes = 10 << 20
)

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	out, err := renderForm(s.cfg.TemplatesDir, strings.TrimSpace(r.URL.Query().Get("id")))
	if err != nil {
		s.log.Error().Err(err).Msg("render form")
		writeJSON(w, map[string]interface{}{"status": "error", "error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

func renderForm(dir, tgID string) (string, error) {
	src, err := templates.Read(dir, templates.FormHTML)
	if err != nil {
		return "", fmt.Errorf("read form template: %w", err)
	}
	tpl, err := gonja.FromString(string(src))
	if err != nil {
		return "", fmt.Errorf("parse form template: %w", err)
	}
	return tpl.Execute(map[string]interface{}{"tg_id": tgID})
}

func (s *Server) handleSubmitResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.log.Warn().Err(err).Msg("resume form parse")
		writeJSON(w, map[string]interface{}{"status": "error", "error": err.Error()})
		return
	}

	f := resume.ParseValues(r.Form)
	f.Photo = s.readPhoto(r)

	if err := s.resumes.Submit(r.Context(), f); err != nil {
		s.log.Error().Err(err).Int64("user_id", f.TelegramID).Msg("resume submit")
		writeJSON(w, map[string]interface{}{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, map[string]interface{}{"status": "success"})
}

// readPhoto returns the uploaded photo bytes. A missing or unreadable photo is not an error.
func (s *Server) readPhoto(r *http.Request) []byte {
	if r.MultipartForm == nil {
		return nil
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		return nil
	}
	defer file.Close()
	if header.Filename == "" {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
	if err != nil {
		s.log.Warn().Err(err).Str("file", header.Filename).Msg("resume photo read")
		return nil
	}
	return data
}
