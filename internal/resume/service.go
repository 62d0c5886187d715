package resume

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BatmanBruc/ofmbot/internal/converter"
	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/internal/logger"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/templates"
	"github.com/BatmanBruc/ofmbot/types"
)

var ErrTemplateMissing = errors.New("resume.docx topilmadi")

// Sender is the part of the Telegram client the resume flow needs.
type Sender interface {
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type Config struct {
	TemplatesDir  string
	TmpDir        string
	ArchiveChatID int64
}

type Service struct {
	sender    Sender
	converter converter.Converter
	stats     types.StatsStore
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(sender Sender, conv converter.Converter, stats types.StatsStore, cfg Config) *Service {
	if cfg.TmpDir == "" {
		cfg.TmpDir = os.TempDir()
	}
	return &Service{
		sender:    sender,
		converter: conv,
		stats:     stats,
		cfg:       cfg,
		log:       logger.Component("resume"),
		now:       time.Now,
	}
}

// Submit renders the resume, delivers it to the user and the archive chat, and records it.
func (s *Service) Submit(ctx context.Context, f *Form) error {
	tpl, err := templates.Read(s.cfg.TemplatesDir, templates.ResumeDocx)
	if err != nil {
		s.log.Error().Err(err).Msg("resume template")
		return ErrTemplateMissing
	}

	docx, err := RenderDocx(tpl, f, f.Photo)
	if err != nil {
		s.log.Error().Err(err).Msg("render docx")
		return fmt.Errorf("DOCX render xato: %w", err)
	}

	pdf, err := s.toPDF(ctx, docx)
	if err != nil {
		s.log.Warn().Err(err).Str("name", f.FullName()).Msg("resume pdf conversion failed")
	}

	base := f.BaseName()
	s.archive(ctx, f, base)
	s.deliver(ctx, f, base, docx, pdf)

	if s.stats != nil {
		if err := s.stats.Incr(ctx, types.CounterResume); err != nil {
			s.log.Warn().Err(err).Msg("resume counter")
		}
		payload, _ := f.Payload(s.now())
		rec := types.ResumeRecord{
			TelegramID: f.TelegramID,
			FullName:   f.FullName(),
			Phone:      f.Phone(),
			Payload:    payload,
			HasPDF:     len(pdf) > 0,
			CreatedAt:  s.now().UTC(),
		}
		if err := s.stats.SaveResume(ctx, rec); err != nil {
			s.log.Warn().Err(err).Msg("save resume record")
		}
	}
	return nil
}

func (s *Service) toPDF(ctx context.Context, docx []byte) ([]byte, error) {
	if s.converter == nil {
		return nil, converter.ErrToolMissing
	}
	dir := filepath.Join(s.cfg.TmpDir, "resume_"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "resume.docx")
	if err := os.WriteFile(in, docx, 0o644); err != nil {
		return nil, err
	}
	out, err := s.converter.Office(ctx, in, dir, "pdf")
	if err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}

func (s *Service) archive(ctx context.Context, f *Form, base string) {
	if s.cfg.ArchiveChatID == 0 {
		return
	}
	if len(f.Photo) > 0 {
		if err := s.sendBytes(ctx, s.cfg.ArchiveChatID, base+".png", f.Photo, messages.ArchivePhotoCaption(f.FullName(), f.Phone())); err != nil {
			s.log.Warn().Err(err).Int64("chat_id", s.cfg.ArchiveChatID).Msg("archive photo")
		}
	}
	payload, err := f.Payload(s.now())
	if err != nil {
		s.log.Warn().Err(err).Msg("archive payload")
		return
	}
	if err := s.sendBytes(ctx, s.cfg.ArchiveChatID, base+".json", payload, messages.ArchiveJSONCaption(f.FullName())); err != nil {
		s.log.Warn().Err(err).Int64("chat_id", s.cfg.ArchiveChatID).Msg("archive json")
	}
}

func (s *Service) deliver(ctx context.Context, f *Form, base string, docx, pdf []byte) {
	if f.TelegramID == 0 {
		return
	}
	lang := i18n.UZ
	if err := s.sendBytes(ctx, f.TelegramID, base+"_0.docx", docx, messages.ResumeDocxCaption(lang)); err != nil {
		s.log.Warn().Err(err).Int64("user_id", f.TelegramID).Msg("send resume docx")
		return
	}
	if len(pdf) > 0 {
		if err := s.sendBytes(ctx, f.TelegramID, base+"_0.pdf", pdf, messages.ResumePDFCaption(lang)); err != nil {
			s.log.Warn().Err(err).Int64("user_id", f.TelegramID).Msg("send resume pdf")
		}
		return
	}
	_, err := s.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    f.TelegramID,
		Text:      messages.ResumePDFFailed(lang),
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", f.TelegramID).Msg("send pdf warning")
	}
}

func (s *Service) sendBytes(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	_, err := s.sender.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: name,
			Data:     bytes.NewReader(data),
		},
		Caption: caption,
	})
	return err
}
