package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/internal/logger"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/internal/operations"
	"github.com/BatmanBruc/ofmbot/internal/utils"
	"github.com/BatmanBruc/ofmbot/types"
)

var (
	ErrNotRunning = errors.New("scheduler is not running")
	ErrQueueFull  = errors.New("job queue is full")
	ErrDuplicate  = errors.New("job is already queued")
)

// BotClient is the part of the Telegram client the pool talks through.
type BotClient interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

type Fetcher interface {
	FetchAll(ctx context.Context, refs []types.FileRef, dir string) ([]string, error)
}

type Runner interface {
	Execute(ctx context.Context, j *operations.Job, inputs []operations.Input, workDir string) ([]operations.Output, error)
}

type Scheduler struct {
	botClient  BotClient
	fetcher    Fetcher
	runner     Runner
	stats      types.StatsStore
	workers    int
	maxQueued  int
	jobTimeout time.Duration
	tmpDir     string
	log        zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	jobQueue   chan *operations.Job
	inFlight   map[string]*inFlightEntry
	inFlightMu sync.RWMutex
}

type inFlightEntry struct {
	chatID    int64
	messageID int
	position  int
	op        types.Operation
	lang      i18n.Lang
}

type Config struct {
	Workers    int
	MaxQueued  int
	JobTimeout time.Duration
	TmpDir     string
}

func NewScheduler(botClient BotClient, fetcher Fetcher, runner Runner, stats types.StatsStore, config Config) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = 3
	}
	if config.MaxQueued <= 0 {
		config.MaxQueued = config.Workers * 20
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 10 * time.Minute
	}
	if config.TmpDir == "" {
		config.TmpDir = os.TempDir()
	}

	ctx, cancel := context.WithCancel(context.Background())

	queueSize := config.Workers * 2
	if queueSize < 10 {
		queueSize = 10
	}

	return &Scheduler{
		botClient:  botClient,
		fetcher:    fetcher,
		runner:     runner,
		stats:      stats,
		workers:    config.Workers,
		maxQueued:  config.MaxQueued,
		jobTimeout: config.JobTimeout,
		tmpDir:     config.TmpDir,
		log:        logger.Component("scheduler"),
		ctx:        ctx,
		cancel:     cancel,
		jobQueue:   make(chan *operations.Job, queueSize),
		inFlight:   make(map[string]*inFlightEntry),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info().Int("workers", s.workers).Msg("scheduler started")

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop cancels running jobs and waits for every worker to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.log.Info().Msg("stopping scheduler")
	s.cancel()
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Enqueue accepts a job, posts its queue-position message and returns the
// position. Zero means a worker is free and the job starts right away.
func (s *Scheduler) Enqueue(ctx context.Context, j *operations.Job) (int, error) {
	if !s.isRunning() {
		return 0, ErrNotRunning
	}

	s.inFlightMu.Lock()
	if _, exists := s.inFlight[j.ID]; exists {
		s.inFlightMu.Unlock()
		return 0, ErrDuplicate
	}
	if len(s.inFlight) >= s.maxQueued {
		s.inFlightMu.Unlock()
		return 0, ErrQueueFull
	}

	running := 0
	maxPos := 0
	for _, e := range s.inFlight {
		if e.position == 0 {
			running++
			continue
		}
		if e.position > maxPos {
			maxPos = e.position
		}
	}

	position := 0
	if running >= s.workers {
		position = maxPos + 1
	}

	s.inFlight[j.ID] = &inFlightEntry{
		chatID:   j.ChatID,
		position: position,
		op:       j.Op,
		lang:     j.Lang,
	}
	s.inFlightMu.Unlock()

	text := messages.QueueStarted(j.Lang, j.Op)
	if position > 0 {
		text = messages.QueueQueued(j.Lang, j.Op, position)
	}
	msg, err := s.botClient.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    j.ChatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("job_id", j.ID).Msg("queue status message failed")
	} else if msg != nil {
		s.inFlightMu.Lock()
		e, ok := s.inFlight[j.ID]
		if ok {
			e.messageID = msg.ID
		}
		s.inFlightMu.Unlock()
		if !ok {
			// The job is already gone, nobody else will clean this message up.
			s.deleteStatus(j.ChatID, msg.ID)
		}
	}

	go func() {
		select {
		case s.jobQueue <- j:
		case <-s.ctx.Done():
			s.inFlightMu.Lock()
			delete(s.inFlight, j.ID)
			s.inFlightMu.Unlock()
		}
	}()

	s.log.Info().Str("job_id", j.ID).Str("op", string(j.Op)).Int64("user_id", j.UserID).
		Int("position", position).Msg("job queued")
	return position, nil
}

// Pending reports how many jobs are queued or running.
func (s *Scheduler) Pending() int {
	s.inFlightMu.RLock()
	defer s.inFlightMu.RUnlock()
	return len(s.inFlight)
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	s.log.Debug().Int("worker", id).Msg("worker started")

	for {
		select {
		case <-s.ctx.Done():
			s.log.Debug().Int("worker", id).Msg("worker stopped")
			return
		case j := <-s.jobQueue:
			if err := s.process(j); err != nil {
				s.log.Error().Err(err).Int("worker", id).Str("job_id", j.ID).Str("op", string(j.Op)).
					Int64("user_id", j.UserID).Msg("job failed")
			}

			s.inFlightMu.Lock()
			entry := s.inFlight[j.ID]
			delete(s.inFlight, j.ID)
			s.inFlightMu.Unlock()

			if entry != nil {
				s.deleteStatus(entry.chatID, entry.messageID)
			}

			s.decrementQueueAndUpdateMessages()
		}
	}
}

func (s *Scheduler) deleteStatus(chatID int64, messageID int) {
	if chatID == 0 || messageID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.botClient.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	}); err != nil {
		s.log.Warn().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).
			Msg("failed to delete status message")
	}
}

func (s *Scheduler) decrementQueueAndUpdateMessages() {
	type upd struct {
		chatID    int64
		messageID int
		text      string
	}
	updates := make([]upd, 0)

	s.inFlightMu.Lock()
	for _, entry := range s.inFlight {
		if entry.position == 0 {
			continue
		}

		entry.position--

		if entry.chatID == 0 || entry.messageID == 0 {
			continue
		}

		text := messages.QueueQueued(entry.lang, entry.op, entry.position)
		if entry.position == 0 {
			text = messages.QueueStarted(entry.lang, entry.op)
		}
		updates = append(updates, upd{chatID: entry.chatID, messageID: entry.messageID, text: text})
	}
	s.inFlightMu.Unlock()

	if len(updates) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, u := range updates {
		_, err := s.botClient.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    u.chatID,
			MessageID: u.messageID,
			Text:      u.text,
			ParseMode: messages.ParseModeHTML,
		})
		if err != nil {
			s.log.Warn().Err(err).Int64("chat_id", u.chatID).Int("message_id", u.messageID).Msg("queue update failed")
		}
	}
}

func (s *Scheduler) process(j *operations.Job) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	workDir := filepath.Join(s.tmpDir, "job-"+j.ID)
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			s.log.Warn().Err(err).Str("dir", workDir).Msg("failed to remove workdir")
		}
	}()

	paths, err := s.fetcher.FetchAll(ctx, j.Files, filepath.Join(workDir, "in"))
	if err != nil {
		s.reply(j, operations.Explain(j.Lang, j.Op, err), nil)
		return err
	}
	inputs := make([]operations.Input, 0, len(paths))
	for i, p := range paths {
		inputs = append(inputs, operations.Input{Ref: j.Files[i], Path: p})
	}

	outputs, err := s.runner.Execute(ctx, j, inputs, filepath.Join(workDir, "work"))
	if err != nil {
		s.reply(j, operations.Explain(j.Lang, j.Op, err), nil)
		return err
	}

	sendCtx, sendCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer sendCancel()
	for _, out := range outputs {
		if err := s.sendDocumentFromPath(sendCtx, j.ChatID, out.Path, out.Name); err != nil {
			s.reply(j, messages.ErrorDefault(j.Lang), nil)
			return err
		}
	}

	if s.stats != nil {
		if err := s.stats.Incr(sendCtx, string(j.Op)); err != nil {
			s.log.Warn().Err(err).Str("op", string(j.Op)).Msg("counter increment failed")
		}
	}

	s.reply(j, messages.Done(j.Lang), utils.MainKeyboard(j.Lang))
	s.log.Info().Str("job_id", j.ID).Str("op", string(j.Op)).Int("outputs", len(outputs)).Msg("job completed")
	return nil
}

func (s *Scheduler) reply(j *operations.Job, text string, markup models.ReplyMarkup) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	params := &bot.SendMessageParams{
		ChatID:    j.ChatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := s.botClient.SendMessage(ctx, params); err != nil {
		s.log.Warn().Err(err).Str("job_id", j.ID).Msg("reply failed")
	}
}

func (s *Scheduler) sendDocumentFromPath(ctx context.Context, chatID int64, filePath string, fileName string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	if fileName == "" {
		fileName = filepath.Base(filePath)
	}

	_, err = s.botClient.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: fileName,
			Data:     file,
		},
		Caption: fileName,
	})
	return err
}
