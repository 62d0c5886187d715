package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/ofmbot/internal/i18n"
	"github.com/BatmanBruc/ofmbot/internal/messages"
	"github.com/BatmanBruc/ofmbot/internal/middleware"
	"github.com/BatmanBruc/ofmbot/internal/operations"
	"github.com/BatmanBruc/ofmbot/internal/scheduler"
	"github.com/BatmanBruc/ofmbot/internal/utils"
	"github.com/BatmanBruc/ofmbot/store"
	"github.com/BatmanBruc/ofmbot/types"
)

const (
	testUser int64 = 5
	testChat int64 = 50
)

type apiCall struct {
	method string
	form   map[string]string
}

type fakeTelegram struct {
	mu     sync.Mutex
	calls  []apiCall
	nextID int
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	form := map[string]string{}
	if err := r.ParseMultipartForm(1 << 20); err == nil && r.MultipartForm != nil {
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				form[k] = v[0]
			}
		}
	}

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	if method != "getMe" {
		f.calls = append(f.calls, apiCall{method: method, form: form})
	}
	f.mu.Unlock()

	var result string
	switch method {
	case "getMe":
		result = `{"id":1,"is_bot":true,"first_name":"ofm","username":"ofm_test_bot"}`
	case "answerCallbackQuery", "deleteMessage", "setWebhook":
		result = `true`
	default:
		result = fmt.Sprintf(`{"message_id":%d,"date":0,"chat":{"id":%d,"type":"private"}}`, id, testChat)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"ok":true,"result":%s}`, result)
}

// texts returns the text of every sendMessage call so far and forgets them.
func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		if c.method == "sendMessage" {
			out = append(out, c.form["text"])
		}
	}
	f.calls = nil
	return out
}

func (f *fakeTelegram) markups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		if c.method == "sendMessage" {
			out = append(out, c.form["reply_markup"])
		}
	}
	return out
}

type fakeQueue struct {
	jobs []*operations.Job
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, j *operations.Job) (int, error) {
	if q.err != nil {
		return 0, q.err
	}
	q.jobs = append(q.jobs, j)
	return len(q.jobs) - 1, nil
}

type fakeTranslator struct{}

func (fakeTranslator) Translate(_ context.Context, text, target string) (string, error) {
	return "[" + target + "] " + text, nil
}

type harness struct {
	tg       *fakeTelegram
	bot      *bot.Bot
	sessions *store.MemorySessionStore
	stats    *store.MemoryStats
	queue    *fakeQueue
	handler  bot.HandlerFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tg := &fakeTelegram{}
	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	b, err := bot.New("123:test", bot.WithServerURL(srv.URL))
	require.NoError(t, err)

	h := &harness{
		tg:       tg,
		bot:      b,
		sessions: store.NewMemorySessionStore(time.Hour, 25),
		stats:    store.NewMemoryStats(),
		queue:    &fakeQueue{},
	}
	bh := NewHandlers(h.sessions, h.stats, h.queue, fakeTranslator{}, Config{BaseURL: "https://ofm.example/", DefaultTarget: "uz"})
	h.handler = middleware.Chain(bh.MainHandler, middleware.NewMessageAnalyzer().All()...)
	tg.texts()
	return h
}

// message dispatches a text message and leaves the recorded calls in place.
func (h *harness) message(text string) {
	h.handler(context.Background(), h.bot, &models.Update{Message: &models.Message{
		ID:   1,
		Text: text,
		Chat: models.Chat{ID: testChat},
		From: &models.User{ID: testUser, FirstName: "Ali"},
	}})
}

func (h *harness) send(text string) []string {
	h.message(text)
	return h.tg.texts()
}

func (h *harness) upload(name, mime string) []string {
	h.handler(context.Background(), h.bot, &models.Update{Message: &models.Message{
		ID:       2,
		Chat:     models.Chat{ID: testChat},
		From:     &models.User{ID: testUser},
		Document: &models.Document{FileID: "file-" + name, FileName: name, MimeType: mime},
	}})
	return h.tg.texts()
}

func (h *harness) click(data string) []string {
	h.handler(context.Background(), h.bot, &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb",
		Data: data,
		From: models.User{ID: testUser},
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: 3, Chat: models.Chat{ID: testChat}},
		},
	}})
	return h.tg.texts()
}

func (h *harness) session(t *testing.T) *types.Session {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), testUser)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil
	}
	require.NoError(t, err)
	return s
}

func TestStart_CountsUser(t *testing.T) {
	h := newHarness(t)

	texts := h.send("/start")
	require.Len(t, texts, 1)
	assert.Equal(t, messages.StartWelcome(i18n.UZ, 1), texts[0])

	counters, err := h.stats.Counters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters[types.CounterStart])
}

func TestOpenSession_ByCommandAndButton(t *testing.T) {
	h := newHarness(t)

	texts := h.send("/pdf_merge")
	require.NotEmpty(t, texts)
	assert.Equal(t, messages.SessionIntro(i18n.UZ, types.OpMerge), texts[0])
	assert.Equal(t, types.OpMerge, h.session(t).Op)

	texts = h.send(messages.ButtonLabel(i18n.EN, messages.BtnSplit))
	require.NotEmpty(t, texts)
	assert.Equal(t, types.OpSplit, h.session(t).Op)
}

func TestConvert_AsksForTarget(t *testing.T) {
	h := newHarness(t)

	texts := h.send("/convert")
	require.Len(t, texts, 2)
	assert.Equal(t, messages.ParamUsage(i18n.UZ, types.ParamTarget), texts[1])

	texts = h.click("target_docx")
	require.Len(t, texts, 1)
	assert.Equal(t, messages.ParamSet(i18n.UZ, types.ParamTarget, "docx"), texts[0])
	assert.Equal(t, "docx", h.session(t).Param(types.ParamTarget))
}

func TestParams(t *testing.T) {
	h := newHarness(t)

	texts := h.send("/range 1-3")
	require.Len(t, texts, 1)
	assert.Equal(t, messages.OpenSessionFirst(i18n.UZ, types.OpSplit), texts[0])

	h.send("/pdf_split")
	texts = h.send("/range abc")
	assert.Equal(t, []string{messages.ParamUsage(i18n.UZ, types.ParamRange)}, texts)

	texts = h.send("/range 1-3, 5")
	assert.Equal(t, []string{messages.ParamSet(i18n.UZ, types.ParamRange, "1-3, 5")}, texts)
	assert.Equal(t, "1-3, 5", h.session(t).Param(types.ParamRange))

	texts = h.send("/text hello")
	assert.Equal(t, []string{messages.OpenSessionFirst(i18n.UZ, types.OpWatermark)}, texts)

	h.send("/watermark")
	h.send("/text  Maxfiy   hujjat ")
	assert.Equal(t, "Maxfiy   hujjat", h.session(t).Param(types.ParamText))
	h.send("/pos TR")
	assert.Equal(t, "top-right", h.session(t).Param(types.ParamPosition))
	texts = h.send("/pos middle")
	assert.Equal(t, []string{messages.ParamUsage(i18n.UZ, types.ParamPosition)}, texts)

	h.send("/translate")
	texts = h.send("/tgt EN")
	assert.Equal(t, []string{messages.ParamSet(i18n.UZ, types.ParamLang, "en")}, texts)
	texts = h.send("/tgt english")
	assert.Equal(t, []string{messages.ParamUsage(i18n.UZ, types.ParamLang)}, texts)
}

func TestFileWithoutSession_GoesPending(t *testing.T) {
	h := newHarness(t)

	texts := h.upload("scan.png", "image/png")
	require.Len(t, texts, 1)
	assert.Equal(t, messages.FileReceivedSuggest(i18n.UZ, types.FileKindDocument, "scan.png"), texts[0])
	n, err := h.sessions.PendingCount(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	texts = h.click(utils.CallbackSuggestPDF)
	require.NotEmpty(t, texts)
	s := h.session(t)
	require.NotNil(t, s)
	assert.Equal(t, types.OpConvert, s.Op)
	assert.Equal(t, "pdf", s.Param(types.ParamTarget))
	require.Len(t, s.Files, 1)
	assert.Equal(t, "file-scan.png", s.Files[0].FileID)

	n, err = h.sessions.PendingCount(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSuggestion_Refusals(t *testing.T) {
	h := newHarness(t)

	texts := h.click(utils.CallbackSuggestOCR)
	assert.Equal(t, []string{messages.NoSuitableFile(i18n.UZ)}, texts)

	h.send("/ocr")
	texts = h.click(utils.CallbackSuggestOCR)
	assert.Equal(t, []string{messages.FinishCurrentSession(i18n.UZ)}, texts)
}

func TestSuggestTranslate_DefaultTarget(t *testing.T) {
	h := newHarness(t)

	h.upload("page.pdf", "application/pdf")
	h.click(utils.CallbackSuggestTranslate)
	s := h.session(t)
	require.NotNil(t, s)
	assert.Equal(t, types.OpTranslate, s.Op)
	assert.Equal(t, "uz", s.Param(types.ParamLang))
}

func TestFileInSession_Appended(t *testing.T) {
	h := newHarness(t)

	h.send("/pdf_merge")
	texts := h.upload("a.pdf", "application/pdf")
	assert.Equal(t, []string{messages.FileAdded(i18n.UZ, types.FileKindDocument)}, texts)
	h.upload("b.pdf", "application/pdf")

	s := h.session(t)
	require.Len(t, s.Files, 2)
	assert.Equal(t, "a.pdf", s.Files[0].Name)
	assert.Equal(t, "b.pdf", s.Files[1].Name)
}

func TestDone_ValidatesThenQueues(t *testing.T) {
	h := newHarness(t)

	texts := h.send("/done")
	assert.Equal(t, []string{messages.NoSession(i18n.UZ)}, texts)

	h.send("/pdf_split")
	h.upload("doc.pdf", "application/pdf")

	texts = h.send("/done")
	assert.Equal(t, []string{messages.NeedParam(i18n.UZ, types.ParamRange)}, texts)
	require.NotNil(t, h.session(t))
	assert.Empty(t, h.queue.jobs)

	h.send("/range 2")
	texts = h.send(messages.ButtonLabel(i18n.UZ, messages.BtnDone))
	assert.Empty(t, texts)
	require.Len(t, h.queue.jobs, 1)
	job := h.queue.jobs[0]
	assert.Equal(t, types.OpSplit, job.Op)
	assert.Equal(t, testChat, job.ChatID)
	assert.Equal(t, "2", job.Param(types.ParamRange))
	assert.Nil(t, h.session(t))
}

func TestDone_QueueFullKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.queue.err = scheduler.ErrQueueFull

	h.send("/ocr")
	h.upload("a.png", "image/png")
	texts := h.send("/done")
	assert.Equal(t, []string{messages.QueueBusy(i18n.UZ)}, texts)
	assert.NotNil(t, h.session(t))
}

func TestTranslateSession_InlineText(t *testing.T) {
	h := newHarness(t)

	h.send("/translate")
	texts := h.send("salom dunyo")
	assert.Equal(t, []string{messages.Translated("uz", "[uz] salom dunyo")}, texts)

	h.send("/tgt en")
	texts = h.send("salom")
	assert.Equal(t, []string{messages.Translated("en", "[en] salom")}, texts)

	counters, err := h.stats.Counters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters[string(types.OpTranslate)])
}

func TestFreeText(t *testing.T) {
	h := newHarness(t)

	texts := h.send("nima gap")
	assert.Equal(t, []string{messages.ChooseSection(i18n.UZ)}, texts)

	h.send("/pdf_merge")
	texts = h.send("nima gap")
	require.Len(t, texts, 1)
	assert.Equal(t, messages.Status(i18n.UZ, h.session(t)), texts[0])
}

func TestCancelAndBack(t *testing.T) {
	h := newHarness(t)

	texts := h.send("/cancel")
	assert.Equal(t, []string{messages.NoSession(i18n.UZ)}, texts)

	h.send("/ocr")
	texts = h.send("/cancel")
	assert.Equal(t, []string{messages.Cancelled(i18n.UZ)}, texts)
	assert.Nil(t, h.session(t))

	h.send("/ocr")
	texts = h.send(messages.BackLabel(i18n.UZ, types.OpOCR))
	assert.Equal(t, []string{messages.ChooseSection(i18n.UZ)}, texts)
	assert.Nil(t, h.session(t))
}

func TestStatus(t *testing.T) {
	h := newHarness(t)

	texts := h.send("/status")
	assert.Equal(t, []string{messages.NoSession(i18n.UZ)}, texts)

	h.send("/pdf_split")
	h.send("/range 1")
	texts = h.send("/status@ofm_test_bot")
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "range=1")
}

func TestNewResume_WebAppButton(t *testing.T) {
	h := newHarness(t)

	h.message("/new_resume")
	markups := h.tg.markups()
	require.Len(t, markups, 1)
	assert.True(t, strings.Contains(markups[0], "https://ofm.example/form?id=5"), markups[0])
	assert.Equal(t, []string{messages.ResumeIntro(i18n.UZ)}, h.tg.texts())
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in, cmd, arg string
	}{
		{"/start", "/start", ""},
		{"/Range  1-3, 5 ", "/range", "1-3, 5"},
		{"/text@ofm_bot  two  words", "/text", "two  words"},
		{"   ", "", ""},
	}
	for _, tc := range cases {
		cmd, arg := splitCommand(tc.in)
		assert.Equal(t, tc.cmd, cmd, tc.in)
		assert.Equal(t, tc.arg, arg, tc.in)
	}
}
