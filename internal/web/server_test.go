package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/ofmbot/internal/resume"
	"github.com/BatmanBruc/ofmbot/store"
	"github.com/BatmanBruc/ofmbot/types"
)

type fakeTelegram struct {
	mu       sync.Mutex
	webhooks []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	var result string
	switch method {
	case "getMe":
		result = `{"id":1,"is_bot":true,"first_name":"ofm","username":"ofm_test_bot"}`
	case "setWebhook":
		_ = r.ParseMultipartForm(1 << 20)
		f.mu.Lock()
		f.webhooks = append(f.webhooks, r.FormValue("url"))
		f.mu.Unlock()
		result = `true`
	default:
		result = `true`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"ok":true,"result":%s}`, result)
}

type fakeSubmitter struct {
	forms []*resume.Form
	err   error
	panic bool
}

func (f *fakeSubmitter) Submit(_ context.Context, form *resume.Form) error {
	if f.panic {
		panic("template exploded")
	}
	f.forms = append(f.forms, form)
	return f.err
}

type fixture struct {
	tg      *fakeTelegram
	handler http.Handler
	updates []*models.Update
	resumes *fakeSubmitter
	stats   *store.MemoryStats
	panics  bool
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	tg := &fakeTelegram{}
	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	b, err := bot.New("123:test", bot.WithServerURL(srv.URL))
	require.NoError(t, err)

	f := &fixture{tg: tg, resumes: &fakeSubmitter{}, stats: store.NewMemoryStats()}
	dispatch := func(_ context.Context, _ *bot.Bot, update *models.Update) {
		if f.panics {
			panic("boom")
		}
		f.updates = append(f.updates, update)
	}
	if cfg.WebhookURL == nil {
		cfg.WebhookURL = func(base string) string {
			if base == "" {
				base = "https://ofm.example"
			}
			return strings.TrimRight(base, "/") + "/bot/webhook"
		}
	}
	f.handler = NewServer(b, dispatch, f.resumes, f.stats, cfg).Handler()
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_RootAndDebug(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/debug/ping", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/debug/getme", nil))
	assert.JSONEq(t, `{"id":1,"username":"ofm_test_bot"}`, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Webhook(t *testing.T) {
	f := newFixture(t, Config{WebhookSecret: "s3cret"})
	body := `{"update_id":10,"message":{"message_id":1,"date":0,"chat":{"id":50,"type":"private"},"text":"/start"}}`

	req := httptest.NewRequest(http.MethodPost, "/bot/webhook", strings.NewReader(body))
	rec := f.do(req)
	assert.JSONEq(t, `{"ok":false}`, rec.Body.String())
	assert.Empty(t, f.updates)

	req = httptest.NewRequest(http.MethodPost, "/bot/webhook", strings.NewReader(body))
	req.Header.Set(secretHeader, "s3cret")
	rec = f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.Len(t, f.updates, 1)
	assert.Equal(t, int64(10), f.updates[0].ID)
	assert.Equal(t, "/start", f.updates[0].Message.Text)

	req = httptest.NewRequest(http.MethodPost, "/bot/webhook", strings.NewReader("{not json"))
	req.Header.Set(secretHeader, "s3cret")
	rec = f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":false}`, rec.Body.String())
}

func TestServer_WebhookHandlerPanic(t *testing.T) {
	f := newFixture(t, Config{})
	f.panics = true

	req := httptest.NewRequest(http.MethodPost, "/bot/webhook", strings.NewReader(`{"update_id":1}`))
	rec := f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":false}`, rec.Body.String())
}

func TestServer_SetWebhook(t *testing.T) {
	f := newFixture(t, Config{AdminToken: "s3cret"})

	rec := f.do(httptest.NewRequest(http.MethodGet, "/bot/set_webhook?base=https://other.dev/&token=s3cret", nil))
	assert.JSONEq(t, `{"ok":true,"webhook":"https://other.dev/bot/webhook"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/bot/set_webhook", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = f.do(req)
	assert.JSONEq(t, `{"ok":true,"webhook":"https://ofm.example/bot/webhook"}`, rec.Body.String())

	f.tg.mu.Lock()
	defer f.tg.mu.Unlock()
	assert.Equal(t, []string{"https://other.dev/bot/webhook", "https://ofm.example/bot/webhook"}, f.tg.webhooks)
}

func TestServer_SetWebhookRequiresAdminToken(t *testing.T) {
	cases := []struct {
		name  string
		token string
		url   string
	}{
		{"no token presented", "s3cret", "/bot/set_webhook?base=https://attacker.example"},
		{"wrong token", "s3cret", "/bot/set_webhook?base=https://attacker.example&token=guess"},
		{"no token configured", "", "/bot/set_webhook?base=https://attacker.example"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Config{AdminToken: tc.token})

			rec := f.do(httptest.NewRequest(http.MethodGet, tc.url, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"ok":false}`, rec.Body.String())

			f.tg.mu.Lock()
			defer f.tg.mu.Unlock()
			assert.Empty(t, f.tg.webhooks)
		})
	}
}

func TestServer_Admin(t *testing.T) {
	f := newFixture(t, Config{AdminToken: "adm"})
	ctx := context.Background()
	require.NoError(t, f.stats.Incr(ctx, string(types.OpMerge)))
	require.NoError(t, f.stats.Incr(ctx, string(types.OpMerge)))
	require.NoError(t, f.stats.TrackUser(ctx, types.User{UserID: 1}))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/admin?token=adm", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "<th>Birlashtirish</th><td>2</td>")
	assert.Contains(t, page, "<th>Rezyume</th><td>0</td>")
	assert.Contains(t, page, "Foydalanuvchilar: 1")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer adm")
	rec = f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Form(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(httptest.NewRequest(http.MethodGet, "/form?id=42", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `name="tg_id" value="42"`)
}

func TestServer_SubmitResumeURLEncoded(t *testing.T) {
	f := newFixture(t, Config{})

	form := url.Values{"full_name": {"Ali Valiyev"}, "tg_id": {"42"}}
	req := httptest.NewRequest(http.MethodPost, "/send_resume_data", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(req)

	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
	require.Len(t, f.resumes.forms, 1)
	got := f.resumes.forms[0]
	assert.Equal(t, int64(42), got.TelegramID)
	assert.Equal(t, "Ali Valiyev", got.FullName())
	assert.Equal(t, resume.Placeholder, got.Phone())
	assert.Nil(t, got.Photo)
}

func TestServer_SubmitResumeMultipart(t *testing.T) {
	f := newFixture(t, Config{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("full_name", "Vali"))
	require.NoError(t, mw.WriteField("relatives", `[{"relation":"Otasi","name":"Soli"}]`))
	part, err := mw.CreateFormFile("photo", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/send_resume_data", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := f.do(req)

	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
	require.Len(t, f.resumes.forms, 1)
	got := f.resumes.forms[0]
	assert.Equal(t, "Vali", got.FullName())
	assert.Equal(t, []byte("png-bytes"), got.Photo)
	require.Len(t, got.Relatives, 1)
	assert.Equal(t, "Soli", got.Relatives[0]["name"])
}

func TestServer_SubmitResumeErrors(t *testing.T) {
	f := newFixture(t, Config{})
	f.resumes.err = errors.New("resume.docx topilmadi")

	req := httptest.NewRequest(http.MethodPost, "/send_resume_data", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"error","error":"resume.docx topilmadi"}`, rec.Body.String())

	f.resumes.panic = true
	req = httptest.NewRequest(http.MethodPost, "/send_resume_data", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"error","error":"template exploded"}`, rec.Body.String())
}

func TestServer_CORS(t *testing.T) {
	f := newFixture(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/debug/ping", nil)
	req.Header.Set("Origin", "https://web.telegram.org")
	rec := f.do(req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
