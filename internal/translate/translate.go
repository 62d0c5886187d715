package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/BatmanBruc/ofmbot/internal/logger"
)

const maxChunk = 4500

var (
	ErrEmptyText     = errors.New("nothing to translate")
	ErrInvalidTarget = errors.New("invalid target language")
	ErrBadResponse   = errors.New("unexpected translation response")

	targetRe = regexp.MustCompile(`^[a-z]{2,5}$`)
)

type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Client talks to the Google Translate gtx endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	maxRetries uint64
	backoff    func() backoff.BackOff
	log        zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetries(n uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.backoff = func() backoff.BackOff {
			return backoff.NewExponentialBackOff(backoff.WithInitialInterval(initial))
		}
	}
}

func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(backoff.WithInitialInterval(500 * time.Millisecond))
		},
		log: logger.Component("translate"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func ValidTarget(target string) bool {
	return targetRe.MatchString(target)
}

func (c *Client) Translate(ctx context.Context, text, target string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	target = strings.ToLower(strings.TrimSpace(target))
	if !ValidTarget(target) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}

	parts := make([]string, 0)
	for _, chunk := range Chunks(text, maxChunk) {
		translated, err := c.translateChunk(ctx, chunk, target)
		if err != nil {
			return "", err
		}
		parts = append(parts, translated)
	}
	return strings.Join(parts, "\n"), nil
}

func (c *Client) translateChunk(ctx context.Context, text, target string) (string, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(c.backoff(), c.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Dur("wait", wait).Str("tgt", target).Msg("retrying")
	}
	return backoff.RetryNotifyWithData(func() (string, error) {
		return c.request(ctx, text, target)
	}, policy, notify)
}

func (c *Client) request(ctx context.Context, text, target string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", target)
	q.Set("dt", "t")
	body := url.Values{"q": {text}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+q.Encode(), strings.NewReader(body.Encode()))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", fmt.Errorf("translate: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", backoff.Permanent(fmt.Errorf("translate: status %d", resp.StatusCode))
	}
	out, err := ParseResponse(raw)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	return out, nil
}

// ParseResponse joins the translated segments of a gtx response.
func ParseResponse(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", ErrBadResponse
	}
	segments := gjson.GetBytes(raw, "0.#.0")
	if !segments.IsArray() {
		return "", ErrBadResponse
	}
	var sb strings.Builder
	for _, seg := range segments.Array() {
		sb.WriteString(seg.String())
	}
	if sb.Len() == 0 {
		return "", ErrBadResponse
	}
	return sb.String(), nil
}

// Chunks splits text at line boundaries into pieces of at most limit bytes.
// A single line longer than limit is cut at rune boundaries.
func Chunks(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	chunks := make([]string, 0)
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			flush()
			cut := limit
			for cut > 0 && !isRuneStart(line[cut]) {
				cut--
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			flush()
		}
		cur.WriteString(line)
	}
	flush()
	return chunks
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
