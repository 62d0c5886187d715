package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/BatmanBruc/ofmbot/internal/formats"
	"github.com/BatmanBruc/ofmbot/internal/logger"
	"github.com/BatmanBruc/ofmbot/types"
)

const (
	DefaultConcurrency = 3
	// Bot API refuses downloads above 20 MB.
	DefaultMaxSize = 20 << 20
)

var (
	ErrTooLarge = errors.New("file is too large")
	ErrNoFileID = errors.New("file has no telegram id")

	unsafeCharsRe = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)
)

type FileGetter interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
}

type Downloader struct {
	getter      FileGetter
	apiURL      string
	token       string
	client      *http.Client
	concurrency int
	maxSize     int64
	log         zerolog.Logger
}

type Option func(*Downloader)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

func WithConcurrency(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

func WithMaxSize(n int64) Option {
	return func(d *Downloader) { d.maxSize = n }
}

func NewDownloader(getter FileGetter, apiURL, token string, opts ...Option) *Downloader {
	d := &Downloader{
		getter:      getter,
		apiURL:      strings.TrimRight(apiURL, "/"),
		token:       token,
		concurrency: DefaultConcurrency,
		maxSize:     DefaultMaxSize,
		log:         logger.Component("files"),
		client: &http.Client{
			Timeout: 10 * time.Minute,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FetchAll downloads refs into dir. The returned paths keep the order of refs.
func (d *Downloader) FetchAll(ctx context.Context, refs []types.FileRef, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			start := time.Now()
			path, err := d.Fetch(gctx, ref, filepath.Join(dir, LocalName(i, ref)))
			if err != nil {
				return fmt.Errorf("download %q: %w", ref.Name, err)
			}
			paths[i] = path
			d.log.Debug().Str("file", ref.Name).Dur("took", time.Since(start)).Msg("downloaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// Fetch resolves ref through getFile and stores its content at dest.
func (d *Downloader) Fetch(ctx context.Context, ref types.FileRef, dest string) (string, error) {
	if strings.TrimSpace(ref.FileID) == "" {
		return "", ErrNoFileID
	}
	if d.maxSize > 0 && ref.Size > d.maxSize {
		return "", ErrTooLarge
	}
	info, err := d.getter.GetFile(ctx, &bot.GetFileParams{FileID: ref.FileID})
	if err != nil {
		return "", fmt.Errorf("get file info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.DownloadURL(info.FilePath), nil)
	if err != nil {
		return "", err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	var body io.Reader = resp.Body
	if d.maxSize > 0 {
		body = io.LimitReader(resp.Body, d.maxSize+1)
	}
	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && d.maxSize > 0 && n > d.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func (d *Downloader) DownloadURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", d.apiURL, d.token, strings.TrimLeft(filePath, "/"))
}

// LocalName is the on-disk name for the i-th file of a job.
func LocalName(i int, ref types.FileRef) string {
	name := strings.TrimSpace(filepath.Base(ref.Name))
	name = unsafeCharsRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "_" {
		name = "file"
	}
	if formats.Ext(name) == "" {
		if ext := formats.ExtFromMime(ref.MIME); ext != "" {
			name += "." + ext
		}
	}
	return fmt.Sprintf("%02d_%s", i+1, name)
}
