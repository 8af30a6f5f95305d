package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/conn-castle/langpatch/internal/config"
	"github.com/conn-castle/langpatch/internal/messages"
)

// HTTPProvider serves <base>/<lang>/manifest.json and blobs under <base>/<lang>/files/.
type HTTPProvider struct {
	baseURL   string
	client    *http.Client
	maxBytes  int64
	noNetwork bool
	// idle bounds the gap between two reads of a response body.
	idle time.Duration
}

// NewHTTPProvider builds a provider rooted at baseURL. The configured timeout bounds the wait
// for response headers and every gap between body reads, so a large download is never cut
// off while it makes progress but a stalled one fails.
func NewHTTPProvider(baseURL string, cfg config.Manifest) *HTTPProvider {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout()
	return &HTTPProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Transport: transport},
		maxBytes:  cfg.MaxDownloadBytes,
		noNetwork: cfg.NoNetwork,
		idle:      cfg.Timeout(),
	}
}

// FetchManifest downloads and validates the manifest for code.
func (p *HTTPProvider) FetchManifest(ctx context.Context, code string) ([]Descriptor, error) {
	target := p.baseURL + "/" + url.PathEscape(code) + "/" + FileName
	body, err := p.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	data, err := readLimited(body, maxManifestBytes, target)
	if err != nil {
		return nil, err
	}
	descriptors, err := Parse(data, code)
	if err != nil {
		return nil, permanent(target, err)
	}
	return descriptors, nil
}

// FetchBlob opens the content of d, reading at most the configured download limit.
func (p *HTTPProvider) FetchBlob(ctx context.Context, d Descriptor) (io.ReadCloser, error) {
	target := d.URL
	if target == "" {
		target = p.blobURL(d)
	}
	if d.Size > p.maxBytes {
		return nil, permanent(target, fmt.Errorf(messages.ManifestTooLargeFmt, p.maxBytes))
	}
	body, err := p.get(ctx, target)
	if err != nil {
		return nil, err
	}
	return limitedBody{Reader: io.LimitReader(body, p.maxBytes), Closer: body}, nil
}

func (p *HTTPProvider) blobURL(d Descriptor) string {
	segments := strings.Split(d.Path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return p.baseURL + "/" + url.PathEscape(d.Language) + "/files/" + strings.Join(segments, "/")
}

func (p *HTTPProvider) get(ctx context.Context, target string) (io.ReadCloser, error) {
	if p.noNetwork {
		return nil, permanent(target, fmt.Errorf(messages.ManifestNoNetworkFmt, config.EnvNoNetwork))
	}
	reqCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, permanent(target, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, permanent(target, ctx.Err())
		}
		if isNetworkError(err) {
			return nil, transient(target, err)
		}
		return nil, permanent(target, err)
	}
	if resp.StatusCode == http.StatusOK {
		return newIdleBody(resp.Body, cancel, p.idle, target), nil
	}
	_ = resp.Body.Close()
	cancel()
	statusErr := fmt.Errorf(messages.ManifestUnexpectedStatusFmt, resp.Status)
	if shouldRetryStatus(resp.StatusCode) {
		return nil, transient(target, statusErr)
	}
	return nil, permanent(target, statusErr)
}

func shouldRetryStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

type limitedBody struct {
	io.Reader
	io.Closer
}

// idleBody fails a response body that delivers nothing for longer than idle. The failure is
// a retryable fetch error.
type idleBody struct {
	body    io.ReadCloser
	cancel  context.CancelFunc
	idle    time.Duration
	source  string
	timer   *time.Timer
	stalled atomic.Bool
}

func newIdleBody(body io.ReadCloser, cancel context.CancelFunc, idle time.Duration, source string) *idleBody {
	b := &idleBody{body: body, cancel: cancel, idle: idle, source: source}
	if idle > 0 {
		b.timer = time.AfterFunc(idle, func() {
			b.stalled.Store(true)
			cancel()
		})
	}
	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if b.stalled.Load() {
		if err != nil && err != io.EOF {
			return n, transient(b.source, fmt.Errorf(messages.ManifestStalledFmt, b.idle))
		}
		return n, err
	}
	if n > 0 && b.timer != nil {
		b.timer.Reset(b.idle)
	}
	return n, err
}

func (b *idleBody) Close() error {
	if b.timer != nil {
		b.timer.Stop()
	}
	err := b.body.Close()
	b.cancel()
	return err
}
