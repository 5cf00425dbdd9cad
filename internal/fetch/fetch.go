package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"media-gateway/internal/logging"
	"media-gateway/internal/metrics"
)

// DefaultCeiling is the prefix size fetched when none is configured (10 MiB).
const DefaultCeiling int64 = 10 << 20

// Config holds fetcher settings.
type Config struct {
	Ceiling   int64             // maximum bytes returned; also sets the Range header
	Timeout   time.Duration     // whole-fetch timeout including the redirect hop
	Transport http.RoundTripper // nil uses an instrumented default transport
	UserAgent string
}

// Result is a successful fetch. Body holds at most Config.Ceiling bytes.
type Result struct {
	Body        []byte
	ContentType string
	FinalURL    string
	Redirected  bool
}

// Fetcher performs ranged prefix downloads.
type Fetcher struct {
	client    *http.Client
	ceiling   int64
	userAgent string
}

// New creates a Fetcher. Automatic redirect following is disabled.
func New(cfg Config) *Fetcher {
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = DefaultCeiling
	}
	transport := cfg.Transport
	if transport == nil {
		transport = otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone())
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "media-gateway"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		ceiling:   cfg.Ceiling,
		userAgent: cfg.UserAgent,
	}
}

// Fetch downloads the first Ceiling bytes of rawURL. credential, when set, is
// sent as a bearer token to the original URL only.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, credential string) (*Result, error) {
	start := time.Now()
	res, err := f.fetch(ctx, rawURL, credential)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		var fe *Error
		if errors.As(err, &fe) {
			metrics.FetchRequestsTotal.WithLabelValues(fe.Kind.String()).Inc()
		}
		return nil, err
	}

	metrics.FetchRequestsTotal.WithLabelValues("success").Inc()
	metrics.FetchBytesTotal.Add(float64(len(res.Body)))
	return res, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL, credential string) (*Result, error) {
	log := logging.With("fetch")

	target, err := parseSource(rawURL)
	if err != nil {
		return nil, clientError(rawURL, "invalid url", err)
	}

	resp, err := f.do(ctx, target, credential)
	if err != nil {
		return nil, upstreamError(rawURL, 0, "request failed", err)
	}

	redirected := false
	if isRedirect(resp.StatusCode) {
		next, lerr := resp.Location()
		discard(resp)
		if lerr != nil {
			return nil, clientError(rawURL, "redirect without usable location", lerr)
		}
		if next.Scheme != "http" && next.Scheme != "https" {
			return nil, clientError(rawURL, "redirect to unsupported scheme", fmt.Errorf("scheme %q", next.Scheme))
		}

		metrics.FetchRedirectsTotal.Inc()
		log.Debug().Str("from", displayURL(target.String())).Str("to", displayURL(next.String())).Msg("following redirect without credential")

		// The credential stays with the original origin.
		resp, err = f.do(ctx, next, "")
		if err != nil {
			return nil, upstreamError(next.String(), 0, "request failed", err)
		}
		if isRedirect(resp.StatusCode) {
			discard(resp)
			return nil, upstreamError(rawURL, resp.StatusCode, "too many redirects", nil)
		}
		target = next
		redirected = true
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return nil, upstreamError(target.String(), resp.StatusCode, "origin did not return partial content", nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.ceiling))
	if err != nil {
		return nil, upstreamError(target.String(), resp.StatusCode, "reading body", err)
	}

	log.Debug().Str("url", displayURL(target.String())).Int("bytes", len(body)).Bool("redirected", redirected).Msg("fetched prefix")

	return &Result{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    target.String(),
		Redirected:  redirected,
	}, nil
}

func (f *Fetcher) do(ctx context.Context, u *url.URL, credential string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", "bytes=0-"+strconv.FormatInt(f.ceiling-1, 10))
	req.Header.Set("User-Agent", f.userAgent)
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	return f.client.Do(req)
}

// IsRemote reports whether source is an http(s) URL the fetcher can download.
func IsRemote(source string) bool {
	_, err := parseSource(source)
	return err == nil
}

func parseSource(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// discard drains a small amount of the body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
	_ = resp.Body.Close()
}
