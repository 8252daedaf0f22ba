package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jo-hoe/goimages/internal/status"
)

var errTooManyRedirects = errors.New("too many redirects")

// FetcherOptions bound what is downloaded from the origin.
type FetcherOptions struct {
	Timeout      time.Duration
	MaxSize      int64
	MaxRedirects int
	UserAgent    string
}

// Fetcher downloads source images from their origin.
type Fetcher struct {
	client *http.Client
	opts   FetcherOptions
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	client := &http.Client{
		Timeout: opts.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > opts.MaxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}
	return &Fetcher{client: client, opts: opts}
}

// NormalizeURL turns the url host key into an absolute http(s) URL. The
// "ssl:" prefix selects https, URLs without a scheme default to http.
func NormalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return nil, status.Errorf(status.InvalidUri, "Unable to parse URL")
	case strings.HasPrefix(raw, "ssl:"):
		raw = "https://" + strings.TrimLeft(strings.TrimPrefix(raw, "ssl:"), "/")
	case strings.HasPrefix(raw, "//"):
		raw = "http:" + raw
	case !strings.Contains(raw, "://"):
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, status.Errorf(status.InvalidUri, "Unable to parse URL")
	}
	return u, nil
}

// Fetch downloads u. Failures are returned as upstream statuses.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, status.Errorf(status.InvalidUri, "Unable to parse URL")
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classify(u, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Info("upstream returned an error", "url", u.Redacted(), "status", resp.StatusCode)
		return nil, &status.Error{Status: status.NewUpstream(resp.StatusCode, resp.Status)}
	}
	if f.opts.MaxSize > 0 && resp.ContentLength > f.opts.MaxSize {
		return nil, f.tooLarge(u)
	}

	body := io.Reader(resp.Body)
	if f.opts.MaxSize > 0 {
		body = io.LimitReader(resp.Body, f.opts.MaxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, f.classify(u, err)
	}
	if f.opts.MaxSize > 0 && int64(len(data)) > f.opts.MaxSize {
		return nil, f.tooLarge(u)
	}

	slog.Debug("upstream fetched", "url", u.Redacted(), "size_bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds())
	return data, nil
}

func (f *Fetcher) tooLarge(u *url.URL) error {
	slog.Warn("upstream image too large", "url", u.Redacted(), "limit", f.opts.MaxSize)
	return &status.Error{Status: status.NewUpstream(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("The image is too large to be downloaded. Max image size: %d bytes", f.opts.MaxSize))}
}

func (f *Fetcher) classify(u *url.URL, err error) error {
	var s status.Status
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, errTooManyRedirects):
		s = status.NewUpstream(310, fmt.Sprintf("Will not follow more than %d redirects", f.opts.MaxRedirects))
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		s = status.NewUpstream(http.StatusGatewayTimeout, "timeout")
	case errors.As(err, &dnsErr):
		s = status.NewUpstream(http.StatusBadGateway, dnsErr.Error())
	default:
		s = status.NewUpstream(http.StatusBadGateway, err.Error())
	}
	slog.Info("upstream fetch failed", "url", u.Redacted(), "status", s.Code(), "error", err)
	return &status.Error{Status: s, Err: err}
}
