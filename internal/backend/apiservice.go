package backend

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/goimages/internal/cache"
	"github.com/jo-hoe/goimages/internal/core"
	"github.com/jo-hoe/goimages/internal/status"
	"github.com/jo-hoe/goimages/internal/stream"
)

// HostKeys are the query keys read by the HTTP host instead of the processor.
var HostKeys = []string{"url", "default", "filename", "maxage", "encoding"}

const defaultMaxAge = 365 * 24 * time.Hour

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".avif": "image/avif",
	".tiff": "image/tiff",
	".gif":  "image/gif",
	".json": "application/json",
}

// hostParams are the bound host keys.
type hostParams struct {
	URL      string `query:"url"`
	Default  string `query:"default"`
	Filename string `query:"filename" validate:"omitempty,max=255"`
	MaxAge   string `query:"maxage"`
	Encoding string `query:"encoding" validate:"omitempty,oneof=base64"`
}

type APIService struct {
	processor *core.Processor
	fetcher   *Fetcher
	cache     cache.Cache

	// MaxBodySize bounds POST bodies, 0 for no limit.
	MaxBodySize int64
}

func NewAPIService(processor *core.Processor, fetcher *Fetcher, c cache.Cache) *APIService {
	return &APIService{
		processor: processor,
		fetcher:   fetcher,
		cache:     c,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	e.GET("/", s.handleURL)
	e.POST("/", s.handleUpload)
}

func (s *APIService) handleURL(c echo.Context) error {
	params, err := bindHostParams(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	rawQuery := c.Request().URL.RawQuery

	u, err := NormalizeURL(params.URL)
	if err != nil {
		return s.renderError(c, params, err)
	}

	key := cache.Key([]byte(u.String()), []byte(rawQuery))
	if entry := s.lookup(ctx, key); entry != nil {
		c.Response().Header().Set("X-Cache", "HIT")
		return s.render(c, params, entry)
	}

	data, err := s.fetcher.Fetch(ctx, u)
	if err != nil {
		return s.renderError(c, params, err)
	}
	return s.process(c, params, key, rawQuery, data)
}

func (s *APIService) handleUpload(c echo.Context) error {
	params, err := bindHostParams(c)
	if err != nil {
		return err
	}

	body := io.Reader(c.Request().Body)
	if s.MaxBodySize > 0 {
		body = io.LimitReader(body, s.MaxBodySize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("failed to read request body: %v", err))
	}
	if s.MaxBodySize > 0 && int64(len(data)) > s.MaxBodySize {
		return s.renderError(c, params, status.Errorf(status.ImageTooLarge,
			"The image is too large to be uploaded. Max image size: %d bytes", s.MaxBodySize))
	}

	rawQuery := c.Request().URL.RawQuery
	key := cache.Key(data, []byte(rawQuery))
	if entry := s.lookup(c.Request().Context(), key); entry != nil {
		c.Response().Header().Set("X-Cache", "HIT")
		return s.render(c, params, entry)
	}
	return s.process(c, params, key, rawQuery, data)
}

func (s *APIService) process(c echo.Context, params *hostParams, key, rawQuery string, data []byte) error {
	ctx := c.Request().Context()
	target := stream.NewBufferTarget()
	result := s.processor.Process(ctx, rawQuery, stream.NewBufferSource(data), target)
	if !result.Ok() {
		return s.renderStatus(c, params, result)
	}

	entry := &cache.Entry{Data: target.Bytes(), Extension: target.Extension()}
	if err := s.cache.Set(ctx, key, entry); err != nil {
		slog.Error("failed to cache response", "error", err)
	}
	return s.render(c, params, entry)
}

func (s *APIService) lookup(ctx context.Context, key string) *cache.Entry {
	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Error("failed to read cached response", "error", err)
		return nil
	}
	return entry
}

func (s *APIService) render(c echo.Context, params *hostParams, entry *cache.Entry) error {
	contentType, ok := contentTypes[entry.Extension]
	if !ok {
		contentType = echo.MIMEOctetStream
	}

	header := c.Response().Header()
	header.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(maxAge(params.MaxAge).Seconds())))
	if params.Filename != "" {
		header.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", sanitizeFilename(params.Filename)+entry.Extension))
	}

	if params.Encoding == "base64" {
		body := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(entry.Data)
		return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, []byte(body))
	}
	return c.Blob(http.StatusOK, contentType, entry.Data)
}

func (s *APIService) renderError(c echo.Context, params *hostParams, err error) error {
	result, ok := status.FromError(err)
	if !ok {
		slog.Error("unclassified request failure", "error", err)
		result = status.New(status.Unknown, err.Error())
	}
	return s.renderStatus(c, params, result)
}

// renderStatus responds with the status JSON, or redirects to the default
// image when one was requested.
func (s *APIService) renderStatus(c echo.Context, params *hostParams, result status.Status) error {
	if params.Default != "" {
		if u, err := NormalizeURL(params.Default); err == nil {
			return c.Redirect(http.StatusFound, u.String())
		}
	}
	return c.JSONBlob(result.HTTPCode(), result.JSON())
}

func bindHostParams(c echo.Context) (*hostParams, error) {
	params := new(hostParams)
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, params); err != nil {
		return nil, err
	}
	if err := c.Validate(params); err != nil {
		return nil, err
	}
	return params, nil
}

// maxAge parses values such as 3600, 7d, 2w, 1m or 1y. Out of range or
// invalid values fall back to a year.
func maxAge(value string) time.Duration {
	if value == "" {
		return defaultMaxAge
	}
	unit := time.Second
	switch value[len(value)-1] {
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	case 'm':
		unit = 30 * 24 * time.Hour
	case 'y':
		unit = 365 * 24 * time.Hour
	}
	if unit != time.Second {
		value = value[:len(value)-1]
	}

	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultMaxAge
	}
	age := time.Duration(n) * unit
	if age > defaultMaxAge {
		return defaultMaxAge
	}
	return age
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`/\:*?"<>|`, r) {
			return -1
		}
		return r
	}, name)
}
