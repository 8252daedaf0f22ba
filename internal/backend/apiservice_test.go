package backend

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/goimages/internal/cache"
	"github.com/jo-hoe/goimages/internal/core"
	"github.com/jo-hoe/goimages/internal/engine/native"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

type testEnv struct {
	server   *echo.Echo
	upstream *httptest.Server
	hits     *atomic.Int32
	image    []byte
}

func newTestEnv(t *testing.T, opts FetcherOptions) *testEnv {
	t.Helper()
	env := &testEnv{hits: new(atomic.Int32), image: testPNG(t, 40, 20)}

	mux := http.NewServeMux()
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, _ *http.Request) {
		env.hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(env.image)
	})
	mux.HandleFunc("/text", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("definitely not an image"))
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	env.upstream = httptest.NewServer(mux)
	t.Cleanup(env.upstream.Close)

	processorOpts := core.DefaultOptions()
	processorOpts.ReservedKeys = HostKeys
	processor, err := core.NewProcessor(native.New(), processorOpts)
	if err != nil {
		t.Fatalf("NewProcessor error: %v", err)
	}
	c, err := cache.NewCache("sqlite", ":memory:", time.Hour)
	if err != nil {
		t.Fatalf("NewCache error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	env.server = NewServer()
	NewAPIService(processor, NewFetcher(opts), c).SetRoutes(env.server)
	return env
}

func defaultFetcherOptions() FetcherOptions {
	return FetcherOptions{Timeout: 5 * time.Second, MaxSize: 1 << 20, MaxRedirects: 3}
}

func (env *testEnv) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var body struct {
		Status  string `json:"status"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected a status body, got %q", rec.Body.String())
	}
	if body.Status != "error" {
		t.Errorf("Expected status error, got %s", body.Status)
	}
	return body.Code, body.Message
}

func TestProbe(t *testing.T) {
	env := newTestEnv(t, defaultFetcherOptions())
	rec := env.get("/probe")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestGet_ProcessesUpstreamImage(t *testing.T) {
	env := newTestEnv(t, defaultFetcherOptions())
	target := "/?url=" + env.upstream.URL + "/image.png&w=10&output=png"

	rec := env.get(target)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=31536000" {
		t.Errorf("Unexpected Cache-Control %q", cc)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("Expected a png body, got %v", err)
	}
	if cfg.Width != 10 || cfg.Height != 5 {
		t.Errorf("Expected 10x5, got %dx%d", cfg.Width, cfg.Height)
	}

	cached := env.get(target)
	if cached.Header().Get("X-Cache") != "HIT" || !bytes.Equal(cached.Body.Bytes(), rec.Body.Bytes()) {
		t.Error("Expected the second response to be served from the cache")
	}
	if hits := env.hits.Load(); hits != 1 {
		t.Errorf("Expected one upstream request, got %d", hits)
	}
}

func TestGet_SchemelessURL(t *testing.T) {
	env := newTestEnv(t, defaultFetcherOptions())
	host := strings.TrimPrefix(env.upstream.URL, "http://")

	rec := env.get("/?url=" + host + "/image.png&h=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected the png origin to be kept, got %s", ct)
	}
}

func TestGet_Errors(t *testing.T) {
	tests := []struct {
		name     string
		target   func(env *testEnv) string
		opts     func(o *FetcherOptions)
		wantCode int
		wantText string
	}{
		{"missing url", func(*testEnv) string { return "/?w=10" }, nil, http.StatusBadRequest, "Unable to parse URL"},
		{"unsupported scheme", func(*testEnv) string { return "/?url=ftp://example.org/a.png" }, nil, http.StatusBadRequest, "Unable to parse URL"},
		{"upstream not found", func(env *testEnv) string { return "/?url=" + env.upstream.URL + "/missing.png" }, nil,
			http.StatusNotFound, "The requested URL returned error: 404"},
		{"redirect loop", func(env *testEnv) string { return "/?url=" + env.upstream.URL + "/loop" }, nil,
			310, "Will not follow more than 3 redirects"},
		{"too large", func(env *testEnv) string { return "/?url=" + env.upstream.URL + "/image.png" },
			func(o *FetcherOptions) { o.MaxSize = 16 }, http.StatusRequestEntityTooLarge, "Max image size: 16 bytes"},
		{"not an image", func(env *testEnv) string { return "/?url=" + env.upstream.URL + "/text" }, nil,
			http.StatusBadRequest, "Invalid or unsupported image format"},
		{"invalid encoding", func(env *testEnv) string { return "/?url=" + env.upstream.URL + "/image.png&encoding=hex" }, nil,
			http.StatusBadRequest, "encoding (oneof)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultFetcherOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			env := newTestEnv(t, opts)

			rec := env.get(tt.target(env))
			if rec.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, rec.Code)
			}
			code, message := decodeStatus(t, rec)
			if code != tt.wantCode {
				t.Errorf("Expected body code %d, got %d", tt.wantCode, code)
			}
			if !strings.Contains(message, tt.wantText) {
				t.Errorf("Expected message containing %q, got %q", tt.wantText, message)
			}
		})
	}
}

func TestGet_DefaultRedirect(t *testing.T) {
	env := newTestEnv(t, defaultFetcherOptions())

	rec := env.get("/?url=" + env.upstream.URL + "/missing.png&default=example.org/fallback.png")
	if rec.Code != http.StatusFound {
		t.Fatalf("Expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "http://example.org/fallback.png" {
		t.Errorf("Expected redirect to the default image, got %s", loc)
	}
}

func TestGet_HostKeys(t *testing.T) {
	env := newTestEnv(t, defaultFetcherOptions())

	rec := env.get("/?url=" + env.upstream.URL + "/image.png&w=4&encoding=base64&filename=photo&maxage=7d")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "data:image/png;base64,") {
		t.Errorf("Expected a data URI, got %.40q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `inline; filename="photo.png"` {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=604800" {
		t.Errorf("Unexpected Cache-Control %q", cc)
	}
}

func TestPost_ProcessesBody(t *testing.T) {
	env := newTestEnv(t, defaultFetcherOptions())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/?w=20&output=json", bytes.NewReader(env.image))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var info map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("Expected JSON metadata, got %v", err)
	}
	if info["format"] != "png" || info["width"] != float64(20) {
		t.Errorf("Unexpected metadata %v", info)
	}
	if env.hits.Load() != 0 {
		t.Error("Expected no upstream request")
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"example.org/a.jpg", "http://example.org/a.jpg"},
		{"ssl:example.org/a.jpg", "https://example.org/a.jpg"},
		{"ssl://example.org/a.jpg", "https://example.org/a.jpg"},
		{"//example.org/a.jpg", "http://example.org/a.jpg"},
		{"https://example.org/a.jpg?x=1", "https://example.org/a.jpg?x=1"},
	}
	for _, tt := range tests {
		u, err := NormalizeURL(tt.raw)
		if err != nil {
			t.Errorf("NormalizeURL(%q) error: %v", tt.raw, err)
			continue
		}
		if u.String() != tt.want {
			t.Errorf("NormalizeURL(%q): expected %s, got %s", tt.raw, tt.want, u.String())
		}
	}

	for _, raw := range []string{"", "ftp://example.org/a", "http://"} {
		if _, err := NormalizeURL(raw); err == nil {
			t.Errorf("Expected an error for %q", raw)
		}
	}
}

func TestMaxAge(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", defaultMaxAge},
		{"3600", time.Hour},
		{"2d", 48 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"5y", defaultMaxAge},
		{"-1d", defaultMaxAge},
		{"soon", defaultMaxAge},
	}
	for _, tt := range tests {
		if got := maxAge(tt.value); got != tt.want {
			t.Errorf("maxAge(%q): expected %s, got %s", tt.value, tt.want, got)
		}
	}
}
