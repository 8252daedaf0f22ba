package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/chai2010/webp"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/engine/enginetest"
	"github.com/jo-hoe/goimages/internal/engine/native"
	"github.com/jo-hoe/goimages/internal/query"
	"github.com/jo-hoe/goimages/internal/saver"
	"github.com/jo-hoe/goimages/internal/status"
	"github.com/jo-hoe/goimages/internal/stream"
)

func newTestProcessor(t *testing.T, e engine.Engine, opts Options) *Processor {
	t.Helper()
	p, err := NewProcessor(e, opts)
	if err != nil {
		t.Fatalf("NewProcessor error: %v", err)
	}
	return p
}

func TestProcess_Success(t *testing.T) {
	e := enginetest.New("jpegload_source", 400, 300)
	p := newTestProcessor(t, e, DefaultOptions())

	target := stream.NewBufferTarget()
	s := p.Process(context.Background(), "w=200", stream.NewBufferSource([]byte("jpeg")), target)
	if !s.Ok() {
		t.Fatalf("Expected OK, got %v", s)
	}
	if got := string(target.Bytes()); got != "jpeg:200x150" {
		t.Errorf("Expected jpeg:200x150, got %s", got)
	}
	if target.Extension() != ".jpg" || !target.Finished() {
		t.Errorf("Expected a finished .jpg target, got %q finished=%v", target.Extension(), target.Finished())
	}
	if e.Cleared() != 1 {
		t.Errorf("Expected engine state to be cleared once, got %d", e.Cleared())
	}
}

func TestProcess_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *enginetest.Engine, opts *Options)
		query string
		want  status.Code
	}{
		{"unknown format", func(e *enginetest.Engine, _ *Options) { e.LoaderErr = errors.New("no loader") }, "", status.InvalidImage},
		{"corrupt header", func(e *enginetest.Engine, _ *Options) { e.LoadErr = errors.New("corrupt") }, "", status.ImageNotReadable},
		{"input too large", func(_ *enginetest.Engine, opts *Options) { opts.Limits.LimitInputPixels = 100 }, "", status.ImageTooLarge},
		{"saver disabled", func(_ *enginetest.Engine, opts *Options) { opts.Save.Savers = saver.MaskOf(query.OutputPng) }, "", status.UnsupportedSaver},
		{"engine failure", func(e *enginetest.Engine, _ *Options) { e.SaveErr = engine.NewError("jpegsave", errors.New("boom")) }, "", status.LibvipsError},
		{"decode failure", func(e *enginetest.Engine, _ *Options) { e.SaveErr = engine.NewDecodeError("jpegload", errors.New("truncated")) }, "", status.ImageNotReadable},
		{"unexpected failure", func(e *enginetest.Engine, _ *Options) { e.SaveErr = errors.New("disk full") }, "", status.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := enginetest.New("jpegload_source", 400, 300)
			opts := DefaultOptions()
			tt.setup(e, &opts)
			p := newTestProcessor(t, e, opts)

			target := stream.NewBufferTarget()
			s := p.Process(context.Background(), tt.query, stream.NewBufferSource([]byte("jpeg")), target)
			if s.AppCode() != tt.want {
				t.Errorf("Expected %s, got %s (%s)", tt.want, s.AppCode(), s.Message())
			}
			if target.Finished() || len(target.Bytes()) != 0 {
				t.Error("Expected no output on failure")
			}
			if e.Cleared() != 1 {
				t.Errorf("Expected engine state to be cleared once, got %d", e.Cleared())
			}
		})
	}
}

func TestProcess_Deadline(t *testing.T) {
	e := enginetest.New("jpegload_source", 400, 300)
	p := newTestProcessor(t, e, DefaultOptions())

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, _, s := p.ProcessBuffer(ctx, "w=200", []byte("jpeg"))
	if s.AppCode() != status.LibvipsError {
		t.Fatalf("Expected LibvipsError, got %s", s.AppCode())
	}
	if !strings.Contains(s.Message(), "Maximum image processing time") {
		t.Errorf("Unexpected message %q", s.Message())
	}
}

type failingTarget struct{}

func (failingTarget) Setup(string) error          { return errors.New("closed") }
func (failingTarget) Write(p []byte) (int, error) { return len(p), nil }
func (failingTarget) Finish() error               { return nil }

func TestProcess_TargetFailure(t *testing.T) {
	e := enginetest.New("jpegload_source", 40, 30)
	p := newTestProcessor(t, e, DefaultOptions())

	s := p.Process(context.Background(), "", stream.NewBufferSource([]byte("jpeg")), failingTarget{})
	if s.AppCode() != status.Unknown || s.HTTPCode() != 500 {
		t.Errorf("Expected Unknown with 500, got %s with %d", s.AppCode(), s.HTTPCode())
	}
}

func TestParse_ReservedKeys(t *testing.T) {
	opts := DefaultOptions()
	opts.ReservedKeys = []string{"url", "filename"}
	p := newTestProcessor(t, enginetest.New("jpegload_source", 10, 10), opts)

	d := p.Parse("url=example.org/a.jpg&w=5&filename=a")
	if d.Exists("url") || d.Exists("filename") {
		t.Error("Expected reserved keys to be skipped")
	}
	if d.Int(query.KeyWidth, 0) != 5 {
		t.Errorf("Expected width 5, got %d", d.Int(query.KeyWidth, 0))
	}
}

func TestProcessBuffer_Native(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 6), G: 80, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("Failed to encode source: %v", err)
	}

	p := newTestProcessor(t, native.New(), DefaultOptions())
	data, ext, s := p.ProcessBuffer(context.Background(), "w=10&output=png", buf.Bytes())
	if !s.Ok() {
		t.Fatalf("Expected OK, got %v", s)
	}
	if ext != ".png" {
		t.Errorf("Expected .png, got %s", ext)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Expected a png, got %v", err)
	}
	if cfg.Width != 10 || cfg.Height != 5 {
		t.Errorf("Expected 10x5, got %dx%d", cfg.Width, cfg.Height)
	}

	_, _, s = p.ProcessBuffer(context.Background(), "w=10", []byte("not an image"))
	if s.AppCode() != status.InvalidImage {
		t.Errorf("Expected InvalidImage, got %s", s.AppCode())
	}
}

func TestProcessBuffer_NativeWebP(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 100; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 40, G: uint8(y * 4), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, src, &webp.Options{Quality: 80}); err != nil {
		t.Fatalf("Failed to encode source: %v", err)
	}

	tests := []struct {
		query         string
		width, height int
	}{
		{"", 100, 60},
		{"w=50", 50, 30},
		{"output=webp&q=60", 100, 60},
	}
	p := newTestProcessor(t, native.New(), DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			data, ext, s := p.ProcessBuffer(context.Background(), tt.query, buf.Bytes())
			if !s.Ok() {
				t.Fatalf("Expected OK, got %v", s)
			}
			if ext != ".webp" {
				t.Errorf("Expected .webp, got %s", ext)
			}
			cfg, err := webp.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Expected a webp, got %v", err)
			}
			if cfg.Width != tt.width || cfg.Height != tt.height {
				t.Errorf("Expected %dx%d, got %dx%d", tt.width, tt.height, cfg.Width, cfg.Height)
			}
		})
	}
}

func TestProcessBuffer_OpaqueGIFMetadata(t *testing.T) {
	pal := color.Palette{color.NRGBA{10, 20, 30, 255}, color.NRGBA{200, 100, 0, 255}}
	anim := &gif.GIF{LoopCount: 0}
	for i := 0; i < 2; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 12, 8), pal)
		for j := range frame.Pix {
			frame.Pix[j] = uint8(i)
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 10)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		t.Fatalf("Failed to encode source: %v", err)
	}

	p := newTestProcessor(t, native.New(), DefaultOptions())
	data, _, s := p.ProcessBuffer(context.Background(), "n=-1&output=json", buf.Bytes())
	if !s.Ok() {
		t.Fatalf("Expected OK, got %v", s)
	}
	var info map[string]any
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("Expected json, got %v", err)
	}
	if info["hasAlpha"] != false {
		t.Errorf("Expected hasAlpha false, got %v", info["hasAlpha"])
	}
	if info["channels"] != float64(3) {
		t.Errorf("Expected 3 channels, got %v", info["channels"])
	}
	if info["pages"] != float64(2) {
		t.Errorf("Expected 2 pages, got %v", info["pages"])
	}
}
