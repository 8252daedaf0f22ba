package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrFinished is returned when writing to a finished target.
var ErrFinished = errors.New("target already finished")

// Target receives the encoded output. Setup is called once with the file
// extension before the first Write, Finish once after the last.
type Target interface {
	Setup(extension string) error
	Write(p []byte) (int, error)
	Finish() error
}

// BufferTarget collects the output in memory.
type BufferTarget struct {
	extension string
	buf       bytes.Buffer
	finished  bool
}

func NewBufferTarget() *BufferTarget {
	return &BufferTarget{}
}

func (t *BufferTarget) Setup(extension string) error {
	t.extension = extension
	return nil
}

func (t *BufferTarget) Write(p []byte) (int, error) {
	if t.finished {
		return 0, ErrFinished
	}
	return t.buf.Write(p)
}

func (t *BufferTarget) Finish() error {
	t.finished = true
	return nil
}

// Bytes returns the collected output.
func (t *BufferTarget) Bytes() []byte {
	return t.buf.Bytes()
}

// Extension returns the extension passed to Setup, e.g. ".png".
func (t *BufferTarget) Extension() string {
	return t.extension
}

// Finished reports whether Finish has been called.
func (t *BufferTarget) Finished() bool {
	return t.finished
}

// WriterTarget streams the output to an io.Writer. OnSetup, when set, is
// called with the extension before any byte is written, e.g. to set headers.
type WriterTarget struct {
	Writer  io.Writer
	OnSetup func(extension string) error
	written int64
}

func NewWriterTarget(w io.Writer) *WriterTarget {
	return &WriterTarget{Writer: w}
}

func (t *WriterTarget) Setup(extension string) error {
	if t.OnSetup == nil {
		return nil
	}
	if err := t.OnSetup(extension); err != nil {
		return fmt.Errorf("failed to set up target: %w", err)
	}
	return nil
}

func (t *WriterTarget) Write(p []byte) (int, error) {
	n, err := t.Writer.Write(p)
	t.written += int64(n)
	return n, err
}

// Finish flushes or closes the writer when it supports it.
func (t *WriterTarget) Finish() error {
	if flusher, ok := t.Writer.(interface{ Flush() error }); ok {
		if err := flusher.Flush(); err != nil {
			return fmt.Errorf("failed to flush target: %w", err)
		}
	}
	return nil
}

// Written returns the number of bytes written so far.
func (t *WriterTarget) Written() int64 {
	return t.written
}
