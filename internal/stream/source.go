// Package stream provides the byte sources images are loaded from and the
// targets processed images are written to.
package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrNotSeekable is returned by Seek when seeking can not be synthesized.
var ErrNotSeekable = errors.New("source is not seekable")

// Source is a readable byte stream with seek support. Readers that cannot
// seek are buffered in memory on the first Seek, Peek or Bytes call.
type Source struct {
	reader   io.Reader
	seeker   io.ReadSeeker
	consumed bytes.Buffer
	data     []byte
}

// NewSource wraps r. If r implements io.ReadSeeker it is used directly.
func NewSource(r io.Reader) *Source {
	s := &Source{reader: r}
	if seeker, ok := r.(io.ReadSeeker); ok {
		s.seeker = seeker
	}
	return s
}

// NewBufferSource returns a seekable source over data.
func NewBufferSource(data []byte) *Source {
	return &Source{seeker: bytes.NewReader(data), data: data}
}

// Seekable reports whether the underlying reader seeks natively or has been buffered.
func (s *Source) Seekable() bool {
	return s.seeker != nil
}

func (s *Source) Read(p []byte) (int, error) {
	if s.seeker != nil {
		return s.seeker.Read(p)
	}
	// keep what was read so a later seek can replay it
	n, err := s.reader.Read(p)
	s.consumed.Write(p[:n])
	return n, err
}

// Seek moves the read offset. Unseekable readers are drained into memory first.
func (s *Source) Seek(offset int64, whence int) (int64, error) {
	if err := s.buffer(); err != nil {
		return -1, err
	}
	return s.seeker.Seek(offset, whence)
}

// Peek returns up to n bytes from the current offset without consuming them.
func (s *Source) Peek(n int) ([]byte, error) {
	if err := s.buffer(); err != nil {
		return nil, err
	}
	pos, err := s.seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to determine source offset: %w", err)
	}

	head := make([]byte, n)
	read, err := io.ReadFull(s.seeker, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to peek source: %w", err)
	}
	if _, err := s.seeker.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind source: %w", err)
	}
	return head[:read], nil
}

// Bytes returns the complete content of the source regardless of the current offset.
func (s *Source) Bytes() ([]byte, error) {
	if s.data != nil {
		return s.data, nil
	}
	if err := s.buffer(); err != nil {
		return nil, err
	}
	if s.data != nil {
		return s.data, nil
	}

	pos, err := s.seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to determine source offset: %w", err)
	}
	if _, err := s.seeker.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind source: %w", err)
	}
	data, err := io.ReadAll(s.seeker)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if _, err := s.seeker.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to restore source offset: %w", err)
	}
	s.data = data
	return data, nil
}

// buffer synthesizes seeking for plain readers by reading the remainder into
// memory behind the bytes already consumed.
func (s *Source) buffer() error {
	if s.seeker != nil {
		return nil
	}
	if s.reader == nil {
		return ErrNotSeekable
	}

	rest, err := io.ReadAll(s.reader)
	if err != nil {
		return fmt.Errorf("failed to buffer source: %w", err)
	}
	offset := int64(s.consumed.Len())
	s.consumed.Write(rest)
	s.data = s.consumed.Bytes()

	reader := bytes.NewReader(s.data)
	if _, err := reader.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to position buffered source: %w", err)
	}
	s.seeker = reader
	return nil
}
