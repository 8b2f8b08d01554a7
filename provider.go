// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack

import (
	"errors"
	"io"
	"net"

	"code.hybscloud.com/iox"
)

// SourceProvider supplies raw bytes to a Source. Implementations wrap a
// blocking endpoint: a provider that cannot make progress without
// waiting must block, not return zero bytes.
type SourceProvider interface {
	// Read reads at least 1 and at most len(p) bytes into p, returning
	// io.EOF at end of input. minBytes is a hint: the caller needs that
	// many bytes before it can make progress, so the provider may stop
	// reading early once the hint is satisfied.
	Read(p []byte, minBytes int) (int, error)

	// Skip discards exactly n bytes, using scratch when the endpoint
	// cannot seek. It fails with io.ErrUnexpectedEOF when fewer than n
	// bytes remain.
	Skip(n int64, scratch []byte) error

	// TransferTo copies up to n bytes to dst and reports the number
	// actually transferred. A short count without error means the
	// endpoint reached end of input.
	TransferTo(dst io.Writer, n int64, scratch []byte) (int64, error)

	// Close closes the underlying endpoint exactly once.
	Close() error
}

// SinkProvider consumes raw bytes from a Sink.
type SinkProvider interface {
	// Write writes all of p.
	Write(p []byte) (int, error)

	// WriteVector writes the buffers in order. Gathering endpoints use a
	// single system call; others loop.
	WriteVector(bufs net.Buffers) (int64, error)

	// TransferFrom copies up to n bytes from src and reports the number
	// actually transferred. A short count without error means src
	// reached end of input.
	TransferFrom(src io.Reader, n int64, scratch []byte) (int64, error)

	// Flush forces buffered bytes down to the endpoint, when the
	// endpoint itself buffers.
	Flush() error

	// Close closes the underlying endpoint exactly once.
	Close() error
}

type streamSource struct {
	r      io.Reader
	closed bool
}

// NewStreamSource returns a SourceProvider reading from a blocking
// io.Reader. Socket and file readers both qualify; a reader surfacing
// iox.ErrWouldBlock or returning no bytes on a non-empty buffer is
// reported as ErrNonBlockingEndpoint.
func NewStreamSource(r io.Reader) SourceProvider {
	return &streamSource{r: r}
}

func (s *streamSource) Read(p []byte, _ int) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, err := s.r.Read(p)
	if n > 0 {
		if errors.Is(err, iox.ErrWouldBlock) || errors.Is(err, iox.ErrMore) {
			// Partial progress is usable; the signal will surface again
			// on the next call.
			return n, nil
		}
		return n, err
	}
	switch {
	case err == nil:
		if len(p) == 0 {
			return 0, nil
		}
		return 0, ErrNonBlockingEndpoint
	case errors.Is(err, iox.ErrWouldBlock), errors.Is(err, iox.ErrMore):
		return 0, errors.Join(ErrNonBlockingEndpoint, err)
	default:
		return 0, err
	}
}

func (s *streamSource) Skip(n int64, scratch []byte) error {
	if s.closed {
		return ErrClosed
	}
	if sk, ok := s.r.(io.Seeker); ok {
		cur, err := sk.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		end, err := sk.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}
		if end-cur < n {
			return io.ErrUnexpectedEOF
		}
		_, err = sk.Seek(cur+n, io.SeekStart)
		return err
	}
	for n > 0 {
		chunk := scratch
		if int64(len(chunk)) > n {
			chunk = chunk[:n]
		}
		rn, err := s.Read(chunk, len(chunk))
		n -= int64(rn)
		if err != nil {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}

func (s *streamSource) TransferTo(dst io.Writer, n int64, scratch []byte) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if len(scratch) == 0 {
		scratch = nil
	}
	// CopyBuffer engages dst's ReaderFrom fast path (sendfile/splice on
	// socket-file pairs); a clean EOF yields a short count, not an error.
	return io.CopyBuffer(dst, io.LimitReader(s.r, n), scratch)
}

func (s *streamSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type streamSink struct {
	w      io.Writer
	closed bool
}

// NewStreamSink returns a SinkProvider writing to a blocking io.Writer.
func NewStreamSink(w io.Writer) SinkProvider {
	return &streamSink{w: w}
}

func (s *streamSink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	total := 0
	for total < len(p) {
		n, err := s.w.Write(p[total:])
		total += n
		if err != nil {
			if errors.Is(err, iox.ErrWouldBlock) || errors.Is(err, iox.ErrMore) {
				return total, errors.Join(ErrNonBlockingEndpoint, err)
			}
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

func (s *streamSink) WriteVector(bufs net.Buffers) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	// net.Buffers uses writev on gathering connections and loops
	// elsewhere. WriteTo consumes the slice, so hand it a copy.
	v := make(net.Buffers, len(bufs))
	copy(v, bufs)
	return v.WriteTo(s.w)
}

func (s *streamSink) TransferFrom(src io.Reader, n int64, scratch []byte) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if len(scratch) == 0 {
		scratch = nil
	}
	return io.CopyBuffer(s.w, io.LimitReader(src, n), scratch)
}

func (s *streamSink) Flush() error {
	if s.closed {
		return ErrClosed
	}
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (s *streamSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
