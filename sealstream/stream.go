package sealstream

import (
	"crypto/rand"
	"errors"
	"io"

	"github.com/sealstream/go-sealstream/blockmode"
)

var (
	// ErrAuthFailed means tag verification failed at close. All
	// plaintext delivered by prior reads is suspect.
	ErrAuthFailed = errors.New("sealstream: message authentication failed")

	// ErrTruncated means the stream ended before the header or the
	// trailing tag could be fully read. Distinct from ErrAuthFailed:
	// the stream did not even have the right shape.
	ErrTruncated = errors.New("sealstream: stream truncated")

	// ErrClosed is returned by operations on a closed stream.
	ErrClosed = errors.New("sealstream: stream is closed")
)

// Cipher provides keyed transforms bound to a per-stream nonce.
type Cipher interface {
	NonceSize() int
	Encrypter(nonce []byte) (blockmode.Encrypter, error)
	Decrypter(nonce []byte) (blockmode.Decrypter, error)
}

// Reader opens a sealed stream. Plaintext it returns is unauthenticated
// until Close succeeds; see the package documentation.
type Reader struct {
	src io.Reader
	t   blockmode.Decrypter

	raw     []byte // staging for raw stream bytes, sized to the caller's reads
	scratch []byte // update output that did not fit the caller's buffer
	excess  []byte // decrypted but undelivered bytes, served FIFO
	exbuf   []byte // backing array for excess

	eof    bool
	closed bool
}

// NewReader consumes the nonce header from r and prepares to decrypt the
// rest. It fails with ErrTruncated if the header cannot be fully read.
func NewReader(r io.Reader, ciph Cipher) (*Reader, error) {
	nonce := make([]byte, ciph.NonceSize())
	if _, err := io.ReadFull(r, nonce); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrTruncated
		}
		return nil, err
	}
	t, err := ciph.Decrypter(nonce)
	if err != nil {
		return nil, err
	}
	return &Reader{
		src:   r,
		t:     t,
		exbuf: make([]byte, 0, t.BlockSize()),
	}, nil
}

// NonceSize returns the size of the nonce header in bytes.
func (r *Reader) NonceSize() int { return r.t.BlockSize() }

// Read decrypts into p. Short reads from the source surface as short
// reads here; end of source surfaces as io.EOF once all plaintext has
// been handed out. Close must still be called to verify authenticity.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}

	// Leftovers from a previous oversized update go out first, before
	// any new ciphertext is pulled, to keep delivery in order.
	if len(r.excess) > 0 {
		n := copy(p, r.excess)
		r.excess = r.excess[n:]
		return n, nil
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.eof {
		return 0, io.EOF
	}

	if cap(r.raw) < len(p) {
		r.raw = make([]byte, len(p))
	}
	for {
		nr, er := r.src.Read(r.raw[:len(p)])
		if nr > 0 {
			if out := r.t.UpdateOutputSize(nr); out > len(p) {
				// More plaintext than the caller asked for: decrypt to
				// scratch, deliver what fits, keep the rest.
				r.grow(out)
				n := r.t.ProcessBytes(r.scratch, r.raw[:nr])
				return r.stash(p, n), nil
			}
			if n := r.t.ProcessBytes(p, r.raw[:nr]); n > 0 {
				return n, nil
			}
			// The transform is still buffering; pull more input rather
			// than hand the caller a spurious empty read.
			continue
		}
		if er == io.EOF {
			r.eof = true
			return r.flushTail(p)
		}
		if er != nil {
			return 0, er
		}
	}
}

// flushTail releases the plaintext the transform held back for block
// alignment once the source is exhausted.
func (r *Reader) flushTail(p []byte) (int, error) {
	out := r.t.DrainSize()
	if out == 0 {
		return 0, io.EOF
	}
	if out > len(p) {
		r.grow(out)
		n := r.t.Drain(r.scratch)
		return r.stash(p, n), nil
	}
	return r.t.Drain(p), nil
}

// stash delivers what fits of scratch[:n] and retains the remainder as
// the excess run for subsequent reads.
func (r *Reader) stash(p []byte, n int) int {
	m := copy(p, r.scratch[:n])
	r.excess = append(r.exbuf[:0], r.scratch[m:n]...)
	return m
}

func (r *Reader) grow(n int) {
	if cap(r.scratch) < n {
		r.scratch = make([]byte, n)
	}
	r.scratch = r.scratch[:n]
}

// Close reads the trailing tag and verifies the whole stream. It returns
// ErrTruncated if the tag is not fully present, ErrAuthFailed if
// verification fails, and closes the underlying source in every case.
// A nil return is the only statement that the delivered plaintext is
// authentic.
func (r *Reader) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	err := r.verify()
	if c, ok := r.src.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	r.t.Reset()
	r.zero()
	return err
}

func (r *Reader) verify() error {
	tail := make([]byte, r.t.TagDeficit())
	if _, err := io.ReadFull(r.src, tail); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrTruncated
		}
		return err
	}
	if err := r.t.Verify(tail); err != nil {
		return ErrAuthFailed
	}
	return nil
}

// zero wipes buffers that may hold plaintext.
func (r *Reader) zero() {
	b := r.scratch[:cap(r.scratch)]
	for i := range b {
		b[i] = 0
	}
	b = r.exbuf[:cap(r.exbuf)]
	for i := range b {
		b[i] = 0
	}
	r.scratch = nil
	r.excess = nil
	r.exbuf = nil
}

// Writer seals a byte stream. All output produced by Write goes to the
// sink immediately; Close flushes the remainder and appends the tag.
type Writer struct {
	dst    io.Writer
	t      blockmode.Encrypter
	buf    []byte
	closed bool
}

// NewWriter writes the nonce header to w and prepares to encrypt. A nil
// nonce means generate a fresh random one; a caller-supplied nonce MUST
// be unique for the key.
func NewWriter(w io.Writer, ciph Cipher, nonce []byte) (*Writer, error) {
	if nonce == nil {
		nonce = make([]byte, ciph.NonceSize())
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, err
		}
	}
	t, err := ciph.Encrypter(nonce)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(nonce); err != nil {
		return nil, err
	}
	return &Writer{dst: w, t: t}, nil
}

// Nonce returns the nonce written as the stream header.
func (w *Writer) Nonce() []byte { return w.t.Nonce() }

// NonceSize returns the size of the nonce header in bytes.
func (w *Writer) NonceSize() int { return w.t.BlockSize() }

// Write encrypts p and forwards whatever ciphertext the transform
// produces to the sink.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	out := w.t.UpdateOutputSize(len(p))
	if out == 0 {
		w.t.ProcessBytes(nil, p)
		return len(p), nil
	}
	if cap(w.buf) < out {
		w.buf = make([]byte, out)
	}
	n := w.t.ProcessBytes(w.buf[:out], p)
	if _, err := w.dst.Write(w.buf[:n]); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close encrypts the buffered remainder, appends the tag and closes the
// sink. There is no verification step on this side.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	fin := make([]byte, w.t.FinalSize())
	n := w.t.Final(fin)
	_, err := w.dst.Write(fin[:n])
	if c, ok := w.dst.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	w.t.Reset()
	for i := range w.buf {
		w.buf[i] = 0
	}
	w.buf = nil
	return err
}
