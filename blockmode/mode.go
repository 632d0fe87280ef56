package blockmode

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DefaultTagSize is the authentication tag size in bytes.
const DefaultTagSize = 16

var (
	// ErrAuthentication means the computed tag does not match the one
	// taken from the stream.
	ErrAuthentication = errors.New("blockmode: message authentication failed")

	// ErrNonceSize means the nonce length does not equal the block size
	// of the underlying cipher.
	ErrNonceSize = errors.New("blockmode: nonce size must equal the cipher block size")

	// ErrTagSize means the requested tag size is out of range.
	ErrTagSize = errors.New("blockmode: invalid tag size")

	// ErrShortTag means Verify was called before a full tag was supplied.
	ErrShortTag = errors.New("blockmode: short tag")
)

// Factory constructs the underlying block cipher primitive from a key,
// e.g. aes.NewCipher.
type Factory func(key []byte) (cipher.Block, error)

// Encrypter is the sealing direction of the transform.
type Encrypter interface {
	BlockSize() int
	TagSize() int

	// Nonce returns the nonce the transform was initialized with.
	Nonce() []byte

	// UpdateOutputSize reports how many bytes ProcessBytes will emit for
	// n more bytes of input.
	UpdateOutputSize(n int) int

	// ProcessBytes consumes src and writes any completed ciphertext
	// blocks to dst, returning the number of bytes written. dst must
	// hold UpdateOutputSize(len(src)) bytes.
	ProcessBytes(dst, src []byte) int

	// FinalSize reports how many bytes Final will emit.
	FinalSize() int

	// Final encrypts the buffered remainder and appends the tag.
	Final(dst []byte) int

	// Reset zeroes buffered plaintext. The transform is single use and
	// must not be touched afterwards.
	Reset()
}

// Decrypter is the opening direction of the transform.
type Decrypter interface {
	BlockSize() int
	TagSize() int
	UpdateOutputSize(n int) int
	ProcessBytes(dst, src []byte) int

	// DrainSize reports how much plaintext Drain would release beyond
	// the retained tag candidate.
	DrainSize() int

	// Drain decrypts and emits the residual input held back for block
	// alignment, keeping only the trailing tag candidate. Call it once
	// the input stream is exhausted.
	Drain(dst []byte) int

	// TagDeficit reports how many bytes of the trailing tag have not
	// been seen yet.
	TagDeficit() int

	// Verify completes the tag with tail (exactly TagDeficit bytes) and
	// checks it against the MAC of all ciphertext fed so far. It
	// returns ErrAuthentication on mismatch.
	Verify(tail []byte) error

	Reset()
}

// mode implements both directions; the constructors pin one.
type mode struct {
	ctr        cipher.Stream
	mac        hash.Hash
	nonce      []byte
	blockSize  int
	tagSize    int
	forSealing bool

	// held is input not yet pushed through the cipher: a partial block
	// when sealing, a partial block plus the trailing tag candidate
	// when opening.
	held []byte
}

// NewEncrypter initializes a sealing transform. The nonce length must
// equal the block size of the cipher produced by f, and the same
// (key, nonce) pair must never be reused.
func NewEncrypter(f Factory, key, nonce []byte, tagSize int) (Encrypter, error) {
	m, err := newMode(f, key, nonce, tagSize)
	if err != nil {
		return nil, err
	}
	m.forSealing = true
	return m, nil
}

// NewDecrypter initializes an opening transform for a stream sealed under
// the same key, nonce and tag size.
func NewDecrypter(f Factory, key, nonce []byte, tagSize int) (Decrypter, error) {
	return newMode(f, key, nonce, tagSize)
}

func newMode(f Factory, key, nonce []byte, tagSize int) (*mode, error) {
	probe, err := f(key)
	if err != nil {
		return nil, err
	}
	bs := probe.BlockSize()
	if len(nonce) != bs {
		return nil, ErrNonceSize
	}
	if tagSize <= 0 || tagSize > sha256.Size {
		return nil, ErrTagSize
	}

	encKey, macKey, err := subkeys(key, nonce)
	if err != nil {
		return nil, err
	}
	blk, err := f(encKey)
	if err != nil {
		return nil, err
	}

	return &mode{
		ctr:       cipher.NewCTR(blk, nonce),
		mac:       hmac.New(sha256.New, macKey),
		nonce:     nonce,
		blockSize: bs,
		tagSize:   tagSize,
		held:      make([]byte, 0, bs+tagSize),
	}, nil
}

// subkeys stretches (key, nonce) into independent encryption and MAC keys.
func subkeys(key, nonce []byte) (encKey, macKey []byte, err error) {
	r := hkdf.New(sha256.New, key, nonce, []byte("sealstream subkeys"))
	encKey = make([]byte, len(key))
	macKey = make([]byte, sha256.Size)
	if _, err = io.ReadFull(r, encKey); err != nil {
		return nil, nil, err
	}
	if _, err = io.ReadFull(r, macKey); err != nil {
		return nil, nil, err
	}
	return encKey, macKey, nil
}

func (m *mode) BlockSize() int { return m.blockSize }
func (m *mode) TagSize() int   { return m.tagSize }
func (m *mode) Nonce() []byte  { return m.nonce }

func (m *mode) UpdateOutputSize(n int) int {
	if m.forSealing {
		return m.wholeBlocks(len(m.held) + n)
	}
	return m.wholeBlocks(len(m.held) + n - m.tagSize)
}

func (m *mode) ProcessBytes(dst, src []byte) int {
	out := m.UpdateOutputSize(len(src))
	if out == 0 {
		m.held = append(m.held, src...)
		return 0
	}

	n := 0
	if k := len(m.held); k > 0 {
		if k > out {
			k = out
		}
		m.emit(dst[:k], m.held[:k])
		rest := copy(m.held, m.held[k:])
		m.held = m.held[:rest]
		n = k
	}
	k := out - n
	m.emit(dst[n:out], src[:k])
	m.held = append(m.held, src[k:]...)
	return out
}

func (m *mode) FinalSize() int { return len(m.held) + m.tagSize }

func (m *mode) Final(dst []byte) int {
	if !m.forSealing {
		panic("blockmode: Final called on a decrypter")
	}
	n := len(m.held)
	m.emit(dst[:n], m.held)
	m.held = m.held[:0]
	sum := m.mac.Sum(nil)
	copy(dst[n:], sum[:m.tagSize])
	return n + m.tagSize
}

func (m *mode) DrainSize() int {
	if n := len(m.held) - m.tagSize; n > 0 {
		return n
	}
	return 0
}

func (m *mode) Drain(dst []byte) int {
	if m.forSealing {
		panic("blockmode: Drain called on an encrypter")
	}
	n := m.DrainSize()
	if n == 0 {
		return 0
	}
	m.emit(dst[:n], m.held[:n])
	rest := copy(m.held, m.held[n:])
	m.held = m.held[:rest]
	return n
}

func (m *mode) TagDeficit() int {
	if n := m.tagSize - len(m.held); n > 0 {
		return n
	}
	return 0
}

func (m *mode) Verify(tail []byte) error {
	if m.forSealing {
		panic("blockmode: Verify called on an encrypter")
	}
	m.held = append(m.held, tail...)
	if len(m.held) < m.tagSize {
		return ErrShortTag
	}
	// Ciphertext the caller never read out still counts toward the tag.
	if r := len(m.held) - m.tagSize; r > 0 {
		m.mac.Write(m.held[:r])
		rest := copy(m.held, m.held[r:])
		m.held = m.held[:rest]
	}
	sum := m.mac.Sum(nil)
	if !hmac.Equal(sum[:m.tagSize], m.held) {
		return ErrAuthentication
	}
	return nil
}

func (m *mode) Reset() {
	b := m.held[:cap(m.held)]
	for i := range b {
		b[i] = 0
	}
	m.held = m.held[:0]
}

// emit pushes one contiguous run through the cipher, keeping the MAC over
// the ciphertext side in both directions.
func (m *mode) emit(dst, src []byte) {
	if m.forSealing {
		m.ctr.XORKeyStream(dst, src)
		m.mac.Write(dst)
	} else {
		m.mac.Write(src)
		m.ctr.XORKeyStream(dst, src)
	}
}

func (m *mode) wholeBlocks(n int) int {
	if n < 0 {
		return 0
	}
	return n - n%m.blockSize
}
