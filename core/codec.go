package core

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/sealstream/go-sealstream/blockmode"
	"github.com/sealstream/go-sealstream/internal"
	"github.com/sealstream/go-sealstream/packet"
	"github.com/sealstream/go-sealstream/sealstream"
)

// Codec seals and opens byte streams and one-shot datagrams. Not every
// named codec supports both shapes; unsupported operations return
// ErrCodecNotSupported.
type Codec interface {
	StreamCodec
	PacketCodec
}

// StreamCodec produces sealed-stream endpoints.
type StreamCodec interface {
	NewReader(r io.Reader) (*sealstream.Reader, error)
	// NewWriter seals to w under the given nonce; nil means generate a
	// fresh random one.
	NewWriter(w io.Writer, nonce []byte) (*sealstream.Writer, error)
}

// PacketCodec seals and opens whole buffers.
type PacketCodec interface {
	Seal(dst, plaintext []byte) ([]byte, error)
	Open(dst, pkt []byte) ([]byte, error)
}

// ErrCodecNotSupported occurs when a codec is not supported or the named
// codec does not support the requested shape.
var ErrCodecNotSupported = errors.New("codec not supported")

// ErrNonceReused means the caller-supplied nonce has already been used in
// this process. Detection is best effort; uniqueness remains the caller's
// obligation.
var ErrNonceReused = errors.New("nonce already used under this key")

// KeySizeError reports the key size a codec requires.
type KeySizeError int

func (e KeySizeError) Error() string {
	return "key size must be " + strconv.Itoa(int(e)) + " bytes"
}

// List of stream codecs: key size in bytes and constructor
var streamList = map[string]struct {
	KeySize int
	New     func(key []byte) (sealstream.Cipher, error)
}{
	"aes-128-ctr-hmac": {16, newCTRHMAC},
	"aes-192-ctr-hmac": {24, newCTRHMAC},
	"aes-256-ctr-hmac": {32, newCTRHMAC},
}

// List of packet codecs: key size in bytes and constructor
var packetList = map[string]struct {
	KeySize int
	New     func(key []byte) (cipher.AEAD, error)
}{
	"aes-128-gcm":            {16, aesGCM},
	"aes-256-gcm":            {32, aesGCM},
	"chacha20-ietf-poly1305": {32, chacha20poly1305.New},
}

func aesGCM(key []byte) (cipher.AEAD, error) {
	blk, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blk)
}

// ListCodecs returns a list of available codec names sorted alphabetically.
func ListCodecs() []string {
	var l []string
	for k := range streamList {
		l = append(l, k)
	}
	for k := range packetList {
		l = append(l, k)
	}
	sort.Strings(l)
	return l
}

// PickCodec returns a Codec of the given name. Derive key from password
// if the given key is empty.
func PickCodec(name string, key []byte, password string) (Codec, error) {
	name = strings.ToLower(name)

	if choice, ok := streamList[name]; ok {
		if len(key) == 0 {
			key = kdf(password, choice.KeySize)
		}
		if len(key) != choice.KeySize {
			return nil, KeySizeError(choice.KeySize)
		}
		ciph, err := choice.New(key)
		if err != nil {
			return nil, err
		}
		return &streamCodec{ciph}, nil
	}

	if choice, ok := packetList[name]; ok {
		if len(key) == 0 {
			key = kdf(password, choice.KeySize)
		}
		if len(key) != choice.KeySize {
			return nil, KeySizeError(choice.KeySize)
		}
		aead, err := choice.New(key)
		if err != nil {
			return nil, err
		}
		return &packetCodec{aead}, nil
	}

	return nil, ErrCodecNotSupported
}

// ctrHMAC binds a key to the AES-CTR + HMAC-SHA256 stream construction.
type ctrHMAC struct {
	key       []byte
	nonceSize int
}

func newCTRHMAC(key []byte) (sealstream.Cipher, error) {
	blk, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &ctrHMAC{key: key, nonceSize: blk.BlockSize()}, nil
}

func (c *ctrHMAC) NonceSize() int { return c.nonceSize }

func (c *ctrHMAC) Encrypter(nonce []byte) (blockmode.Encrypter, error) {
	return blockmode.NewEncrypter(aes.NewCipher, c.key, nonce, blockmode.DefaultTagSize)
}

func (c *ctrHMAC) Decrypter(nonce []byte) (blockmode.Decrypter, error) {
	return blockmode.NewDecrypter(aes.NewCipher, c.key, nonce, blockmode.DefaultTagSize)
}

type streamCodec struct{ ciph sealstream.Cipher }

func (c *streamCodec) NewReader(r io.Reader) (*sealstream.Reader, error) {
	return sealstream.NewReader(r, c.ciph)
}

func (c *streamCodec) NewWriter(w io.Writer, nonce []byte) (*sealstream.Writer, error) {
	if nonce != nil && internal.TestNonce(nonce) {
		return nil, ErrNonceReused
	}
	sw, err := sealstream.NewWriter(w, c.ciph, nonce)
	if err != nil {
		return nil, err
	}
	internal.AddNonce(sw.Nonce())
	return sw, nil
}

func (c *streamCodec) Seal(dst, plaintext []byte) ([]byte, error) {
	return nil, ErrCodecNotSupported
}

func (c *streamCodec) Open(dst, pkt []byte) ([]byte, error) {
	return nil, ErrCodecNotSupported
}

type packetCodec struct{ aead cipher.AEAD }

func (c *packetCodec) NewReader(r io.Reader) (*sealstream.Reader, error) {
	return nil, ErrCodecNotSupported
}

func (c *packetCodec) NewWriter(w io.Writer, nonce []byte) (*sealstream.Writer, error) {
	return nil, ErrCodecNotSupported
}

func (c *packetCodec) Seal(dst, plaintext []byte) ([]byte, error) {
	return packet.Seal(dst, plaintext, c.aead)
}

func (c *packetCodec) Open(dst, pkt []byte) ([]byte, error) {
	return packet.Open(dst, pkt, c.aead)
}

// OpenSSL EVP_BytesToKey-style key derivation from a password
func kdf(password string, keyLen int) []byte {
	var b, prev []byte
	h := md5.New()
	for len(b) < keyLen {
		h.Write(prev)
		h.Write([]byte(password))
		b = h.Sum(b)
		prev = b[len(b)-h.Size():]
		h.Reset()
	}
	return b[:keyLen]
}
