// Package packet implements one-shot sealed datagrams: a random nonce
// followed by an AEAD-sealed payload. Each datagram is sealed and opened
// independently; use sealstream for payloads that do not fit in memory.
package packet

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// ErrShortPacket means that the packet is too short for a valid sealed datagram.
var ErrShortPacket = errors.New("packet: short packet")

// Seal encrypts plaintext using aead with a randomly generated nonce and
// returns a slice of dst containing nonce||ciphertext||tag.
// Ensure len(dst) >= aead.NonceSize() + len(plaintext) + aead.Overhead().
func Seal(dst, plaintext []byte, aead cipher.AEAD) ([]byte, error) {
	nsiz := aead.NonceSize()
	if len(dst) < nsiz+len(plaintext)+aead.Overhead() {
		return nil, io.ErrShortBuffer
	}

	nonce := dst[:nsiz]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	b := aead.Seal(dst[nsiz:nsiz], nonce, plaintext, nil)
	return dst[:nsiz+len(b)], nil
}

// Open decrypts pkt using aead and returns a slice of dst containing the payload.
// Ensure len(dst) >= len(pkt) - aead.NonceSize() - aead.Overhead().
func Open(dst, pkt []byte, aead cipher.AEAD) ([]byte, error) {
	nsiz := aead.NonceSize()

	if len(pkt) < nsiz+aead.Overhead() {
		return nil, ErrShortPacket
	}

	if len(dst) < len(pkt)-nsiz-aead.Overhead() {
		return nil, io.ErrShortBuffer
	}

	return aead.Open(dst[:0], pkt[:nsiz], pkt[nsiz:], nil)
}
