package packet_test

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/sealstream/go-sealstream/packet"
)

func testAEADs(t *testing.T) map[string]cipher.AEAD {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	blk, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(blk)
	require.NoError(t, err)
	chacha, err := chacha20poly1305.New(key)
	require.NoError(t, err)

	return map[string]cipher.AEAD{"aes-256-gcm": gcm, "chacha20-poly1305": chacha}
}

func TestSealOpen(t *testing.T) {
	for name, aead := range testAEADs(t) {
		t.Run(name, func(t *testing.T) {
			payload := make([]byte, 512)
			_, err := rand.Read(payload)
			require.NoError(t, err)

			dst := make([]byte, aead.NonceSize()+len(payload)+aead.Overhead())
			pkt, err := packet.Seal(dst, payload, aead)
			require.NoError(t, err)
			require.Len(t, pkt, aead.NonceSize()+len(payload)+aead.Overhead())

			opened, err := packet.Open(make([]byte, len(payload)), pkt, aead)
			require.NoError(t, err)
			require.Equal(t, payload, opened)

			// Every sealed packet carries a fresh nonce, so sealing the
			// same payload twice never repeats.
			pkt2, err := packet.Seal(make([]byte, len(dst)), payload, aead)
			require.NoError(t, err)
			require.NotEqual(t, pkt, pkt2)
		})
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	for name, aead := range testAEADs(t) {
		t.Run(name, func(t *testing.T) {
			payload := []byte("sealed payload")
			dst := make([]byte, aead.NonceSize()+len(payload)+aead.Overhead())
			pkt, err := packet.Seal(dst, payload, aead)
			require.NoError(t, err)

			for _, pos := range []int{0, aead.NonceSize(), len(pkt) - 1} {
				bad := append([]byte{}, pkt...)
				bad[pos] ^= 0x01
				_, err := packet.Open(make([]byte, len(payload)), bad, aead)
				require.Error(t, err, "pos=%d", pos)
			}
		})
	}
}

func TestShortInputs(t *testing.T) {
	for _, aead := range testAEADs(t) {
		_, err := packet.Open(make([]byte, 64), make([]byte, aead.NonceSize()+aead.Overhead()-1), aead)
		require.ErrorIs(t, err, packet.ErrShortPacket)

		_, err = packet.Seal(make([]byte, 4), []byte("does not fit"), aead)
		require.ErrorIs(t, err, io.ErrShortBuffer)
	}
}
