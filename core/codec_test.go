package core_test

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sealstream/go-sealstream/core"
)

func TestListCodecs(t *testing.T) {
	names := core.ListCodecs()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		require.Less(t, names[i-1], names[i], "sorted")
	}
}

func TestPickCodecErrors(t *testing.T) {
	_, err := core.PickCodec("rot13", nil, "pw")
	require.ErrorIs(t, err, core.ErrCodecNotSupported)

	_, err = core.PickCodec("aes-256-ctr-hmac", make([]byte, 7), "")
	require.Equal(t, core.KeySizeError(32), err)

	_, err = core.PickCodec("chacha20-ietf-poly1305", make([]byte, 7), "")
	require.Equal(t, core.KeySizeError(32), err)
}

func TestStreamCodecRoundTrip(t *testing.T) {
	// Empty key: derive it from the password.
	codec, err := core.PickCodec("AES-128-CTR-HMAC", nil, "barfoo!")
	require.NoError(t, err)

	payload := make([]byte, 10000)
	_, err = rand.Read(payload)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := codec.NewWriter(&buf, nil)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := codec.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.True(t, bytes.Equal(payload, got))
	require.NoError(t, r.Close())

	// Stream codecs do not seal datagrams.
	_, err = codec.Seal(make([]byte, 64), []byte("x"))
	require.ErrorIs(t, err, core.ErrCodecNotSupported)
}

func TestNonceReuseRefused(t *testing.T) {
	codec, err := core.PickCodec("aes-256-ctr-hmac", nil, "reuse-test")
	require.NoError(t, err)

	nonce := make([]byte, 16)
	_, err = rand.Read(nonce)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := codec.NewWriter(&buf, nonce)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = codec.NewWriter(&buf, nonce)
	require.ErrorIs(t, err, core.ErrNonceReused)
}

func TestPacketCodecRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	for _, name := range []string{"aes-256-gcm", "chacha20-ietf-poly1305"} {
		codec, err := core.PickCodec(name, key, "")
		require.NoError(t, err)

		payload := []byte("small enough to seal in one go")
		dst := make([]byte, 1024)
		pkt, err := codec.Seal(dst, payload)
		require.NoError(t, err)

		opened, err := codec.Open(make([]byte, 1024), pkt)
		require.NoError(t, err)
		require.Equal(t, payload, opened)

		pkt[len(pkt)-1] ^= 0x01
		_, err = codec.Open(make([]byte, 1024), pkt)
		require.Error(t, err, "%s: tampered packet must not open", name)

		// Packet codecs do not produce streams.
		_, err = codec.NewReader(bytes.NewReader(nil))
		require.ErrorIs(t, err, core.ErrCodecNotSupported)
	}
}
