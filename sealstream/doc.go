/*
Package sealstream implements a sealed byte stream: an arbitrary-length
payload encrypted and authenticated under a single nonce.

A sealed stream has the following structure:

	[nonce: one cipher block]
	[ciphertext: same length as the payload, no padding]
	[tag: TagSize bytes]

The nonce is written in the clear as the stream header. It is not
authenticated data; it is framing, and flipping a bit in it changes the
derived keys so that verification fails. Nonce uniqueness per key is the
caller's obligation — reuse forfeits both confidentiality and
authenticity.

IMPORTANT: authenticity is checked only when the stream is closed, not
per read. Read hands out plaintext as soon as it is decrypted, which is
what permits streaming payloads larger than memory, but it means every
byte delivered before a successful Close is provisional. Callers must
call Close, must not swallow its error, and must not act irrevocably on
the plaintext until Close has returned nil. A Close that returns
ErrAuthFailed retroactively invalidates everything Read produced.
*/
package sealstream
