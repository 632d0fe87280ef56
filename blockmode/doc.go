/*
Package blockmode turns a keyed block cipher primitive into an incremental
authenticated encryption transform.

The transform processes input in block-sized steps: ProcessBytes may emit
fewer, as many, or more bytes than it was fed, depending on how much input
is buffered internally. Callers must size output buffers with
UpdateOutputSize and never assume output length equals input length.

An Encrypter emits ciphertext as whole blocks become available; Final
flushes the buffered remainder and appends the authentication tag. A
Decrypter additionally retains the trailing TagSize bytes of everything it
has been fed, since without out-of-band framing those bytes are the only
candidate for the tag; Drain releases the residual plaintext once the
input is known to be complete, and Verify checks the tag.

The construction is encrypt-then-MAC: CTR over the supplied block cipher
keyed and IV'd from (key, nonce), with an HMAC-SHA256 tag over the
ciphertext. Subkeys are derived with HKDF-SHA256 so that a flipped nonce
bit yields an unrelated keystream and tag.
*/
package blockmode
