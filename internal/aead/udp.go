package aead

import (
	"crypto/rand"
	"fmt"
)

// EncryptAll seals an entire UDP datagram in one call: a fresh random salt
// followed by a single AEAD-sealed ciphertext, per spec 4.5. Unlike the TCP
// codec there is no SessionCipherContext to keep between packets, and no
// nonce counter: the nonce is always the all-zero value.
//
// Unlike the TCP codec, the salt is carried on the wire purely for
// per-datagram freshness and replay-guard bookkeeping: it is never used
// to derive a subkey. The AEAD is keyed directly off the master key, per
// aead.c's aead_ctx_init (aead.c:421-431), which only calls
// aead_cipher_ctx_set_subkey on the TCP init path — the UDP path installs
// cipher_ctx->cipher->key (the master key) via
// aead_cipher_ctx_udp_set_key and passes it straight to
// aead_cipher_encrypt/decrypt (aead.c:344-357, 471-479). This also means
// every datagram under one master key shares its AEAD key, relying on
// the always-random salt plus the single-shot zero nonce for freshness
// rather than on per-datagram key separation.
//
// In aead.c the AES-GCM methods install the master key into a stateful
// block-cipher context while the ChaCha family passes it directly to a
// one-shot call. That split comes from the C library bindings and is not
// reproduced here: every method builds its cipher.AEAD from the master
// key through newPrimitive on each call.
func EncryptAll(master *MasterCipher, plaintext []byte) ([]byte, error) {
	salt := make([]byte, master.Spec.KeyLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("aead: generate salt: %w", err)
	}
	prim, err := newPrimitive(master.Method, master.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, master.Spec.NonceLen)
	ct := seal(prim, nonce, plaintext)

	out := make([]byte, 0, len(salt)+len(ct))
	out = append(out, salt...)
	out = append(out, ct...)
	return out, nil
}

// DecryptAll opens a UDP datagram produced by EncryptAll. guard may be nil
// (client role never replay-checks incoming datagrams per spec 4.7); a
// non-nil guard rejects any salt already seen and records new ones only
// after successful authentication, so a forged datagram can never poison
// the guard against a legitimate later one reusing the same salt by
// coincidence.
func DecryptAll(master *MasterCipher, guard SaltGuard, packet []byte) ([]byte, error) {
	minLen := master.Spec.KeyLen + master.Spec.TagLen
	if len(packet) < minLen {
		return nil, ErrMalformedFrame
	}
	salt := packet[:master.Spec.KeyLen]
	if guard != nil && guard.Check(salt) {
		return nil, ErrReplay
	}

	prim, err := newPrimitive(master.Method, master.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, master.Spec.NonceLen)
	pt, err := open(prim, nonce, packet[master.Spec.KeyLen:])
	if err != nil {
		return nil, err
	}
	if guard != nil {
		guard.Add(salt)
	}
	return pt, nil
}
