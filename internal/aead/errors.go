package aead

import "errors"

// ErrNeedMore signals that a TCP decrypt call consumed its input but does
// not yet hold a complete chunk. The caller should retain the
// SessionCipherContext and feed more ciphertext on the next read; this is
// not a failure.
var ErrNeedMore = errors.New("aead: need more data")

// Errors below are all fatal for the connection or datagram they occur on.
// None of them carry information that would let a caller distinguish "bad
// key" from "bad ciphertext" — per spec, authentication failures are
// opaque.
var (
	// ErrAuthFailed means an AEAD tag did not verify. The ciphertext (or
	// the key used to open it) was tampered with or wrong.
	ErrAuthFailed = errors.New("aead: authentication failed")

	// ErrMalformedFrame means a length field was zero, exceeded the
	// 0x3FFF chunk mask, or a buffer was shorter than the minimum frame
	// size for its role (e.g. UDP shorter than salt+tag).
	ErrMalformedFrame = errors.New("aead: malformed frame")

	// ErrReplay means the salt on an incoming frame has already been
	// seen by this process. Server role only.
	ErrReplay = errors.New("aead: replayed salt")

	// ErrChunkTooLarge means a payload's single-chunk form would exceed
	// the 0x3FFF mask. Encrypt does not return it: it splits oversized
	// plaintext across several chunks instead.
	ErrChunkTooLarge = errors.New("aead: chunk exceeds maximum size")

	// ErrUnsupportedMethod means a MasterCipher was asked to act on a
	// Method value outside the catalog.
	ErrUnsupportedMethod = errors.New("aead: unsupported cipher method")
)
