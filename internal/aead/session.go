package aead

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// SaltGuard is the salt replay guard contract from spec section 4.7.
// Implementations must be safe for concurrent use: one guard is typically
// shared across every decrypt context a server process holds. internal/aead
// depends only on this interface, not on any concrete guard, so the replay
// package can evolve (or be swapped) without touching the codec.
type SaltGuard interface {
	// Check reports whether salt has already been seen.
	Check(salt []byte) bool
	// Add records salt as seen.
	Add(salt []byte)
}

// SessionCipherContext is the per-connection, per-direction state machine
// that turns a MasterCipher into a keyed cipher.AEAD bound to one random
// salt. It mirrors aead.c's cipher_ctx_t: salt, derived subkey, nonce
// counter, and an init flag guarding first-use subkey derivation.
//
// Not safe for concurrent use. One context belongs to exactly one TCP
// connection direction (spec section 5). The UDP codec (EncryptAll and
// DecryptAll) does not use a SessionCipherContext at all.
type SessionCipherContext struct {
	master *MasterCipher
	salt   []byte
	subkey []byte
	nonce  []byte
	prim   cipher.AEAD
	init   bool

	chunk ReassemblyBuffer // decrypt side only
	guard SaltGuard        // decrypt side, server role only; nil otherwise

	saltEmitted bool // encrypt side: has the leading salt been written yet

	// pendingLenKnown/pendingPayloadLen track the two-phase chunk decode
	// across Decrypt calls: once a length chunk has been authenticated,
	// its payload size is held here until enough ciphertext has arrived
	// to authenticate the matching payload chunk (spec 4.6's NEED_MORE).
	pendingLenKnown   bool
	pendingPayloadLen int
}

// NewEncryptContext allocates a fresh random salt and prepares a context
// ready to seal chunks. The subkey is derived immediately since an
// encrypting peer always knows its salt up front (it generated it).
func NewEncryptContext(master *MasterCipher) (*SessionCipherContext, error) {
	salt := make([]byte, master.Spec.KeyLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("aead: generate salt: %w", err)
	}
	c := &SessionCipherContext{
		master: master,
		salt:   salt,
		nonce:  make([]byte, master.Spec.NonceLen),
	}
	if err := c.deriveAndInstallSubkey(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewDecryptContext prepares a context for the receiving side. The subkey
// cannot be derived yet: the salt only becomes known once it arrives on
// the wire as the first KeyLen bytes of the stream, so init stays false
// until installSalt is called by the TCP stream codec.
//
// guard may be nil, meaning this context performs no replay checking
// (the client role never checks incoming salts against a guard per spec
// 4.7 — only servers do).
func NewDecryptContext(master *MasterCipher, guard SaltGuard) *SessionCipherContext {
	return &SessionCipherContext{
		master: master,
		nonce:  make([]byte, master.Spec.NonceLen),
		guard:  guard,
	}
}

// Salt returns the context's salt. For an encrypt context this is valid
// immediately; for a decrypt context it is only valid after installSalt.
func (c *SessionCipherContext) Salt() []byte {
	return c.salt
}

// installSalt binds an incoming salt to a decrypt context, checking it
// against the replay guard (if any) before deriving the subkey, and
// recording it in the guard as soon as the subkey is derived, before any
// chunk has been authenticated. Called exactly once per context, by the
// TCP stream codec after it has buffered KeyLen bytes.
func (c *SessionCipherContext) installSalt(salt []byte) error {
	if c.guard != nil && c.guard.Check(salt) {
		return ErrReplay
	}
	c.salt = make([]byte, len(salt))
	copy(c.salt, salt)
	if err := c.deriveAndInstallSubkey(); err != nil {
		return err
	}
	if c.guard != nil {
		c.guard.Add(c.salt)
	}
	return nil
}

func (c *SessionCipherContext) deriveAndInstallSubkey() error {
	subkey, err := deriveSubkey(c.master.key, c.salt, c.master.Spec.KeyLen)
	if err != nil {
		return fmt.Errorf("aead: derive subkey: %w", err)
	}
	prim, err := newPrimitive(c.master.Method, subkey)
	if err != nil {
		return err
	}
	c.subkey = subkey
	c.prim = prim
	c.init = true
	return nil
}

// sealNext seals plaintext under the context's current nonce, then
// advances the nonce. Every AEAD call — length chunk or payload chunk —
// goes through this one path, so the nonce counter advances exactly once
// per call regardless of which codec is driving it.
func (c *SessionCipherContext) sealNext(plaintext []byte) []byte {
	ct := seal(c.prim, c.nonce, plaintext)
	incrementNonce(c.nonce)
	return ct
}

// openNext opens ciphertext under the context's current nonce, then
// advances the nonce — even on failure, matching aead.c's behavior of
// advancing the nonce immediately after a length chunk is authenticated,
// before the payload chunk is even available (spec 4.6's NEED_MORE case).
func (c *SessionCipherContext) openNext(ciphertext []byte) ([]byte, error) {
	pt, err := open(c.prim, c.nonce, ciphertext)
	incrementNonce(c.nonce)
	return pt, err
}

// incrementNonce adds 1 to n treated as a little-endian counter, matching
// libsodium's sodium_increment (and so aead.c's nonce handling).
func incrementNonce(n []byte) {
	for i := range n {
		n[i]++
		if n[i] != 0 {
			return
		}
	}
}

// Release zeroes the context's key material. Safe to call more than once.
func (c *SessionCipherContext) Release() {
	for i := range c.subkey {
		c.subkey[i] = 0
	}
	for i := range c.salt {
		c.salt[i] = 0
	}
	c.chunk.Reset()
	c.prim = nil
	c.init = false
}
