package aead

import (
	"fmt"
	"log/slog"
)

// MasterCipher is the per-tunnel, long-lived key material: the resolved
// method and the master key derived once from the shared password. It
// never changes for the lifetime of a listener or dialer and is safe to
// share across every connection's SessionCipherContext (spec section 3,
// "MasterCipher").
type MasterCipher struct {
	Method Method
	Spec   CipherSpec
	key    []byte
}

// NewMasterCipher resolves methodName against the catalog and derives the
// master key from password. This is the Go equivalent of aead.c's
// aead_init(), split here into Resolve (catalog lookup) + deriveMasterKey
// (BLAKE2b) so each step stays independently testable.
func NewMasterCipher(password, methodName string, logger *slog.Logger) (*MasterCipher, error) {
	method := Resolve(methodName, logger)
	spec := Spec(method)
	key, err := deriveMasterKey(password, spec.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("aead: derive master key: %w", err)
	}
	return &MasterCipher{Method: method, Spec: spec, key: key}, nil
}

// Zero wipes the master key in place. Callers that tear down a tunnel
// permanently (as opposed to merely closing one connection) should call
// this once every SessionCipherContext derived from it has been released.
func (c *MasterCipher) Zero() {
	for i := range c.key {
		c.key[i] = 0
	}
}
