package aead

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptAll_RoundTrip(t *testing.T) {
	master, err := NewMasterCipher("udp-password", "chacha20-ietf-poly1305", nil)
	if err != nil {
		t.Fatalf("NewMasterCipher() error = %v", err)
	}
	guard := newFakeGuard()
	plaintext := []byte("a udp datagram payload")

	packet, err := EncryptAll(master, plaintext)
	if err != nil {
		t.Fatalf("EncryptAll() error = %v", err)
	}
	if len(packet) != master.Spec.KeyLen+len(plaintext)+master.Spec.TagLen {
		t.Fatalf("len(packet) = %d, want %d", len(packet), master.Spec.KeyLen+len(plaintext)+master.Spec.TagLen)
	}

	got, err := DecryptAll(master, guard, packet)
	if err != nil {
		t.Fatalf("DecryptAll() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("DecryptAll() = %q, want %q", got, plaintext)
	}
}

func TestDecryptAll_RejectsReplay(t *testing.T) {
	master, _ := NewMasterCipher("udp-password", "aes-256-gcm", nil)
	guard := newFakeGuard()
	packet, _ := EncryptAll(master, []byte("hello"))

	if _, err := DecryptAll(master, guard, packet); err != nil {
		t.Fatalf("first DecryptAll() error = %v", err)
	}
	if _, err := DecryptAll(master, guard, packet); err != ErrReplay {
		t.Fatalf("replayed DecryptAll() error = %v, want %v", err, ErrReplay)
	}
}

func TestDecryptAll_NilGuardAllowsReplay(t *testing.T) {
	master, _ := NewMasterCipher("udp-password", "aes-256-gcm", nil)
	packet, _ := EncryptAll(master, []byte("hello"))

	if _, err := DecryptAll(master, nil, packet); err != nil {
		t.Fatalf("first DecryptAll() error = %v", err)
	}
	if _, err := DecryptAll(master, nil, packet); err != nil {
		t.Fatalf("second DecryptAll() with nil guard error = %v, want nil", err)
	}
}

func TestDecryptAll_TooShortIsMalformed(t *testing.T) {
	master, _ := NewMasterCipher("udp-password", "aes-128-gcm", nil)
	_, err := DecryptAll(master, nil, []byte{0x01, 0x02})
	if err != ErrMalformedFrame {
		t.Fatalf("DecryptAll(short) error = %v, want %v", err, ErrMalformedFrame)
	}
}

func TestDecryptAll_WrongKeyFailsAuth(t *testing.T) {
	master1, _ := NewMasterCipher("password-a", "aes-256-gcm", nil)
	master2, _ := NewMasterCipher("password-b", "aes-256-gcm", nil)
	packet, _ := EncryptAll(master1, []byte("hello"))

	if _, err := DecryptAll(master2, nil, packet); err != ErrAuthFailed {
		t.Fatalf("DecryptAll(wrong key) error = %v, want %v", err, ErrAuthFailed)
	}
}

// fakeGuard is a minimal in-process SaltGuard for tests that don't want a
// dependency on internal/replay's bloom filter.
type fakeGuard struct {
	seen map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{seen: make(map[string]bool)}
}

func (g *fakeGuard) Check(salt []byte) bool { return g.seen[string(salt)] }
func (g *fakeGuard) Add(salt []byte)        { g.seen[string(salt)] = true }
