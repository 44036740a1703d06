package aead

// ReassemblyBuffer is the growable byte region backing a decrypt
// context's receive-side accumulator (spec section 3). It only grows,
// never shrinks eagerly, and consumed bytes are removed by shifting the
// remainder to the front — the Go equivalent of aead.c's
// `memmove(c, c + chunk_len, *clen - chunk_len)`.
//
// It is not safe for concurrent use; a SessionCipherContext owns exactly
// one and only its owning connection's goroutine touches it, per spec
// section 5.
type ReassemblyBuffer struct {
	data []byte
}

// Append grows the buffer and copies p onto the end.
func (b *ReassemblyBuffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// Len reports how many unconsumed bytes remain.
func (b *ReassemblyBuffer) Len() int {
	return len(b.data)
}

// Bytes returns the unconsumed contents. The returned slice aliases the
// buffer's backing array and is only valid until the next Consume call.
func (b *ReassemblyBuffer) Bytes() []byte {
	return b.data
}

// Consume discards the first n bytes by shifting the remainder down,
// matching the reference implementation's memmove-based chunk removal.
// It panics if n exceeds the buffer's length, which would indicate a
// codec bug (consuming more than was verified present).
func (b *ReassemblyBuffer) Consume(n int) {
	if n > len(b.data) {
		panic("aead: ReassemblyBuffer.Consume: n exceeds buffer length")
	}
	if n == len(b.data) {
		b.data = b.data[:0]
		return
	}
	copy(b.data, b.data[n:])
	b.data = b.data[:len(b.data)-n]
}

// Reset discards all buffered content, releasing the backing array.
// Called from Release when a SessionCipherContext is torn down.
func (b *ReassemblyBuffer) Reset() {
	b.data = nil
}
