package aead

import "encoding/binary"

// chunkSizeMask is the upper bound on a decoded length field, matching
// aead.c's CHUNK_SIZE_MASK. It bounds a single chunk's payload to 16383
// bytes; Decrypt rejects a length with either of the top two bits set as
// a malformed frame rather than masking those bits off.
const chunkSizeMask = 0x3FFF

// maxChunkPayload is the largest payload a single chunk can carry.
const maxChunkPayload = chunkSizeMask

// lenChunkSize returns the wire size of an encrypted length chunk: a
// 2-byte big-endian length field plus one AEAD tag.
func (c *SessionCipherContext) lenChunkSize() int {
	return 2 + c.master.Spec.TagLen
}

// Encrypt seals plaintext as one or more TCP chunks, per spec 4.6. A
// plaintext longer than maxChunkPayload is split across multiple chunks
// transparently; the caller never needs to chunk its own writes. On an
// encrypt context's first call, the leading salt is prepended.
func (c *SessionCipherContext) Encrypt(plaintext []byte) ([]byte, error) {
	var out []byte
	if !c.saltEmitted {
		out = append(out, c.salt...)
		c.saltEmitted = true
	}
	for len(plaintext) > 0 {
		n := len(plaintext)
		if n > maxChunkPayload {
			n = maxChunkPayload
		}
		chunk := plaintext[:n]
		plaintext = plaintext[n:]

		var lenField [2]byte
		binary.BigEndian.PutUint16(lenField[:], uint16(n))

		out = append(out, c.sealNext(lenField[:])...)
		out = append(out, c.sealNext(chunk)...)
	}
	return out, nil
}

// Decrypt feeds newly-arrived ciphertext bytes into the context's
// reassembly buffer and returns whatever complete chunks of plaintext
// that produces. It returns ErrNeedMore (not a fatal error) when data was
// accepted but no full chunk could yet be authenticated — the caller
// should read more from the wire and call Decrypt again with the new
// bytes.
//
// The first call on a fresh decrypt context consumes the leading salt
// before any chunk decoding begins. Per spec 4.6, once a length chunk has
// been authenticated the nonce advances immediately, even if the matching
// payload chunk has not arrived yet — installSalt/openNext below never
// defer that advance, so a context can never be tricked into reusing a
// nonce by arriving in small reads.
func (c *SessionCipherContext) Decrypt(data []byte) ([]byte, error) {
	c.chunk.Append(data)

	if !c.init {
		if c.chunk.Len() < c.master.Spec.KeyLen {
			return nil, ErrNeedMore
		}
		salt := c.chunk.Bytes()[:c.master.Spec.KeyLen]
		if err := c.installSalt(salt); err != nil {
			return nil, err
		}
		c.chunk.Consume(c.master.Spec.KeyLen)
	}

	var out []byte
	for {
		if !c.pendingLenKnown {
			lenCTSize := c.lenChunkSize()
			if c.chunk.Len() < lenCTSize {
				break
			}
			lenPT, err := c.openNext(c.chunk.Bytes()[:lenCTSize])
			if err != nil {
				return nil, err
			}
			c.chunk.Consume(lenCTSize)

			raw := binary.BigEndian.Uint16(lenPT)
			if raw > chunkSizeMask {
				return nil, ErrMalformedFrame
			}
			if raw == 0 {
				return nil, ErrMalformedFrame
			}
			c.pendingPayloadLen = int(raw)
			c.pendingLenKnown = true
		}

		payloadCTSize := c.pendingPayloadLen + c.master.Spec.TagLen
		if c.chunk.Len() < payloadCTSize {
			break
		}
		pt, err := c.openNext(c.chunk.Bytes()[:payloadCTSize])
		if err != nil {
			return nil, err
		}
		c.chunk.Consume(payloadCTSize)
		c.pendingLenKnown = false

		out = append(out, pt...)
	}

	if out == nil {
		return nil, ErrNeedMore
	}
	return out, nil
}
