// Package contenthash provides the SHA-256 content hash used to address
// signed artifacts (network parameters, node infos, network maps) in the
// blob store.
package contenthash

import (
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"errors"
)

// Size is the size of a Hash in bytes.
const Size = sha256.Size

// errMalformedHash is returned when decoding a hash of the wrong length.
var errMalformedHash = errors.New("contenthash: malformed hash")

var (
	_ encoding.BinaryMarshaler   = Hash{}
	_ encoding.BinaryUnmarshaler = (*Hash)(nil)
	_ encoding.TextMarshaler     = Hash{}
	_ encoding.TextUnmarshaler   = (*Hash)(nil)
)

// Hash is a SHA-256 content hash.
type Hash [Size]byte

// MarshalBinary encodes the hash into binary form.
func (h Hash) MarshalBinary() (data []byte, err error) {
	return append([]byte{}, h[:]...), nil
}

// UnmarshalBinary decodes a binary marshaled hash.
func (h *Hash) UnmarshalBinary(data []byte) error {
	if len(data) != Size {
		return errMalformedHash
	}
	copy(h[:], data)
	return nil
}

// MarshalText encodes the hash as a lower-case hex string.
func (h Hash) MarshalText() (data []byte, err error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a lower-case hex string into the hash.
func (h *Hash) UnmarshalText(text []byte) error {
	return h.UnmarshalHex(string(text))
}

// UnmarshalHex deserializes a hexadecimal string into the hash.
func (h *Hash) UnmarshalHex(text string) error {
	b, err := hex.DecodeString(text)
	if err != nil {
		return err
	}
	return h.UnmarshalBinary(b)
}

// String returns the hex representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Equal compares the hash against another for equality.
func (h Hash) Equal(cmp Hash) bool {
	return h == cmp
}

// IsEmpty returns true iff the hash is the zero hash.
func (h Hash) IsEmpty() bool {
	return h == Hash{}
}

// FromBytes computes and sets the hash over the given bytes.
func (h *Hash) FromBytes(b []byte) {
	*h = sha256.Sum256(b)
}

// New computes the content hash of the given bytes.
func New(b []byte) Hash {
	var h Hash
	h.FromBytes(b)
	return h
}
