package signature

import (
	"crypto/sha256"
	"errors"
	"io"
	"os"
)

var (
	// ErrNotExist is the error returned when a private key does not exist.
	ErrNotExist = os.ErrNotExist

	// ErrMalformedPrivateKey is the error returned when a private key is
	// malformed.
	ErrMalformedPrivateKey = errors.New("signature: malformed private key")

	// ErrRoleMismatch is the error returned when the signer factory role
	// is misconfigured.
	ErrRoleMismatch = errors.New("signature: signer factory role mismatch")
)

// SignerRole is the role of the Signer (node identity, network-map key, etc).
type SignerRole int

const (
	// SignerUnknown is the zero-value, invalid role.
	SignerUnknown SignerRole = iota
	// SignerNode is a participant node's identity signing key.
	SignerNode
	// SignerNetworkMap is the network map service's own signing key,
	// used to sign NetworkParameters, NetworkMap, and similar artifacts.
	SignerNetworkMap
)

// SignerFactory is the opaque factory interface for Signers.
type SignerFactory interface {
	// EnsureRole ensures that the SignerFactory is configured for the given
	// role.
	EnsureRole(role SignerRole) error

	// Generate will generate and persist a new private key corresponding to
	// id, and return a Signer ready for use. Certain implementations require
	// an entropy source to be provided.
	Generate(id string, rng io.Reader) (Signer, error)

	// Load will load the private key corresponding to id, and return
	// a Signer ready for use.
	Load(id string) (Signer, error)
}

// Signer is an opaque interface for private keys that is capable of producing
// signatures, in the spirit of `crypto.Signer`.
type Signer interface {
	// Public returns the PublicKey corresponding to the signer.
	Public() PublicKey

	// Sign generates a signature with the private key over the message.
	Sign(message []byte) ([]byte, error)

	// ContextSign generates a signature with the private key over the context
	// and message.
	ContextSign(context, message []byte) ([]byte, error)

	// String returns the string representation of a Signer, which MUST not
	// include any sensitive information.
	String() string

	// Reset tears down the Signer and obliterates any sensitive state if any.
	Reset()

	// UnsafeBytes returns the byte representation of the private key. This
	// MUST be removed for HSM support.
	UnsafeBytes() []byte
}

// PrepareSignerMessage prepares a domain-separation context and message for
// signing by a Signer. Unlike a raw concatenation, this ensures a context
// string can never be confused with message content by hashing the context
// prefixed with its 2-byte big-endian length, followed by the message.
func PrepareSignerMessage(context, message []byte) []byte {
	h := sha256.New()
	_, _ = h.Write([]byte{byte(len(context) >> 8), byte(len(context))})
	_, _ = h.Write(context)
	_, _ = h.Write(message)
	return h.Sum(nil)
}
