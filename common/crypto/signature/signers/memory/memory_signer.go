// Package memory provides a memory backed Signer, primarily for use in testing.
package memory

import (
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/oasisprotocol/netmapd/common/crypto/signature"
)

// SignerName is the name used to identify the memory backed signer.
const SignerName = "memory"

var (
	_ signature.SignerFactory = (*Factory)(nil)
	_ signature.Signer        = (*Signer)(nil)
)

// Factory is a memory backed SignerFactory.
type Factory struct{}

// NewFactory creates a new Factory.
func NewFactory() signature.SignerFactory {
	return &Factory{}
}

// EnsureRole is a no-op; the memory factory has no persistent role state.
func (fac *Factory) EnsureRole(role signature.SignerRole) error {
	return nil
}

// Generate generates a new private key and returns a Signer ready for use,
// using entropy from rng.
func (fac *Factory) Generate(id string, rng io.Reader) (signature.Signer, error) {
	_, privateKey, err := ed25519.GenerateKey(rng)
	if err != nil {
		return nil, err
	}

	return &Signer{privateKey: privateKey}, nil
}

// Load always returns ErrNotExist, as this factory does not support
// persistence.
func (fac *Factory) Load(id string) (signature.Signer, error) {
	return nil, signature.ErrNotExist
}

// Signer is a memory backed Signer.
type Signer struct {
	privateKey ed25519.PrivateKey
}

// Public returns the PublicKey corresponding to the signer.
func (s *Signer) Public() signature.PublicKey {
	var pk signature.PublicKey
	_ = pk.UnmarshalBinary(s.privateKey.Public().(ed25519.PublicKey))
	return pk
}

// Sign generates a signature with the private key over the message, with no
// domain-separation context.
func (s *Signer) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.privateKey, message), nil
}

// ContextSign generates a signature with the private key over the context
// and message.
func (s *Signer) ContextSign(context, message []byte) ([]byte, error) {
	data := signature.PrepareSignerMessage(context, message)
	return ed25519.Sign(s.privateKey, data), nil
}

// String returns anything but the actual private key backing the Signer.
func (s *Signer) String() string {
	return "[redacted private key]"
}

// Reset tears down the Signer and obliterates any sensitive state if any.
func (s *Signer) Reset() {
	for idx := range s.privateKey {
		s.privateKey[idx] = 0
	}
}

// UnsafeBytes returns the byte representation of the private key. This
// MUST be removed for HSM support.
func (s *Signer) UnsafeBytes() []byte {
	return s.privateKey[:]
}

// NewSigner creates a new signer using entropy read from the given reader.
func NewSigner(entropy io.Reader) (signature.Signer, error) {
	var factory Factory
	return factory.Generate("", entropy)
}

// NewFromSeed creates a new signer from an RFC 8032 seed.
func NewFromSeed(seed []byte) (signature.Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signature/signer/memory: bad seed length: %d", len(seed))
	}

	return &Signer{privateKey: ed25519.NewKeyFromSeed(seed)}, nil
}
