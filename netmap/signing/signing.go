// Package signing implements the network map's own signing identity: the
// "Certificate & Signing Authority" collaborator that holds the map
// signing key and signs/verifies arbitrary payloads on its behalf.
//
// An Authority is constructed once at bootstrap (cmd/netmapd) and passed
// into the processor explicitly; it is never a package-level variable.
package signing

import (
	"github.com/oasisprotocol/netmapd/common/cbor"
	"github.com/oasisprotocol/netmapd/common/crypto/signature"
)

// Authority holds the network map signing key and signs/verifies payloads
// on its behalf.
type Authority struct {
	signer signature.Signer
}

// New creates an Authority backed by the given signer.
func New(signer signature.Signer) *Authority {
	return &Authority{signer: signer}
}

// PublicKey returns the authority's public key.
func (a *Authority) PublicKey() signature.PublicKey {
	return a.signer.Public()
}

// Signer returns the underlying signer, for collaborators (the change set
// algebra's signed artifact constructors) that need to sign a payload
// under a context of their own choosing.
func (a *Authority) Signer() signature.Signer {
	return a.signer
}

// Sign produces a Signed envelope over the CBOR encoding of payload using
// the given domain-separation context.
func (a *Authority) Sign(context []byte, payload cbor.Marshaler) (*signature.Signed, error) {
	return signature.SignSigned(a.signer, context, payload)
}

// Verify checks signed's signature under context and decodes its payload
// into dst.
func (a *Authority) Verify(context []byte, signed *signature.Signed, dst cbor.Unmarshaler) error {
	return signed.Open(context, dst)
}
