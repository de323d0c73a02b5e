// Package node implements a participant's self-description (NodeInfo) and
// its signed wire form, grounded on the verify-then-store pattern the
// registry package used for node registration.
package node

import (
	"fmt"

	"github.com/oasisprotocol/netmapd/common/cbor"
	"github.com/oasisprotocol/netmapd/common/crypto/signature"
	"github.com/oasisprotocol/netmapd/contenthash"
)

// SignatureContext is the domain-separation context used when signing and
// verifying NodeInfo.
var SignatureContext = []byte("netmap node info")

// Identity is one legal identity a node claims: a distinguished name plus
// the public key that owns it.
type Identity struct {
	// Name is the distinguished name, e.g. "O=Operator,L=City,C=US".
	Name string `json:"name"`
	// PublicKey is the public key owning Name.
	PublicKey signature.PublicKey `json:"public_key"`
}

// Info is a participant's self-description.
type Info struct {
	// Identities is the set of legal identities this node claims.
	Identities []Identity `json:"identities"`
	// Addresses is the set of network addresses this node is reachable at.
	Addresses []string `json:"addresses"`
	// PlatformVersion is the node software's platform version.
	PlatformVersion string `json:"platform_version"`
}

// MarshalCBOR serializes the type into a CBOR byte vector.
func (n *Info) MarshalCBOR() []byte {
	return cbor.Marshal(n)
}

// UnmarshalCBOR deserializes a CBOR byte vector into the type.
func (n *Info) UnmarshalCBOR(data []byte) error {
	type plain Info
	return cbor.Unmarshal(data, (*plain)(n))
}

// SignedInfo is a NodeInfo plus signatures by its claimed identity keys,
// content-addressed by the hash of its raw bytes and additionally indexed
// by its SHA-256 hex hash.
type SignedInfo struct {
	signature.Signed
}

// Sign produces a SignedInfo over info using signer.
func Sign(signer signature.Signer, info *Info) (*SignedInfo, error) {
	signed, err := signature.SignSigned(signer, SignatureContext, info)
	if err != nil {
		return nil, err
	}
	return &SignedInfo{Signed: *signed}, nil
}

// Open verifies the signature and decodes the enclosed Info.
//
// Verification only checks that the blob's signature was produced by the
// signature's own embedded public key; callers are responsible for
// checking that key against the claimed identities (see VerifyIdentities).
func (s *SignedInfo) Open() (*Info, error) {
	var info Info
	if err := s.Signed.Open(SignatureContext, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Hash returns the SHA-256 hex hash used to index this signed node info,
// computed over its raw CBOR-encoded bytes.
func (s *SignedInfo) Hash() string {
	return contenthash.New(s.MarshalCBOR()).String()
}

// VerifyIdentities checks that every Identity in info is in fact owned by
// one of the public keys that signed s. The spec requires at least the
// signer to vouch for the name/key pairs it is publishing.
func VerifyIdentities(s *SignedInfo, info *Info) error {
	for _, id := range info.Identities {
		if !id.PublicKey.Equal(s.Signature.PublicKey) {
			return fmt.Errorf("netmap/node: identity %q not owned by signer", id.Name)
		}
	}
	return nil
}
