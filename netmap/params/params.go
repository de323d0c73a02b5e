// Package params implements the network's protocol-wide constitution
// (NetworkParameters), its signed wire form, and the change set algebra
// that mutates it.
package params

import (
	"math"
	"time"

	"github.com/oasisprotocol/netmapd/common/cbor"
	"github.com/oasisprotocol/netmapd/common/crypto/signature"
)

// SignatureContext is the domain-separation context used when signing and
// verifying NetworkParameters.
var SignatureContext = []byte("netmap parameters")

// DefaultMinimumPlatformVersion is the minimum platform version used when
// bootstrapping a fresh network.
const DefaultMinimumPlatformVersion = 1

// DefaultMaxMessageSize is the default maximum message size in bytes.
const DefaultMaxMessageSize = 10 * 1024 * 1024

// DefaultMaxTransactionSize is the default maximum signed transaction size.
const DefaultMaxTransactionSize = math.MaxInt32

// Notary is a trusted identity participating in consensus.
type Notary struct {
	// Identity is the notary's distinguishing identity (e.g. derived from
	// its certificate subject).
	Identity string `json:"identity"`
	// Validating is true iff this notary participates in transaction
	// validation, as opposed to being a non-validating (observer) notary.
	Validating bool `json:"validating"`
}

// NetworkParameters is the protocol-wide constitution.
type NetworkParameters struct {
	// MinimumPlatformVersion is the minimum node platform version allowed
	// to participate in the network.
	MinimumPlatformVersion int `json:"minimum_platform_version"`
	// Notaries is the ordered list of notary entries.
	Notaries []Notary `json:"notaries"`
	// MaxMessageSize is the maximum allowed message size in bytes.
	MaxMessageSize int `json:"max_message_size"`
	// MaxTransactionSize is the maximum allowed signed transaction size.
	MaxTransactionSize int `json:"max_transaction_size"`
	// ModifiedTime is the time of the last mutation.
	ModifiedTime time.Time `json:"modified_time"`
	// Epoch is the monotonically increasing version of the parameters.
	Epoch uint64 `json:"epoch"`
	// Whitelist maps a fully qualified contract name to the set of
	// approved attachment hashes implementing it.
	Whitelist map[string][]string `json:"whitelist"`
}

// MarshalCBOR serializes the type into a CBOR byte vector.
func (p *NetworkParameters) MarshalCBOR() []byte {
	return cbor.Marshal(p)
}

// UnmarshalCBOR deserializes a CBOR byte vector into the type.
func (p *NetworkParameters) UnmarshalCBOR(data []byte) error {
	type plain NetworkParameters
	return cbor.Unmarshal(data, (*plain)(p))
}

// Template returns the bootstrap NetworkParameters used when no
// current-parameters pointer exists yet: epoch 1, no notaries, an empty
// whitelist.
func Template(now time.Time) *NetworkParameters {
	return &NetworkParameters{
		MinimumPlatformVersion: DefaultMinimumPlatformVersion,
		Notaries:               nil,
		MaxMessageSize:         DefaultMaxMessageSize,
		MaxTransactionSize:     DefaultMaxTransactionSize,
		ModifiedTime:           now,
		Epoch:                  1,
		Whitelist:              map[string][]string{},
	}
}

// Clone returns a deep copy of the parameters.
func (p *NetworkParameters) Clone() *NetworkParameters {
	out := *p
	out.Notaries = append([]Notary{}, p.Notaries...)
	out.Whitelist = make(map[string][]string, len(p.Whitelist))
	for k, v := range p.Whitelist {
		out.Whitelist[k] = append([]string{}, v...)
	}
	return &out
}

// SignedNetworkParameters is a NetworkParameters plus a signature by the
// network map's signing key, content-addressed by the hash of its raw
// bytes.
type SignedNetworkParameters struct {
	signature.Signed
}

// Sign produces a SignedNetworkParameters over p using signer.
func Sign(signer signature.Signer, p *NetworkParameters) (*SignedNetworkParameters, error) {
	signed, err := signature.SignSigned(signer, SignatureContext, p)
	if err != nil {
		return nil, err
	}
	return &SignedNetworkParameters{Signed: *signed}, nil
}

// Open verifies the signature and decodes the enclosed NetworkParameters.
func (s *SignedNetworkParameters) Open() (*NetworkParameters, error) {
	var p NetworkParameters
	if err := s.Signed.Open(SignatureContext, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
