package processor

import (
	"time"

	"github.com/oasisprotocol/netmapd/common/cbor"
	"github.com/oasisprotocol/netmapd/common/crypto/signature"
)

// MapSignatureContext is the domain-separation context used when signing
// and verifying NetworkMap.
var MapSignatureContext = []byte("netmap map")

// ParametersUpdate is a scheduled parameters activation record.
type ParametersUpdate struct {
	// NewParametersHash is the content hash of the pending
	// SignedNetworkParameters.
	NewParametersHash string `json:"new_parameters_hash"`
	// Description is a human-readable summary of the change.
	Description string `json:"description"`
	// UpdateDeadline is the time at which the update activates.
	UpdateDeadline time.Time `json:"update_deadline"`
}

// NetworkMap is the aggregate snapshot of the network: the set of known
// node infos, the currently active parameters, and any scheduled update.
type NetworkMap struct {
	// NodeInfoHashes is the set of content hashes of all currently stored
	// SignedNodeInfo blobs.
	NodeInfoHashes []string `json:"node_info_hashes"`
	// NetworkParameterHash is the content hash of the currently active
	// SignedNetworkParameters.
	NetworkParameterHash string `json:"network_parameter_hash"`
	// ParametersUpdate is the pending parameters update, if any.
	ParametersUpdate *ParametersUpdate `json:"parameters_update,omitempty"`
}

// MarshalCBOR serializes the type into a CBOR byte vector.
func (m *NetworkMap) MarshalCBOR() []byte {
	return cbor.Marshal(m)
}

// UnmarshalCBOR deserializes a CBOR byte vector into the type.
func (m *NetworkMap) UnmarshalCBOR(data []byte) error {
	type plain NetworkMap
	return cbor.Unmarshal(data, (*plain)(m))
}

// SignedNetworkMap is a NetworkMap plus a signature by the network map
// signing key, stored under the fixed name "latest-network-map".
type SignedNetworkMap struct {
	signature.Signed
}

// Open verifies the signature and decodes the enclosed NetworkMap.
func (s *SignedNetworkMap) Open() (*NetworkMap, error) {
	var m NetworkMap
	if err := s.Signed.Open(MapSignatureContext, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
