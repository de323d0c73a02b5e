package processor

// Named pointers in the text store.
const (
	// KeyCurrentParameters points at the hash of the active
	// SignedNetworkParameters.
	KeyCurrentParameters = "current-parameters"
	// KeyNextParamsUpdate holds the serialized pending ParametersUpdate,
	// absent if none is scheduled.
	KeyNextParamsUpdate = "next-params-update"
)

// KeyLatestNetworkMap is the fixed blob store key under which the current
// SignedNetworkMap is stored.
const KeyLatestNetworkMap = "latest-network-map"
