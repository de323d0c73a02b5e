package processor

import (
	"encoding/hex"

	"github.com/oasisprotocol/netmapd/common/cbor"
	"github.com/oasisprotocol/netmapd/netmap/store"
)

// putParametersUpdate persists update as hex-encoded CBOR under
// KeyNextParamsUpdate in the text store, which otherwise only ever holds
// plain string pointers.
func putParametersUpdate(text store.TextStore, update *ParametersUpdate) error {
	return text.Put(KeyNextParamsUpdate, hex.EncodeToString(cbor.Marshal(update)))
}

// getParametersUpdate reads the pending ParametersUpdate, returning (nil,
// nil) if none is scheduled.
func getParametersUpdate(text store.TextStore) (*ParametersUpdate, error) {
	raw, err := text.Get(KeyNextParamsUpdate)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	data, err := hex.DecodeString(raw)
	if err != nil {
		return nil, err
	}

	var update ParametersUpdate
	if err := cbor.Unmarshal(data, &update); err != nil {
		return nil, err
	}
	return &update, nil
}
