package cbor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutOfMem1(t *testing.T) {
	require := require.New(t)

	var f []byte
	err := Unmarshal([]byte("\x9b\x00\x00000000"), f)
	require.Error(err, "Invalid CBOR input should fail")
}

func TestOutOfMem2(t *testing.T) {
	require := require.New(t)

	var f []byte
	err := Unmarshal([]byte("\x9b\x00\x00\x81112233"), f)
	require.Error(err, "Invalid CBOR input should fail")
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	require := require.New(t)

	type message struct {
		Number uint64
		Name   string
	}

	msg := message{Number: 42, Name: "alice"}
	data := Marshal(&msg)

	var decoded message
	err := Unmarshal(data, &decoded)
	require.NoError(err, "Unmarshal")
	require.EqualValues(msg, decoded, "decoded value should be correct")
}

func TestMustUnmarshalPanicsOnError(t *testing.T) {
	require.Panics(t, func() {
		var x int
		MustUnmarshal([]byte("\xff\xff"), &x)
	})
}
