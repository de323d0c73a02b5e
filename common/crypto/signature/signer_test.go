package signature

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrepareSignerMessage(t *testing.T) {
	require := require.New(t)

	msg1 := PrepareSignerMessage([]byte("netmap node info"), []byte("message"))
	msg2 := PrepareSignerMessage([]byte("netmap parameters"), []byte("message"))
	require.NotEqual(msg1, msg2, "messages for different contexts should be different")

	msg1Again := PrepareSignerMessage([]byte("netmap node info"), []byte("message"))
	require.Equal(msg1, msg1Again, "identical context and message should hash identically")

	msg3 := PrepareSignerMessage([]byte("netmap node info"), []byte("different message"))
	require.NotEqual(msg1, msg3, "messages with different content should be different")
}

func TestSignerRoleValues(t *testing.T) {
	require := require.New(t)

	require.NotEqual(SignerNode, SignerNetworkMap)
	require.NotEqual(SignerUnknown, SignerNode)
}
