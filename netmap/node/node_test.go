package node

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/netmapd/common/crypto/signature/signers/memory"
)

func TestSignAndOpenRoundTrip(t *testing.T) {
	require := require.New(t)

	signer, err := memory.NewSigner(rand.Reader)
	require.NoError(err)

	info := &Info{
		Identities: []Identity{{Name: "O=Acme,C=US", PublicKey: signer.Public()}},
		Addresses:  []string{"10.0.0.1:8080"},
	}

	signed, err := Sign(signer, info)
	require.NoError(err)

	opened, err := signed.Open()
	require.NoError(err)
	require.Equal(info.Addresses, opened.Addresses)
	require.NoError(VerifyIdentities(signed, opened))
}

func TestVerifyIdentitiesRejectsUnownedIdentity(t *testing.T) {
	require := require.New(t)

	signer, err := memory.NewSigner(rand.Reader)
	require.NoError(err)
	other, err := memory.NewSigner(rand.Reader)
	require.NoError(err)

	info := &Info{Identities: []Identity{{Name: "O=Acme,C=US", PublicKey: other.Public()}}}
	signed, err := Sign(signer, info)
	require.NoError(err)

	opened, err := signed.Open()
	require.NoError(err)
	require.Error(VerifyIdentities(signed, opened), "an identity claiming a key other than the signer's must be rejected")
}

func TestHashIsStableAndContentAddressed(t *testing.T) {
	require := require.New(t)

	signer, err := memory.NewSigner(rand.Reader)
	require.NoError(err)

	info := &Info{Identities: []Identity{{Name: "O=Acme,C=US", PublicKey: signer.Public()}}}
	signed, err := Sign(signer, info)
	require.NoError(err)

	h1 := signed.Hash()
	h2 := signed.Hash()
	require.Equal(h1, h2)
	require.Len(h1, 64, "sha-256 hex digest is 64 characters")
}
