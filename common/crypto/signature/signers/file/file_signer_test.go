package file

import (
	"crypto/rand"
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/netmapd/common/crypto/signature"
)

func TestFileSigner(t *testing.T) {
	require := require.New(t)

	var zeroSigner Signer
	var zeroPubKey signature.PublicKey

	tmpDir, err := ioutil.TempDir("", "netmapd-signature-test")
	require.NoError(err, "TempDir()")
	defer os.RemoveAll(tmpDir)

	factory, err := NewFactory(tmpDir, signature.SignerNode)
	require.NoError(err, "NewFactory()")

	// Missing, no generate.
	_, err = factory.Load("node")
	require.Error(err, "Load(fn), missing")

	// Role not configured for this factory.
	_, err = factory.Generate("netmap", rand.Reader)
	require.ErrorIs(err, signature.ErrRoleMismatch, "Generate for unconfigured role")

	// Generate.
	var signer signature.Signer
	signer, err = factory.Generate("node", rand.Reader)
	require.NoError(err, "Generate(node, rand.Reader)")
	require.NotEqual(zeroSigner, signer, "PrivateKey is random")
	require.NotEqual(zeroPubKey, signer.Public(), "PublicKey is sensible")

	// PEM round trips.
	actualSigner := signer.(*Signer)
	pemBuf, err := actualSigner.marshalPEM()
	require.NoError(err, "marshalPEM()")

	var actualSigner2 Signer
	err = actualSigner2.unmarshalPEM(pemBuf)
	require.NoError(err, "unmarshalPEM()")
	require.Equal(actualSigner, &actualSigner2, "PEM round trip")

	// Exists.
	signer2, err := factory.Load("node")
	require.NoError(err, "Load(fn), exists")
	require.Equal(signer, signer2, "Generated = Loaded")

	// Generating again over an existing key fails.
	_, err = factory.Generate("node", rand.Reader)
	require.Error(err, "Generate() over existing key should fail")
}

func TestFileSignerContextSign(t *testing.T) {
	require := require.New(t)

	tmpDir, err := ioutil.TempDir("", "netmapd-signature-test")
	require.NoError(err, "TempDir()")
	defer os.RemoveAll(tmpDir)

	factory, err := NewFactory(tmpDir, signature.SignerNetworkMap)
	require.NoError(err, "NewFactory()")

	signer, err := factory.Generate("netmap", rand.Reader)
	require.NoError(err, "Generate()")

	sig, err := signer.ContextSign([]byte("netmap parameters"), []byte("payload"))
	require.NoError(err, "ContextSign()")
	require.True(signer.Public().Verify([]byte("netmap parameters"), []byte("payload"), sig), "Verify() of a freshly produced signature")
}
