package notary

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io/ioutil"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeSelfSignedCert(t *testing.T, dir, filename, commonName string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(1, 0, 0),
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, key.Public(), key)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, filename), pemBytes, 0o600))
}

func TestParseFile(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	writeSelfSignedCert(t, dir, "notary1.pem", "O=Notary One,C=US")

	info, err := ParseFile(filepath.Join(dir, "notary1.pem"), true)
	require.NoError(err)
	require.Equal("O=Notary One,C=US", info.Identity)
	require.True(info.Validating)
	require.NotNil(info.Certificate)
}

func TestParseFileRejectsNonPEM(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	require.NoError(ioutil.WriteFile(filepath.Join(dir, "bad.pem"), []byte("not a cert"), 0o600))

	_, err := ParseFile(filepath.Join(dir, "bad.pem"), true)
	require.Error(err)
}

func TestLoadDirectorySortsByIdentity(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	writeSelfSignedCert(t, dir, "b.pem", "Zebra")
	writeSelfSignedCert(t, dir, "a.pem", "Alpha")
	require.NoError(ioutil.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored"), 0o600))

	infos, err := LoadDirectory(dir, "*.pem")
	require.NoError(err)
	require.Len(infos, 2)
	require.Equal("Alpha", infos[0].Identity)
	require.Equal("Zebra", infos[1].Identity)
}

func TestToParams(t *testing.T) {
	require := require.New(t)

	infos := []*Info{
		{Identity: "Alpha", Validating: true},
		{Identity: "Beta", Validating: false},
	}

	out := ToParams(infos)
	require.Len(out, 2)
	require.Equal("Alpha", out[0].Identity)
	require.True(out[0].Validating)
	require.False(out[1].Validating)
}
