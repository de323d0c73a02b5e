// Package file provides a PEM file backed signer.
package file

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/oasisprotocol/netmapd/common/crypto/signature"
	"github.com/oasisprotocol/netmapd/common/pem"
)

const (
	privateKeyPemType = "ED25519 PRIVATE KEY"

	filePerm = 0o600

	// SignerName is the name used to identify the file backed signer.
	SignerName = "file"

	// FileNodeKey is the node identity key filename.
	FileNodeKey = "node.pem"
	// FileNetworkMapKey is the network map signing key filename.
	FileNetworkMapKey = "netmap.pem"
)

var (
	_ signature.SignerFactory = (*Factory)(nil)
	_ signature.Signer        = (*Signer)(nil)

	roleFilenames = map[signature.SignerRole]string{
		signature.SignerNode:        FileNodeKey,
		signature.SignerNetworkMap:  FileNetworkMapKey,
	}
)

// NewFactory creates a new factory with the specified roles, backed by the
// specified data directory.
func NewFactory(dataDir string, roles ...signature.SignerRole) (signature.SignerFactory, error) {
	if dataDir == "" {
		return nil, errors.New("signature/signer/file: invalid file signer configuration provided")
	}

	return &Factory{
		roles:   append([]signature.SignerRole{}, roles...),
		dataDir: dataDir,
	}, nil
}

// Factory is a PEM file backed SignerFactory.
type Factory struct {
	roles   []signature.SignerRole
	dataDir string
}

// EnsureRole ensures that the SignerFactory is configured for the given
// role.
func (fac *Factory) EnsureRole(role signature.SignerRole) error {
	for _, v := range fac.roles {
		if v == role {
			return nil
		}
	}
	return signature.ErrRoleMismatch
}

// Generate generates and persists a new private key corresponding to the
// id (a role name such as "node" or "netmap"), and returns a Signer ready
// for use, using entropy from rng.
func (fac *Factory) Generate(id string, rng io.Reader) (signature.Signer, error) {
	role, err := fac.roleForID(id)
	if err != nil {
		return nil, err
	}

	fn := filepath.Join(fac.dataDir, roleFilenames[role])
	if f, err := os.Open(fn); err == nil {
		f.Close()
		return nil, errors.New("signature/signer/file: key already exists")
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	_, privateKey, err := ed25519.GenerateKey(rng)
	if err != nil {
		return nil, err
	}

	signer := &Signer{privateKey: privateKey}
	buf, err := signer.marshalPEM()
	if err != nil {
		return nil, err
	}
	if err = ioutil.WriteFile(fn, buf, filePerm); err != nil {
		return nil, err
	}

	return signer, nil
}

// Load loads the private key corresponding to the id, and returns a Signer
// ready for use.
func (fac *Factory) Load(id string) (signature.Signer, error) {
	role, err := fac.roleForID(id)
	if err != nil {
		return nil, err
	}
	return fac.doLoad(filepath.Join(fac.dataDir, roleFilenames[role]))
}

func (fac *Factory) roleForID(id string) (signature.SignerRole, error) {
	for role, fn := range roleFilenames {
		if fn == id || roleName(role) == id {
			if err := fac.EnsureRole(role); err != nil {
				return signature.SignerUnknown, err
			}
			return role, nil
		}
	}
	return signature.SignerUnknown, fmt.Errorf("signature/signer/file: unknown signer id: %q", id)
}

func roleName(role signature.SignerRole) string {
	switch role {
	case signature.SignerNode:
		return "node"
	case signature.SignerNetworkMap:
		return "netmap"
	default:
		return "unknown"
	}
}

func (fac *Factory) doLoad(fn string) (signature.Signer, error) {
	f, err := os.Open(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, signature.ErrNotExist
		}
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Mode().Perm() != filePerm {
		return nil, fmt.Errorf("signature/signer/file: invalid PEM file permissions %o on %s", fi.Mode(), fn)
	}

	buf, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var signer Signer
	if err = signer.unmarshalPEM(buf); err != nil {
		return nil, err
	}

	return &signer, nil
}

// Signer is a PEM file backed Signer.
type Signer struct {
	privateKey ed25519.PrivateKey
}

// Public returns the PublicKey corresponding to the signer.
func (s *Signer) Public() signature.PublicKey {
	var pk signature.PublicKey
	_ = pk.UnmarshalBinary(s.privateKey.Public().(ed25519.PublicKey))
	return pk
}

// Sign generates a signature with the private key over the message, with no
// domain-separation context.
func (s *Signer) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.privateKey, message), nil
}

// ContextSign generates a signature with the private key over the context and
// message.
func (s *Signer) ContextSign(context, message []byte) ([]byte, error) {
	data := signature.PrepareSignerMessage(context, message)
	return ed25519.Sign(s.privateKey, data), nil
}

// String returns anything but the actual private key backing the Signer.
func (s *Signer) String() string {
	return "[redacted private key]"
}

// Reset tears down the Signer and obliterates any sensitive state if any.
func (s *Signer) Reset() {
	for idx := range s.privateKey {
		s.privateKey[idx] = 0
	}
}

// UnsafeBytes returns the byte representation of the private key. This
// MUST be removed for HSM support.
func (s *Signer) UnsafeBytes() []byte {
	return s.privateKey[:]
}

func (s *Signer) marshalPEM() ([]byte, error) {
	return pem.Marshal(privateKeyPemType, s.privateKey[:])
}

func (s *Signer) unmarshalPEM(data []byte) error {
	data, err := pem.Unmarshal(privateKeyPemType, data)
	if err != nil {
		return err
	}
	if len(data) != ed25519.PrivateKeySize {
		return signature.ErrMalformedPrivateKey
	}

	s.privateKey = ed25519.PrivateKey(data)

	return nil
}
