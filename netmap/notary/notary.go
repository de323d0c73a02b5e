// Package notary derives NotaryInfo entries from a directory of
// PEM-encoded x509 certificates. JKS keystores (the original notary
// certificate format) have no maintained Go parser in the ecosystem; see
// SPEC_FULL.md for the substitution rationale.
package notary

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"sort"

	"github.com/oasisprotocol/netmapd/netmap/params"
)

// Info is a trusted notary identity derived from a certificate file.
type Info struct {
	// Identity is the certificate subject's common name.
	Identity string
	// Validating indicates whether this notary participates in
	// transaction validation.
	Validating bool
	// Certificate is the parsed x509 certificate.
	Certificate *x509.Certificate
}

// ParseFile parses a single PEM-encoded x509 certificate file into an
// Info, with the given validating flag.
func ParseFile(path string, validating bool) (*Info, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	blk, _ := pem.Decode(data)
	if blk == nil {
		return nil, fmt.Errorf("notary: %s is not PEM encoded", path)
	}

	cert, err := x509.ParseCertificate(blk.Bytes)
	if err != nil {
		return nil, fmt.Errorf("notary: failed to parse certificate %s: %w", path, err)
	}

	return &Info{
		Identity:    cert.Subject.CommonName,
		Validating:  validating,
		Certificate: cert,
	}, nil
}

// LoadDirectory parses every regular file in dir matching pattern into a
// sorted (by identity) list of Info, treating every entry as validating.
func LoadDirectory(dir, pattern string) ([]*Info, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var infos []*Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); !ok {
			continue
		}

		info, err := ParseFile(filepath.Join(dir, e.Name()), true)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Identity < infos[j].Identity })
	return infos, nil
}

// ToParams converts a notary Info list into the params.Notary entries the
// change set algebra operates on.
func ToParams(infos []*Info) []params.Notary {
	out := make([]params.Notary, 0, len(infos))
	for _, info := range infos {
		out = append(out, params.Notary{Identity: info.Identity, Validating: info.Validating})
	}
	return out
}
