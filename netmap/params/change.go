package params

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Change is a closed variant of the mutations the algebra supports. Only
// the types defined in this file implement it.
type Change interface {
	apply(p *NetworkParameters)
}

// AddNotary appends a notary if its identity is not already present;
// idempotent otherwise.
type AddNotary struct {
	Notary Notary
}

func (c AddNotary) apply(p *NetworkParameters) {
	for _, n := range p.Notaries {
		if n.Identity == c.Notary.Identity {
			return
		}
	}
	p.Notaries = append(p.Notaries, c.Notary)
}

// RemoveNotary removes the single notary whose identity hashes (SHA-256
// hex) to NameHash; a no-op if no such notary exists.
type RemoveNotary struct {
	NameHash string
}

func (c RemoveNotary) apply(p *NetworkParameters) {
	out := p.Notaries[:0]
	for _, n := range p.Notaries {
		if NotaryNameHash(n.Identity) == c.NameHash {
			continue
		}
		out = append(out, n)
	}
	p.Notaries = out
}

// NotaryNameHash returns the SHA-256 hex hash RemoveNotary matches
// identities against.
func NotaryNameHash(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}

// ReplaceNotaries replaces the notary list wholesale with Notaries, so a
// full reconciliation against an external source of truth (e.g. a watched
// certificate directory) can be expressed as a single Change.
type ReplaceNotaries struct {
	Notaries []Notary
}

func (c ReplaceNotaries) apply(p *NetworkParameters) {
	p.Notaries = append([]Notary{}, c.Notaries...)
}

// AppendWhiteList unions Entries into the existing whitelist.
type AppendWhiteList struct {
	Entries map[string][]string
}

func (c AppendWhiteList) apply(p *NetworkParameters) {
	if p.Whitelist == nil {
		p.Whitelist = map[string][]string{}
	}
	for fqn, hashes := range c.Entries {
		existing := map[string]bool{}
		for _, h := range p.Whitelist[fqn] {
			existing[h] = true
		}
		merged := append([]string{}, p.Whitelist[fqn]...)
		for _, h := range hashes {
			if !existing[h] {
				merged = append(merged, h)
				existing[h] = true
			}
		}
		p.Whitelist[fqn] = merged
	}
}

// ReplaceWhiteList replaces the whitelist wholesale with Entries.
type ReplaceWhiteList struct {
	Entries map[string][]string
}

func (c ReplaceWhiteList) apply(p *NetworkParameters) {
	out := make(map[string][]string, len(c.Entries))
	for fqn, hashes := range c.Entries {
		out[fqn] = append([]string{}, hashes...)
	}
	p.Whitelist = out
}

// ClearWhiteList empties the whitelist.
type ClearWhiteList struct{}

func (c ClearWhiteList) apply(p *NetworkParameters) {
	p.Whitelist = map[string][]string{}
}

// Apply returns the result of applying change to params: a clone with the
// change's effect applied, epoch incremented by one, and modifiedTime set
// to now. params itself is never mutated.
func Apply(p *NetworkParameters, change Change, now time.Time) (*NetworkParameters, error) {
	if change == nil {
		return nil, fmt.Errorf("netmap/params: nil change")
	}

	next := p.Clone()
	change.apply(next)
	next.Epoch = p.Epoch + 1
	next.ModifiedTime = now

	return next, nil
}
