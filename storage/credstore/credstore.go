// Package credstore is the typed credential archive: canonical CBOR bytes
// in a CAS, credentials out, with integrity enforced on every read.
package credstore

import (
	"errors"

	"github.com/ipfs/go-cid"

	"dnalock.io/dnalock/credential"
	"dnalock.io/dnalock/storage"
	"dnalock.io/dnalock/wire"
)

// ErrIntegrity means archived bytes decoded cleanly but the credential's
// helix checksum no longer matches its segments. The CAS layer guarantees
// the bytes match the CID, so this indicates the credential was corrupted
// before archiving.
var ErrIntegrity = errors.New("credstore: archived credential failed checksum verification")

// Store archives credentials by the CID of their canonical encoding.
type Store struct {
	cas storage.CAS
}

func New(cas storage.CAS) *Store {
	return &Store{cas: cas}
}

// Put archives a credential and returns the CID of its canonical bytes.
// Archiving the same credential twice returns the same CID.
func (s *Store) Put(c *credential.Credential) (cid.Cid, error) {
	b, err := wire.MarshalCredential(c)
	if err != nil {
		return cid.Undef, err
	}
	return s.cas.Put(b)
}

// Get loads and decodes an archived credential, verifying its helix
// checksum before returning it.
func (s *Store) Get(id cid.Cid) (*credential.Credential, error) {
	b, err := s.cas.Get(id)
	if err != nil {
		return nil, err
	}
	c, err := wire.UnmarshalCredential(b)
	if err != nil {
		return nil, err
	}
	if !c.VerifyChecksum() {
		return nil, ErrIntegrity
	}
	return c, nil
}

// Has reports whether a credential with this CID is archived.
func (s *Store) Has(id cid.Cid) bool {
	return s.cas.Has(id)
}
