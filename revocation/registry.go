// Package revocation implements the append-only revocation registry.
//
// Revocation is permanent within a registry instance: entries are never
// deleted or updated, and there is deliberately no unrevoke operation.
// State lives in explicit Registry instances, never package globals, so
// tests and multi-tenant deployments can hold isolated registries.
package revocation

import (
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"
)

// Reason is the closed set of revocation reasons.
type Reason string

const (
	ReasonKeyCompromise        Reason = "KEY_COMPROMISE"
	ReasonSuperseded           Reason = "SUPERSEDED"
	ReasonCessationOfOperation Reason = "CESSATION_OF_OPERATION"
	ReasonPrivilegeWithdrawn   Reason = "PRIVILEGE_WITHDRAWN"
	ReasonUnspecified          Reason = "UNSPECIFIED"
)

// ErrAlreadyRevoked signals an idempotency violation, not a crash condition.
var ErrAlreadyRevoked = errors.New("revocation: credential already revoked")

func IsAlreadyRevoked(err error) bool { return errors.Is(err, ErrAlreadyRevoked) }

// Entry records one revocation. Entries are immutable once inserted.
type Entry struct {
	CredentialID string    `cbor:"credentialId"`
	RevokedAt    time.Time `cbor:"revokedAt"`
	Reason       Reason    `cbor:"reason"`
	RevokedBy    string    `cbor:"revokedBy"`
	Notes        string    `cbor:"notes,omitempty"`
}

// List is the exported CRL shape for external distribution.
type List struct {
	Version uint64  `cbor:"version"`
	Entries []Entry `cbor:"entries"`
	CRLHash []byte  `cbor:"crlHash"`
}

// Registry is the in-memory revocation set. Writes are serialized by a
// single mutex; operations are O(1) dictionary mutations plus a hash fold.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	version uint64
	crlHash []byte

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC().Truncate(time.Second)
	}
	return time.Now().UTC().Truncate(time.Second)
}

// Revoke appends a revocation entry. A second revoke of the same id returns
// ErrAlreadyRevoked and changes nothing.
func (r *Registry) Revoke(credentialID string, reason Reason, revokedBy, notes string) (Entry, error) {
	if credentialID == "" {
		return Entry{}, errors.New("revocation: credential id cannot be empty")
	}
	if reason == "" {
		reason = ReasonUnspecified
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[credentialID]; exists {
		return Entry{}, ErrAlreadyRevoked
	}
	e := Entry{
		CredentialID: credentialID,
		RevokedAt:    r.now(),
		Reason:       reason,
		RevokedBy:    revokedBy,
		Notes:        notes,
	}
	r.entries[credentialID] = e
	r.version++
	r.crlHash = r.foldLocked()
	return e, nil
}

// IsRevoked is an O(1)-expected set lookup.
func (r *Registry) IsRevoked(credentialID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[credentialID]
	return ok
}

// Version returns the monotonically increasing registry version.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// List exports the CRL: entries ordered by credential id plus the current
// version and hash.
func (r *Registry) List() List {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CredentialID < entries[j].CredentialID })
	return List{
		Version: r.version,
		Entries: entries,
		CRLHash: append([]byte(nil), r.crlHash...),
	}
}

// Restore loads previously journaled entries verbatim, preserving their
// original revocation times. Used when rehydrating a registry from a
// persistent store at startup.
func (r *Registry) Restore(entries []Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entries {
		if e.CredentialID == "" {
			return errors.New("revocation: journaled entry has empty credential id")
		}
		if _, exists := r.entries[e.CredentialID]; exists {
			return ErrAlreadyRevoked
		}
		r.entries[e.CredentialID] = e
		r.version++
	}
	r.crlHash = r.foldLocked()
	return nil
}

// foldLocked computes the CRL hash as an ordered fold over entries sorted by
// credential id, so the hash is deterministic regardless of insertion order.
// Caller holds r.mu.
func (r *Registry) foldLocked() []byte {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := sha3.New256()
	for _, id := range ids {
		e := r.entries[id]
		_, _ = h.Write([]byte(e.CredentialID))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(e.RevokedAt.UTC().Format(time.RFC3339)))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(e.Reason))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum(nil)
}
