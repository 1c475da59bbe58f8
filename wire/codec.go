// Package wire provides the canonical binary encoding for DNALock artifacts.
//
// Encoding is deterministic core CBOR: an identical logical value always
// serializes to identical bytes, so content identifiers and signatures over
// canonical bytes are reproducible. Checksums are computed over the decoded
// structure; round-trip fidelity is therefore a correctness requirement.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"dnalock.io/dnalock/cidutil"
	"dnalock.io/dnalock/credential"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	// Times are carried as integer Unix seconds; sub-second precision would
	// break byte stability across platforms.
	opts.Time = cbor.TimeUnix
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: encode mode: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: decode mode: %v", err))
	}
	decMode = dm
}

// Marshal encodes any DNALock artifact to canonical bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes canonical bytes into v.
func Unmarshal(b []byte, v any) error {
	return decMode.Unmarshal(b, v)
}

// MarshalCredential encodes a credential to canonical bytes.
func MarshalCredential(c *credential.Credential) ([]byte, error) {
	return encMode.Marshal(c)
}

// UnmarshalCredential decodes canonical credential bytes.
func UnmarshalCredential(b []byte) (*credential.Credential, error) {
	var c credential.Credential
	if err := decMode.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CredentialCID returns the CIDv1 (raw + sha2-256) of a credential's
// canonical bytes.
func CredentialCID(c *credential.Credential) (string, error) {
	b, err := MarshalCredential(c)
	if err != nil {
		return "", err
	}
	return cidutil.CIDv1RawSHA256(b), nil
}
