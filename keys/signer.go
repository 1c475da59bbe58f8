// Package keys provides the issuer signing capability consumed by the
// credential generator. Key custody stays with the caller; the generator only
// sees the Signer interface.
package keys

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

// Signer is the signing capability an issuer supplies to the generator.
type Signer interface {
	Algorithm() string
	PublicKey() []byte
	Sign(message []byte) ([]byte, error)
}

// Ed25519Signer signs with a raw Ed25519 private key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

func NewEd25519Signer(priv ed25519.PrivateKey) (*Ed25519Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keys: ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	return &Ed25519Signer{priv: priv}, nil
}

// NewEd25519SignerFromSeed builds a signer from a 32-byte seed.
func NewEd25519SignerFromSeed(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// GenerateEd25519Signer draws a fresh keypair from rand.
func GenerateEd25519Signer(rand io.Reader) (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return &Ed25519Signer{priv: priv}, nil
}

func (s *Ed25519Signer) Algorithm() string { return AlgEd25519 }

func (s *Ed25519Signer) PublicKey() []byte {
	return append([]byte(nil), s.priv.Public().(ed25519.PublicKey)...)
}

func (s *Ed25519Signer) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, message), nil
}

// Dilithium3Signer signs with a Dilithium mode3 private key (post-quantum).
//
// The source system's "quantum-safe" layer was a placeholder; this signer is
// the vetted substitute behind the same Signer contract.
type Dilithium3Signer struct {
	pub  *mode3.PublicKey
	priv *mode3.PrivateKey
}

func NewDilithium3Signer(pub *mode3.PublicKey, priv *mode3.PrivateKey) (*Dilithium3Signer, error) {
	if pub == nil || priv == nil {
		return nil, errors.New("keys: missing dilithium3 keypair")
	}
	return &Dilithium3Signer{pub: pub, priv: priv}, nil
}

// GenerateDilithium3Signer draws a fresh keypair from rand.
func GenerateDilithium3Signer(rand io.Reader) (*Dilithium3Signer, error) {
	pub, priv, err := mode3.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return &Dilithium3Signer{pub: pub, priv: priv}, nil
}

func (s *Dilithium3Signer) Algorithm() string { return AlgDilithium3 }

func (s *Dilithium3Signer) PublicKey() []byte {
	b, err := s.pub.MarshalBinary()
	if err != nil {
		// MarshalBinary on a valid mode3 public key cannot fail.
		return nil
	}
	return b
}

func (s *Dilithium3Signer) Sign(message []byte) ([]byte, error) {
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, message, sig)
	return sig, nil
}

// SignatureSize returns the fixed signature length for a supported algorithm.
func SignatureSize(alg string) (int, error) {
	switch alg {
	case AlgEd25519:
		return ed25519.SignatureSize, nil
	case AlgDilithium3:
		return mode3.SignatureSize, nil
	default:
		return 0, fmt.Errorf("keys: unsupported algorithm %q", alg)
	}
}

// PublicKeySize returns the fixed public key length for a supported algorithm.
func PublicKeySize(alg string) (int, error) {
	switch alg {
	case AlgEd25519:
		return ed25519.PublicKeySize, nil
	case AlgDilithium3:
		return mode3.PublicKeySize, nil
	default:
		return 0, fmt.Errorf("keys: unsupported algorithm %q", alg)
	}
}

// Verify checks a signature produced by a Signer of the given algorithm.
func Verify(alg string, pub, message, sig []byte) (bool, error) {
	switch alg {
	case AlgEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return false, errors.New("keys: invalid ed25519 public key length")
		}
		if len(sig) != ed25519.SignatureSize {
			return false, nil
		}
		return ed25519.Verify(ed25519.PublicKey(pub), message, sig), nil
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return false, fmt.Errorf("keys: invalid dilithium3 public key: %w", err)
		}
		if len(sig) != mode3.SignatureSize {
			return false, nil
		}
		return mode3.Verify(&pk, message, sig), nil
	default:
		return false, fmt.Errorf("keys: unsupported algorithm %q", alg)
	}
}
