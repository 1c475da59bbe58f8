package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
)

// DeriveComponentSeed deterministically derives a component-specific Ed25519
// seed from a root seed, so one operator secret can back distinct issuer,
// registry and transport identities.
func DeriveComponentSeed(rootSeed []byte, component string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := checkComponent(component); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("dnalock-kms-lite-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("component:"))
	_, _ = h.Write([]byte(component))
	sum := h.Sum(nil)
	if len(sum) < ed25519.SeedSize {
		return nil, errors.New("keys: kdf output too short")
	}
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}

func checkComponent(component string) error {
	if component == "" {
		return errors.New("keys: component cannot be empty")
	}
	for _, char := range component {
		if (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') || char == '-' {
			continue
		}
		return fmt.Errorf("keys: invalid character %q in component", char)
	}
	return nil
}
