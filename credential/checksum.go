package credential

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"dnalock.io/dnalock/segment"
)

// ChecksumAlgorithm names the hash used for helix and layer checksums.
const ChecksumAlgorithm = "sha3-256"

// helixChecksum folds position-sorted segments into a single digest.
// Each segment contributes kind, position, payload and commitment, so any
// single-byte mutation anywhere in the segment set changes the result.
func helixChecksum(sorted []segment.Segment) []byte {
	h := sha3.New256()
	var pos [4]byte
	for _, s := range sorted {
		_, _ = h.Write([]byte{byte(s.Kind)})
		binary.BigEndian.PutUint32(pos[:], s.Position)
		_, _ = h.Write(pos[:])
		_, _ = h.Write(s.Payload)
		_, _ = h.Write(s.Commitment)
	}
	return h.Sum(nil)
}

// layerChecksums groups position-sorted segments by their fixed layer and
// folds each group's commitments. Layers are emitted in ascending order and
// empty layers are omitted.
func layerChecksums(sorted []segment.Segment) []LayerChecksum {
	hashes := make(map[int][][]byte, segment.LayerCount)
	for _, s := range sorted {
		l := s.Kind.Layer()
		hashes[l] = append(hashes[l], s.Commitment)
	}

	var out []LayerChecksum
	for layer := 1; layer <= segment.LayerCount; layer++ {
		commitments, ok := hashes[layer]
		if !ok {
			continue
		}
		h := sha3.New256()
		_, _ = h.Write([]byte{byte(layer)})
		for _, c := range commitments {
			_, _ = h.Write(c)
		}
		out = append(out, LayerChecksum{
			Layer:        layer,
			Algorithm:    ChecksumAlgorithm,
			Checksum:     h.Sum(nil),
			SegmentCount: uint32(len(commitments)),
		})
	}
	return out
}
