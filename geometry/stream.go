package geometry

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// hashStream is a counter-mode SHA3-256 stream. All pseudo-randomness in a
// commitment build is drawn from H(seed ‖ counter), never a live CSPRNG, so
// builds are reproducible.
type hashStream struct {
	seed    []byte
	counter uint64
	buf     [32]byte
	off     int
}

func newHashStream(seed []byte) *hashStream {
	s := &hashStream{seed: append([]byte(nil), seed...)}
	s.refill()
	return s
}

func (s *hashStream) refill() {
	h := sha3.New256()
	_, _ = h.Write(s.seed)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], s.counter)
	_, _ = h.Write(ctr[:])
	h.Sum(s.buf[:0])
	s.counter++
	s.off = 0
}

func (s *hashStream) uint64() uint64 {
	if s.off+8 > len(s.buf) {
		s.refill()
	}
	v := binary.BigEndian.Uint64(s.buf[s.off : s.off+8])
	s.off += 8
	return v
}

// intn returns a value in [0, n) with modulo bias rejection.
func (s *hashStream) intn(n int) int {
	if n <= 0 {
		return 0
	}
	limit := (^uint64(0) / uint64(n)) * uint64(n)
	for {
		v := s.uint64()
		if v < limit {
			return int(v % uint64(n))
		}
	}
}

// distinctIndices samples count distinct values from [0, n), in draw order.
func (s *hashStream) distinctIndices(count, n int) []uint32 {
	if count > n {
		count = n
	}
	seen := make(map[int]bool, count)
	out := make([]uint32, 0, count)
	for len(out) < count {
		i := s.intn(n)
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, uint32(i))
	}
	return out
}
