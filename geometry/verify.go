package geometry

import "crypto/subtle"

// VerifyIntegrity recomputes every point hash, bond hash and the model
// checksum from the stored coordinates and segment bindings, comparing each
// in constant time. Any mutation to a point, edge or the checksum itself is
// detected.
func (m *GeometricCommitment) VerifyIntegrity() bool {
	if m == nil || len(m.Points) == 0 || len(m.ModelChecksum) == 0 {
		return false
	}
	for i := range m.Points {
		p := &m.Points[i]
		want := positionHash(p.X, p.Y, p.Z, p.SegmentBinding)
		if subtle.ConstantTimeCompare(p.PositionHash, want) != 1 {
			return false
		}
	}
	for i := range m.Edges {
		e := &m.Edges[i]
		if int(e.A) >= len(m.Points) || int(e.B) >= len(m.Points) {
			return false
		}
		want := bondHash(m.Points[e.A].PositionHash, m.Points[e.B].PositionHash, e.Kind == EdgeBasePair)
		if subtle.ConstantTimeCompare(e.BondHash, want) != 1 {
			return false
		}
	}
	return subtle.ConstantTimeCompare(m.ModelChecksum, modelChecksum(m)) == 1
}
