package permission

// Mask64 is the persisted bit layout of a [Matrix]: bit = resource*3 + action.
// Only the low 18 bits are used.
type Mask64 uint64

func bitOf(resource Resource, action Action) int {
	return int(resource)*int(actionCount) + int(action)
}

// Has reports whether the given bit is set.
func (m Mask64) Has(bit int) bool {
	if bit < 0 || bit >= 64 {
		return false
	}
	return m&(1<<bit) != 0
}

// Set sets the given bit in the mask.
func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m |= 1 << bit
}

// Clear clears the given bit in the mask.
func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m &^= 1 << bit
}

func (m Mask64) Raw() uint64 {
	return uint64(m)
}

// Mask encodes the matrix.
func (m Matrix) Mask() Mask64 {
	var out Mask64
	for res := Resource(0); res < resourceCount; res++ {
		for act := Action(0); act < actionCount; act++ {
			if m[res][act] {
				out.Set(bitOf(res, act))
			}
		}
	}
	return out
}

// MatrixFromMask decodes a mask produced by [Matrix.Mask]. Bits above the grid are ignored.
func MatrixFromMask(mask Mask64) Matrix {
	var m Matrix
	for res := Resource(0); res < resourceCount; res++ {
		for act := Action(0); act < actionCount; act++ {
			m[res][act] = mask.Has(bitOf(res, act))
		}
	}
	return m
}
