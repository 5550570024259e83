package bridge

// Callers of the bridge speak in milliunits (1/1000 of a currency unit);
// the remote budgeting service speaks in minor currency units (cents).
// The conversion happens at this boundary only and is pure integer
// arithmetic so repeated round trips never drift.

// MilliunitsToMinor converts milliunits to minor currency units,
// truncating toward zero.
func MilliunitsToMinor(m int64) int64 { return m / 10 }

// MinorToMilliunits converts minor currency units to milliunits.
func MinorToMilliunits(m int64) int64 { return m * 10 }
