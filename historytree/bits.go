package historytree

import "math/bits"

// RootLayer returns the layer of the root for a tree whose most recent leaf
// is version. This is ceil(log2(version+1)), and 0 for a single leaf.
func RootLayer(version int) int {
	if version <= 0 {
		return 0
	}
	return bits.Len64(uint64(version))
}
