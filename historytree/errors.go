package historytree

import "errors"

var (
	// ErrProof is returned when a proof disagrees with an aggregate the tree
	// already trusts, or asks for something a pruned tree can not authenticate.
	ErrProof = errors.New("proof error")
	// ErrInvalidProof is returned for structurally malformed wire trees.
	ErrInvalidProof = errors.New("invalid proof")
	ErrOutOfRange   = errors.New("version is out of range for the tree")
)

// The following indicate a construction bug. They are raised with panic.
var (
	ErrDoubleFreeze     = errors.New("merkle tree frozen twice")
	ErrNotFrozen        = errors.New("merkle tree must be frozen first")
	ErrFrozen           = errors.New("merkle tree is frozen and can not be appended to")
	ErrAppendOnlyMerkle = errors.New("merkle trees can not use an append only store")
	ErrStoreOverwrite   = errors.New("append only store entries can not be changed")
	ErrStoreBounds      = errors.New("node lies beyond the current time of an append only store")
)
