package historytree

// Store holds the per node state of a tree. A node exists in a tree only
// while the store reports it valid. Stores are not safe for concurrent use;
// the owning tree serializes access.
type Store interface {
	// Time is the version of the most recent leaf, -1 for an empty store.
	Time() int
	UpdateTime(time int)

	IsValid(a Address) bool
	MarkValid(a Address)

	Agg(a Address) []byte
	SetAgg(a Address, agg []byte)

	Val(a Address) []byte
	HasVal(a Address) bool
	SetVal(a Address, value []byte)
}
