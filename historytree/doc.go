package historytree

/*

# History trees

A history tree is a tamper evident, append only log. Leaves are numbered in
the order they are added and every version of the log has an aggregate that
commits to the leaves 0..version. Any later version can prove, with a path of
logarithmic size, both that a leaf was present at an earlier version and that
the earlier version is a prefix of the current one.

Nodes are not heap objects. A node is an Address, a (layer, index) pair, and
everything about it lives in a Store keyed by that address. Parents, children
and siblings are found by arithmetic on the address, so a pruned tree is just
a sparse store over the same address space.

	layer 2                 (2,0)
	                      /       \
	layer 1           (1,0)       (1,1)
	                 /    \       /
	layer 0      (0,0)  (0,1)  (0,2)

A node whose rightmost leaf has been appended is frozen: its aggregate can
never change again and is cached in the store.

## Pruned trees

MakePruned copies the path to the latest leaf into a fresh store. Siblings
off the path become stubs: valid nodes carrying only an aggregate. CopyV
adds the path to further versions, failing with ErrProof when the source
disagrees with a stub already present. The result serializes to a compact
CBOR WireTree which a verifier parses back, recomputing every aggregate it
can from the children it was given.

## Merkle trees

MerkleTree shares the address space and store layer but is built once and
then frozen. Freezing pads the right edge with the aggregator's empty value so
that every interior node has two children.
*/
