package batchsig

/*

# Batch signatures

Signing every outgoing message is expensive. The queues here buffer messages
and sign one tree root per flush instead. Each message carries a
SignatureBlob: the root signature together with a pruned tree proving the
message is a leaf under that root.

  - SimpleQueue signs each message on its own. It is the baseline.
  - MerkleQueue builds a fresh merkle tree per flush.
  - HistoryQueue appends every flush to one long lived history tree. A
    message to a recipient that was also sent something in a recent flush
    carries a splice hint, proving the earlier root too.

VerifyQueue is the receiving side. It groups messages by the root they claim
and links history roots through their splice hints into a Dag. Roots are
checked newest first and a verified root vouches for every root it reaches,
so a recipient holding a run of spliced batches pays for one signature
verification. A root whose signature fails vouches for nothing; the roots
below it are checked on their own.

Signatures come from a SignaturePrimitives implementation. CoseSigner makes
COSE Sign1 signatures; CachingSigner remembers verified roots across flushes;
DigestPrimitive is a cheap counting stand in for tests.
*/
