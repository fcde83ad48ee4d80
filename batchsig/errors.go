package batchsig

import "errors"

var (
	ErrUnknownTreeType  = errors.New("unknown tree type in signature blob")
	ErrMissingProof     = errors.New("message has no signature blob or proof tree")
	ErrLeafMismatch     = errors.New("message data does not match the leaf it claims")
	ErrSpliceHint       = errors.New("splice hint can not be authenticated by the proof")
	ErrUnknownAlgorithm = errors.New("unsupported signature algorithm")
	ErrKeySize          = errors.New("unsupported key size for the algorithm")
)
