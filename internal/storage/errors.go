package storage

import "errors"

var (
	// ErrStoreCorrupted marks an index file that could not be decoded. It is
	// recovered at load time: the store starts empty and records the warning.
	ErrStoreCorrupted = errors.New("vector store corrupted")

	// ErrIndexNotFound is the load warning for a deployment with no index on disk yet.
	ErrIndexNotFound = errors.New("no index on disk")

	// ErrIOFailure is returned when the index cannot be written.
	ErrIOFailure = errors.New("vector store i/o failure")

	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidChunk      = errors.New("invalid chunk")

	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
)
