package index

import "errors"

var (
	// ErrEmptyInput is returned when a build is attempted with no texts,
	// or with texts and metadatas of different lengths.
	ErrEmptyInput = errors.New("no texts to index")

	// ErrIndexNotBuilt is returned by read operations before any
	// successful Build or Load.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrCorruptIndex is returned when persisted companion artifacts are
	// missing, unreadable, or inconsistent with each other.
	ErrCorruptIndex = errors.New("corrupt index")
)
