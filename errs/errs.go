// Package errs defines the error kinds shared across the pipeline.
//
// Callers switch on the kind with errors.As against the concrete type
// below. InferenceFailure, LibraryCorrupt and LibraryIO also wrap an
// optional cause reachable with errors.Unwrap/errors.As; the other
// kinds carry no cause.
package errs

import "fmt"

// InferenceFailure means a backend call (VAD/ASR/speaker embedding)
// failed or returned a tensor of an unexpected shape. Recovery is local
// to the segment being processed; the pipeline continues.
type InferenceFailure struct {
	Stage string
	Cause error
}

func (e *InferenceFailure) Error() string {
	return fmt.Sprintf("inference failure in %s: %v", e.Stage, e.Cause)
}

func (e *InferenceFailure) Unwrap() error { return e.Cause }

// InvalidInput means the caller passed something the call can't act on:
// a non-positive sample rate, empty audio, mismatched vector lengths.
// Fatal to the call, not to the pipeline.
type InvalidInput struct {
	Kind string
}

func (e *InvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Kind)
}

// LibraryCorrupt means the on-disk speaker library failed to
// deserialise. The caller should fall back to an empty library; the
// original file is left untouched.
type LibraryCorrupt struct {
	Detail string
	Cause  error
}

func (e *LibraryCorrupt) Error() string {
	return fmt.Sprintf("speaker library corrupt: %s: %v", e.Detail, e.Cause)
}

func (e *LibraryCorrupt) Unwrap() error { return e.Cause }

// LibraryIO means save/load failed at the filesystem level. No partial
// state is written.
type LibraryIO struct {
	Detail string
	Cause  error
}

func (e *LibraryIO) Error() string {
	return fmt.Sprintf("speaker library io: %s: %v", e.Detail, e.Cause)
}

func (e *LibraryIO) Unwrap() error { return e.Cause }

// DuplicateName means enroll() was asked to create a profile under a
// name that's already taken. The reserved name "Unknown" is rejected
// with InvalidInput instead.
type DuplicateName struct {
	Name string
}

func (e *DuplicateName) Error() string {
	return fmt.Sprintf("duplicate speaker name: %q", e.Name)
}

// EmptySet means a vector operation that requires at least one element
// (centroid) was called on an empty set.
type EmptySet struct {
	Op string
}

func (e *EmptySet) Error() string {
	return fmt.Sprintf("%s: empty set", e.Op)
}

// DimensionMismatch means two vectors passed to a vector op have
// different lengths.
type DimensionMismatch struct {
	A, B int
}

func (e *DimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: %d != %d", e.A, e.B)
}
