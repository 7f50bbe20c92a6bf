// Copyright © 2018 One Concern

package eris

import (
	"fmt"

	"github.com/oneconcern/eris/pkg/errors"
)

var (
	// ErrFormat is matched by all FormatError values
	ErrFormat = errors.New("malformed encoding")

	// ErrNotFound is matched by all NotFoundError values
	ErrNotFound = errors.New("block not found")

	// ErrIntegrity is matched by all IntegrityError values
	ErrIntegrity = errors.New("block corrupted")

	// ErrInvalidArity is matched by all InvalidArityError values
	ErrInvalidArity = errors.New("unsupported block size")
)

// FormatError is returned when a read capability, a reference or the padding of the content is malformed
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrFormat, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrFormat, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Is matches ErrFormat
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// NotFoundError is returned when the store has no block for a reference required to decode
type NotFoundError struct {
	Reference Reference
	Err       error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %v", ErrNotFound, e.Reference)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Is matches ErrNotFound
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IntegrityError is returned when a fetched block does not match its reference.
//
// The content of such a block is never decrypted.
type IntegrityError struct {
	Reference Reference
	Reason    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%v: %v: %s", ErrIntegrity, e.Reference, e.Reason)
}

// Is matches ErrIntegrity
func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// InvalidArityError is returned when a block size does not correspond to a supported arity
type InvalidArityError struct {
	BlockSize int
}

func (e *InvalidArityError) Error() string {
	return fmt.Sprintf("%v: %d bytes, expected %d or %d", ErrInvalidArity, e.BlockSize, BlockSize1KiB, BlockSize32KiB)
}

// Is matches ErrInvalidArity
func (e *InvalidArityError) Is(target error) bool { return target == ErrInvalidArity }
