// Copyright © 2018 One Concern

// Package status declares error constants returned by
// implementations of the storage interfaces.
//
// NOTE: such constants are located in a separate package to avoid
// creating undue cyclical dependencies between pkg/storage, pkg/eris and
// the store implementations.
package status

import "github.com/oneconcern/eris/pkg/errors"

var (
	// Sentinel errors returned by implementations of the interfaces defined by storage

	// ErrNotFound indicates that the backend did not find the requested block or object
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates that the backend API forbids access to the target resource
	ErrForbidden = errors.New("forbidden")

	// ErrNotSupported indicates that the backend does not support this call
	ErrNotSupported = errors.New("not supported")

	// ErrExists indicates that the resource already exists and cannot be overridden
	ErrExists = errors.New("exists already")

	// ErrObjectTooBig indicates that a stored object is larger than any block
	ErrObjectTooBig = errors.New("object too big for a block")

	// ErrInvalidResource indicates that the storage resource has an invalid name
	ErrInvalidResource = errors.New("invalid storage resource name")

	// ErrCorrupted indicates that a block does not hash to the reference it is stored under
	ErrCorrupted = errors.New("block does not match its reference")

	// ErrStorageAPI indicates any other storage API error
	ErrStorageAPI = errors.New("storage API error")
)
