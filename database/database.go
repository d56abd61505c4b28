// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package database defines the minimal key-value interface that the queue
// engine persists its pages, signals and channel records through.
package database

import (
	"errors"
	"io"
)

var (
	ErrClosed   = errors.New("closed")
	ErrNotFound = errors.New("not found")
)

// KeyValueReader defines read-only operations on a key-value store.
type KeyValueReader interface {
	// Has returns if the key is set in the database
	Has(key []byte) (bool, error)

	// Get returns the value the key maps to in the database
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter defines write operations on a key-value store.
type KeyValueWriter interface {
	// Put sets the value of the provided key to the provided value
	Put(key []byte, value []byte) error
}

// KeyValueDeleter defines delete operations on a key-value store.
type KeyValueDeleter interface {
	// Delete removes the key from the database
	Delete(key []byte) error
}

// KeyValueReaderWriterDeleter defines read/write/delete operations on a
// key-value store.
type KeyValueReaderWriterDeleter interface {
	KeyValueReader
	KeyValueWriter
	KeyValueDeleter
}

// Database persists key-value pairs.
type Database interface {
	KeyValueReaderWriterDeleter
	io.Closer
}
